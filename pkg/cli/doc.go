// Package cli provides the command-line interface for feo applications.
//
// An application hands itself to Run from main:
//
//	func main() {
//	    app := feo.New("hello")
//	    // register routes ...
//	    os.Exit(cli.Run(app, cli.BuildInfo{Version: version}))
//	}
//
// which gives it these commands:
//   - run: start the development server (--host, --port, --debug, --config)
//   - routes: print the URL map
//   - render: render a template with data from flags or a file
//   - check: parse every template and report syntax errors
//   - version: show version information
//
// The standalone feo tool (cmd/feo) offers render, check and version for a
// templates directory without an application.
package cli
