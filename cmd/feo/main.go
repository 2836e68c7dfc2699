// feo renders and checks template directories.
package main

import (
	"os"

	"github.com/feoweb/feo/pkg/cli"
)

func main() {
	os.Exit(cli.Main())
}
