// Package feo is a small web framework in the style of Flask.
//
// An App holds the URL map. Handlers receive a *Request and return a
// *Response or an error:
//
//	app := feo.New("hello")
//
//	app.Get("/", func(req *feo.Request) (*feo.Response, error) {
//	    return req.Render("index.html", map[string]any{"title": "Home"})
//	})
//
//	app.Get("/user/<username>", func(req *feo.Request) (*feo.Response, error) {
//	    return feo.HTML("<h1>Hello, " + req.Param("username") + "!</h1>"), nil
//	})
//
//	app.ErrorHandler(404, func(req *feo.Request, err *feo.HTTPError) (*feo.Response, error) {
//	    return feo.HTML("<h1>Custom 404</h1>"), nil
//	})
//
// Routes are tried in registration order and the first one whose rule and
// methods both match wins. Dynamic segments are written <name> or
// <converter:name> with the converters string, int, float, path and uuid.
//
// Returning an *HTTPError, usually from Abort, answers with its status.
// Any other error or a panic becomes a 500. The error handler registered
// for the status renders the page, otherwise a plain default page is used.
//
// Templates are read from Config.TemplatesDir when they are rendered. They
// can use request and url_for in addition to the data passed in.
//
// An App is an http.Handler. The server package runs it as a development
// server on 127.0.0.1:5000.
package feo
