// Package matching compiles route rules and matches request paths against them.
//
// Rules use angle brackets for dynamic segments:
//
//	/user/<username>
//	/post/<int:id>
//	/files/<path:name>
//	/items/<uuid:key>
//
// A compiled Pattern matches a whole path and captures the segment values.
// It can also be filled in the other direction to build a URL for a route.
//
// NearMisses ranks rules by how close they come to an unmatched path. The
// debug 404 page uses it to suggest routes.
package matching
