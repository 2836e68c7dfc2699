// Package id generates and validates request identifiers.
//
// Each request gets an id that is echoed in the X-Request-ID response header,
// attached to access log lines and exposed to handlers. Ids are random UUIDs
// from google/uuid. A client may supply its own id, which is kept if it is
// reasonably short and printable.
package id
