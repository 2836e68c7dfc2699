package id

import (
	"github.com/google/uuid"
)

// maxRequestIDLen bounds request ids accepted from clients.
const maxRequestIDLen = 128

// Request returns a new random request id.
func Request() string {
	return uuid.NewString()
}

// FromHeader returns the client supplied id when it is usable, otherwise a
// new one. Usable ids are non-empty, at most 128 bytes and printable ASCII.
func FromHeader(value string) string {
	if value == "" || len(value) > maxRequestIDLen {
		return Request()
	}
	for i := 0; i < len(value); i++ {
		if value[i] < 0x21 || value[i] > 0x7e {
			return Request()
		}
	}
	return value
}

// IsUUID reports whether s is a UUID in any of the forms uuid.Parse accepts.
func IsUUID(s string) bool {
	return uuid.Validate(s) == nil
}
