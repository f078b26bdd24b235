// README: Common value types shared across modules.
package types

import (
	"crypto/rand"
	"encoding/hex"
)

// ID is an opaque entity identifier (32 hex chars).
type ID string

// NewID returns a random 128-bit identifier encoded as hex.
func NewID() ID {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return ID(hex.EncodeToString(b[:]))
}
