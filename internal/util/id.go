package util

import (
	"crypto/rand"
	"encoding/hex"
)

// idEntropyBytes is the randomness behind a generated id; the hex form is
// twice this length.
const idEntropyBytes = 12

// NewID returns a random hex id. Request handling uses it to correlate the
// log lines of one request.
func NewID() string {
	buf := make([]byte, idEntropyBytes)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
