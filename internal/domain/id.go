package domain

import (
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// ValidateID checks that candidate, with an optional leading slash, is made
// only of ASCII letters, digits and hyphens. It returns the bare id.
//
// Dots and slashes are rejected, so a valid id joined onto the data
// directory cannot escape it.
func ValidateID(candidate string) (string, bool) {
	id := strings.TrimPrefix(candidate, "/")
	if id == "" {
		return "", false
	}
	for i := 0; i < len(id); i++ {
		if !isIDChar(id[i]) {
			return "", false
		}
	}
	return id, true
}

func isIDChar(c byte) bool {
	return c >= 'a' && c <= 'z' ||
		c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' ||
		c == '-'
}

// GenerateID returns a fresh IDLength-character base-36 id. It does not check
// for collisions with existing snippets.
func GenerateID() string {
	u := uuid.New()
	n := new(big.Int).SetBytes(u[:])
	s := n.Text(len(idAlphabet))
	// pad in the unlikely case the uuid has many leading zero bits
	for len(s) < IDLength {
		s = "0" + s
	}
	return s[len(s)-IDLength:]
}
