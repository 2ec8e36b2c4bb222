// Package gamecode produces the human-shareable join codes for sessions and
// the share links players send each other.
package gamecode

import (
	"fmt"
	"math/rand"
	"strings"
)

// CodeLength is the fixed length of a session code.
const CodeLength = 6

// alphabet excludes 0/O and 1/I so codes survive being read out loud or
// copied from a photo.
const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Generate returns a random 6-character session code. Codes are a
// convenience identifier, not a capability token, so math/rand is fine.
// Uniqueness among active sessions is enforced by the store; callers retry
// on a collision.
func Generate() string {
	var b strings.Builder
	b.Grow(CodeLength)
	for i := 0; i < CodeLength; i++ {
		b.WriteByte(alphabet[rand.Intn(len(alphabet))])
	}
	return b.String()
}

// Normalize upper-cases a user-typed code and strips everything outside the
// code alphabet's character classes.
func Normalize(raw string) string {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	var b strings.Builder
	for _, r := range upper {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if len(s) > CodeLength {
		s = s[:CodeLength]
	}
	return s
}

// Valid reports whether code is exactly CodeLength characters drawn from the
// code alphabet.
func Valid(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(alphabet, rune(code[i])) {
			return false
		}
	}
	return true
}

// JoinURL builds the shareable join link for a code.
func JoinURL(baseURL, code string) string {
	return fmt.Sprintf("%s/join/%s", strings.TrimRight(baseURL, "/"), code)
}
