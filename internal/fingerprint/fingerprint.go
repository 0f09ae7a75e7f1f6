// Package fingerprint derives the fixed-width digests used for exact-match
// duplicate detection. Text is normalized before hashing so that case and
// whitespace layout do not affect the result; media is hashed byte-for-byte.
//
// Absent content never produces a digest: callers get a nil pointer, which
// the store persists as NULL and never compares against anything.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Size is the length of a hex-encoded fingerprint.
const Size = sha256.Size * 2

// NormalizeText lower-cases s using full Unicode case mapping, collapses every
// run of whitespace to a single space and trims both ends.
func NormalizeText(s string) string {
	if s == "" {
		return ""
	}
	lower := cases.Lower(language.Und).String(s)
	return strings.Join(strings.Fields(lower), " ")
}

// Text returns the fingerprint of the normalized form of s, or nil when s is
// empty or normalizes to the empty string.
func Text(s string) *string {
	n := NormalizeText(s)
	if n == "" {
		return nil
	}
	return digest([]byte(n))
}

// Bytes returns the fingerprint of b, or nil when b is empty.
func Bytes(b []byte) *string {
	if len(b) == 0 {
		return nil
	}
	return digest(b)
}

// Short returns the first 12 characters of a fingerprint for log output, or
// "-" when fp is nil.
func Short(fp *string) string {
	if fp == nil {
		return "-"
	}
	if len(*fp) <= 12 {
		return *fp
	}
	return (*fp)[:12]
}

func digest(b []byte) *string {
	sum := sha256.Sum256(b)
	s := hex.EncodeToString(sum[:])
	return &s
}
