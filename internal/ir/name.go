package ir

import (
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// MaxNameLen is the longest variable name accepted, in bytes after NFC
// normalization.
const MaxNameLen = 15

// Name is a validated variable name.
//
// Names are NFC normalized identifiers: a letter or underscore followed by
// letters, digits, underscores, or dots (for qualified column references
// such as "t.id"). NFC makes composed and decomposed spellings of the same
// name map to one graph node. Construct with NewName; the zero Name is
// invalid.
type Name string

// NewName validates and normalizes s.
// Overlong names are rejected with NAME_TOO_LONG rather than truncated.
func NewName(s string) (Name, error) {
	s = norm.NFC.String(s)
	if s == "" {
		return "", newModelError(ErrCodeInvalidName, s, "variable name is empty")
	}
	if len(s) > MaxNameLen {
		return "", newModelError(ErrCodeNameTooLong, s,
			"variable name is %d bytes, limit is %d", len(s), MaxNameLen)
	}
	first := true
	for i, r := range s {
		if !isNameRune(r, first) {
			return "", newModelError(ErrCodeInvalidName, s,
				"invalid character %q at offset %d", r, i)
		}
		first = false
	}
	return Name(s), nil
}

// MustName is NewName for names known to be valid. It panics otherwise.
func MustName(s string) Name {
	n, err := NewName(s)
	if err != nil {
		panic(err)
	}
	return n
}

// String returns the name text.
func (n Name) String() string {
	return string(n)
}

func isNameRune(r rune, first bool) bool {
	switch {
	case r == '_' || unicode.IsLetter(r):
		return true
	case r == '.' || unicode.IsDigit(r):
		return !first
	default:
		return false
	}
}
