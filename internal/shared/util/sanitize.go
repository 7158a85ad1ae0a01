package util

import (
	"errors"
	"strings"
	"unicode"
)

var ErrInvalidObjectName = errors.New("invalid object name")

// ObjectName turns an id into a single path segment for an archive key.
// Separators and control characters become underscores; traversal is rejected.
func ObjectName(id, ext string) (string, error) {
	s := strings.TrimSpace(id)
	if s == "" || strings.Contains(s, "..") {
		return "", ErrInvalidObjectName
	}
	s = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || unicode.IsControl(r) {
			return '_'
		}
		return r
	}, s)
	return s + ext, nil
}
