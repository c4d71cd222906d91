// Package sanitize normalizes user-supplied identifier fields before the
// validation gate applies its business rules. Each function returns the
// cleaned value or an error; callers never receive a partially cleaned
// string alongside a failure.
package sanitize

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrInvalid indicates a field could not be normalized into an acceptable
// form.
var ErrInvalid = errors.New("invalid field")

const (
	minUsernameLen = 3
	maxUsernameLen = 32
	maxFilenameLen = 255
)

// Username trims surrounding whitespace and validates the username against
// the allowed character set (letters, digits, underscore, dot, hyphen).
func Username(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", fmt.Errorf("%w: username is required", ErrInvalid)
	}
	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return "", fmt.Errorf("%w: username must be %d-%d characters", ErrInvalid, minUsernameLen, maxUsernameLen)
	}
	for _, r := range username {
		if !isUsernameRune(r) {
			return "", fmt.Errorf("%w: username contains disallowed character %q", ErrInvalid, r)
		}
	}
	return username, nil
}

func isUsernameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_', r == '.', r == '-':
		return true
	}
	return false
}

// Filename strips any path components, rejects traversal sequences, and
// lowercases the extension. The returned name is safe to use as the final
// element of a storage key.
func Filename(filename string) (string, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return "", fmt.Errorf("%w: filename is required", ErrInvalid)
	}

	// Keep only the final path element, for either separator style.
	filename = strings.ReplaceAll(filename, "\\", "/")
	filename = path.Base(filename)
	if filename == "." || filename == ".." || filename == "/" {
		return "", fmt.Errorf("%w: filename has no usable name", ErrInvalid)
	}
	if strings.Contains(filename, "..") {
		return "", fmt.Errorf("%w: filename contains a traversal sequence", ErrInvalid)
	}
	if len(filename) > maxFilenameLen {
		return "", fmt.Errorf("%w: filename is too long", ErrInvalid)
	}

	if ext := path.Ext(filename); ext != "" {
		filename = filename[:len(filename)-len(ext)] + strings.ToLower(ext)
	}
	return filename, nil
}
