// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package pathenc converts manifest paths from their 8-bit file encoding
// into the native path representation used to open files on the volume.
//
// Manifest paths are expected to be UTF-8 with either '/' or '\' as the
// separator. Malformed input never panics: ToNative reports an error and
// Fallback produces a printable rendering so the entry can still be shown
// in a failure report.
package pathenc

import (
	"errors"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/kairos-io/go-bootsum/pkg/constants"
)

var (
	// ErrEmptyPath means the entry carried no path at all.
	ErrEmptyPath = errors.New("empty path")
	// ErrPathTooLong means the path exceeds the manifest path bound.
	ErrPathTooLong = errors.New("path too long")
	// ErrInvalidEncoding means the path bytes are not well-formed UTF-8.
	ErrInvalidEncoding = errors.New("path is not valid UTF-8")
	// ErrIllegalCharacter means the path contains a control character.
	ErrIllegalCharacter = errors.New("illegal character in path")
)

// ToNative converts raw manifest path bytes into a cleaned, slash-separated
// relative path suitable for fs.FS lookups.
func ToNative(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", ErrEmptyPath
	}
	if len(raw) > constants.PathMax {
		return "", ErrPathTooLong
	}

	for i := 0; i < len(raw); {
		r, size := utf8.DecodeRune(raw[i:])
		if r == utf8.RuneError && size <= 1 {
			return "", ErrInvalidEncoding
		}
		if r < ' ' {
			return "", ErrIllegalCharacter
		}
		i += size
	}

	// Manifests produced on Windows carry backslash separators.
	native := strings.ReplaceAll(string(raw), `\`, "/")
	native = strings.TrimPrefix(native, "/")
	native = path.Clean(native)
	if native == "." || native == ".." || strings.HasPrefix(native, "../") {
		return "", ErrIllegalCharacter
	}
	return native, nil
}

// Fallback renders undecodable path bytes for display, replacing anything
// non-printable or out of the ASCII range with a placeholder.
func Fallback(raw []byte) string {
	out := make([]byte, 0, len(raw))
	for _, c := range raw {
		switch {
		case c == '\\':
			out = append(out, '/')
		case c < ' ' || c >= 0x80:
			out = append(out, '?')
		default:
			out = append(out, c)
		}
	}
	return string(out)
}
