// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package manifest parses the checksum list found on the boot volume.
//
// The format is one entry per line: 32 hexascii characters, whitespace, a
// relative path. '#' lines are comments, blank lines are skipped, and a
// "# TotalBytes: 0x<hex>" comment may declare the expected total payload
// size. Any other malformed line rejects the whole manifest: a corrupted
// checksum list must not silently weaken the gate.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"

	"github.com/kairos-io/go-bootsum/pkg/constants"
	"github.com/kairos-io/go-bootsum/pkg/types"
)

var (
	// ErrNotFound means the manifest file is absent from the volume.
	ErrNotFound = errors.New("manifest not found")
	// ErrEmpty means the manifest is too small to hold a single entry.
	ErrEmpty = errors.New("manifest is empty or too small")
	// ErrTooLarge means the manifest exceeds the accepted file size.
	ErrTooLarge = errors.New("manifest is too large")
	// ErrTooManyLines means the manifest exceeds the accepted line count.
	ErrTooManyLines = errors.New("manifest contains too many lines")
)

// MalformedLineError rejects the whole manifest, pointing at the first
// offending line.
type MalformedLineError struct {
	Line   int
	Reason string
}

func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("malformed manifest line %d: %s", e.Line, e.Reason)
}

// Manifest is the parsed, immutable checksum list.
type Manifest struct {
	// Entries in manifest file order. Order matters: progress reporting
	// and failure display slots are computed from position.
	Entries []types.ManifestEntry
	// TotalBytes is the declared payload size, or 0 when the manifest
	// does not carry one. Informational only.
	TotalBytes uint64
	// Raw is the manifest file content the entries were parsed from,
	// kept so the measured-verification feature can extend a PCR with
	// the exact bytes the decision was based on.
	Raw []byte
}

// Load reads and parses the manifest from the volume.
func Load(vol fs.FS, name string) (*Manifest, error) {
	data, err := fs.ReadFile(vol, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("unable to read %s: %w", name, err)
	}
	return Parse(data)
}

// Parse builds a Manifest from raw file content in a single pass. It either
// returns a complete Manifest or an error; no partial state escapes.
func Parse(data []byte) (*Manifest, error) {
	if len(data) < constants.ManifestSizeMin {
		return nil, ErrEmpty
	}
	if len(data) > constants.ManifestSizeMax {
		return nil, ErrTooLarge
	}

	m := &Manifest{Raw: data}

	lines := splitLines(data)
	if len(lines) > constants.ManifestLinesMax {
		return nil, ErrTooManyLines
	}

	for n, line := range lines {
		lineno := n + 1

		if n == 0 {
			line = bytes.TrimPrefix(line, []byte{0xef, 0xbb, 0xbf})
		}
		line = bytes.TrimRight(line, " \t")
		// Skip any whitespace or stray non-ASCII bytes (such as BOMs)
		// that may precede an entry or a comment.
		start := 0
		for start < len(line) && (line[start] <= ' ' || line[start] >= 0x80) {
			start++
		}
		line = line[start:]
		if len(line) == 0 {
			continue
		}

		if line[0] == '#' {
			m.parseComment(line)
			continue
		}

		if err := checkControlBytes(line, lineno); err != nil {
			return nil, err
		}

		entry, err := parseEntry(line, lineno)
		if err != nil {
			return nil, err
		}
		m.Entries = append(m.Entries, entry)
	}

	return m, nil
}

// parseComment looks for a "# TotalBytes: 0x0123456789abcdef" declaration.
// An unparsable value is ignored with a warning rather than failing the
// manifest, since the figure is informational.
func (m *Manifest) parseComment(line []byte) {
	const prefix = "TotalBytes:"

	body := strings.TrimSpace(string(line[1:]))
	if !strings.HasPrefix(body, prefix) {
		return
	}
	value := strings.TrimSpace(body[len(prefix):])
	if !strings.HasPrefix(value, "0x") || len(value) > 2+16 {
		slog.Warn("Ignoring invalid TotalBytes value", "value", value)
		return
	}
	total, err := strconv.ParseUint(value[2:], 16, 64)
	if err != nil {
		slog.Warn("Ignoring invalid TotalBytes value", "value", value)
		return
	}
	m.TotalBytes = total
}

// parseEntry validates a "<32 hex><whitespace><path>" line.
func parseEntry(line []byte, lineno int) (types.ManifestEntry, error) {
	var entry types.ManifestEntry

	if len(line) <= constants.HexDigestSize {
		return entry, &MalformedLineError{Line: lineno, Reason: "line too short for a digest"}
	}
	if !isWhiteSpace(line[constants.HexDigestSize]) {
		return entry, &MalformedLineError{Line: lineno, Reason: "digest is not followed by whitespace"}
	}

	digest := make([]byte, constants.HexDigestSize)
	for i := 0; i < constants.HexDigestSize; i++ {
		c := line[i]
		// Accept either case, canonicalize to lowercase.
		if c >= 'A' && c <= 'F' {
			c += 0x20
		}
		if !isHexAscii(c) {
			return entry, &MalformedLineError{Line: lineno, Reason: fmt.Sprintf("invalid digest character %q", line[i])}
		}
		digest[i] = c
	}

	rest := line[constants.HexDigestSize:]
	i := 0
	for i < len(rest) && isWhiteSpace(rest[i]) {
		i++
	}
	path := rest[i:]
	if len(path) == 0 {
		return entry, &MalformedLineError{Line: lineno, Reason: "entry has no path"}
	}
	if len(path) > constants.PathMax {
		return entry, &MalformedLineError{Line: lineno, Reason: fmt.Sprintf("path exceeds %d bytes", constants.PathMax)}
	}
	for _, c := range path {
		// TAB is a legal separator but never legal inside a path.
		if c < ' ' {
			return entry, &MalformedLineError{Line: lineno, Reason: "control character in path"}
		}
	}

	// The path keeps its original byte encoding. Conversion to the native
	// representation is the verification engine's problem, entry by entry.
	entry.Path = append([]byte(nil), path...)
	entry.Digest = string(digest)
	return entry, nil
}

// checkControlBytes rejects NUL and control characters other than TAB.
func checkControlBytes(line []byte, lineno int) error {
	for _, c := range line {
		if c < ' ' && c != '\t' {
			return &MalformedLineError{Line: lineno, Reason: fmt.Sprintf("control character %#02x in entry", c)}
		}
	}
	return nil
}

// splitLines splits on LF, normalizing CRLF and lone CR endings.
func splitLines(data []byte) [][]byte {
	normalized := bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	normalized = bytes.ReplaceAll(normalized, []byte("\r"), []byte("\n"))
	return bytes.Split(normalized, []byte("\n"))
}

func isHexAscii(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
}

func isWhiteSpace(c byte) bool {
	return c == ' ' || c == '\t'
}
