// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package verify re-hashes every manifest entry against the boot volume.
//
// The engine walks the manifest in order, never aborting on a per-entry
// failure: failures are classified, surfaced as they happen and aggregated
// into a run summary. Cancellation is cooperative and only takes effect at
// entry boundaries, so a file hash already in progress always completes.
package verify

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/kairos-io/go-bootsum/pkg/constants"
	"github.com/kairos-io/go-bootsum/pkg/manifest"
	"github.com/kairos-io/go-bootsum/pkg/pathenc"
	"github.com/kairos-io/go-bootsum/pkg/types"
)

// hashBufferSize is the read granularity for stream hashing.
const hashBufferSize = 64 * 1024

// Engine verifies a Manifest against a volume. All collaborators are
// injected; the zero value of the optional callbacks is tolerated.
type Engine struct {
	// Volume serves the files named by manifest entries.
	Volume fs.FS
	// Progress, when set, is called with (index, total) before each entry
	// and once more after the loop with the final processed count.
	Progress func(index, total int)
	// OnFailure, when set, is called the moment an entry fails, with the
	// 0-based ordinal of the failure for display slot cycling.
	OnFailure func(res types.EntryResult, numFailed int)
	// CancelRequested, when set, is polled once per entry before any work
	// on it starts. Returning true stops the run; unprocessed entries are
	// not counted as failed.
	CancelRequested func() bool
}

// Run processes every entry of the manifest in order. The returned error is
// only non-nil for internal faults (a digest failing to decode despite
// parse-time validation); per-entry failures are part of the results.
func (e *Engine) Run(m *manifest.Manifest) (types.RunSummary, []types.EntryResult, error) {
	summary := types.RunSummary{Total: len(m.Entries)}
	results := make([]types.EntryResult, 0, len(m.Entries))

	for index, entry := range m.Entries {
		if e.CancelRequested != nil && e.CancelRequested() {
			summary.Cancelled = true
			break
		}
		e.reportProgress(index, summary.Total)

		res, err := e.processEntry(entry)
		if err != nil {
			return summary, results, err
		}
		summary.Processed++
		results = append(results, res)

		if res.Failed() {
			if e.OnFailure != nil {
				e.OnFailure(res, summary.Failed)
			}
			summary.Failed++
			slog.Debug("Entry failed verification", "path", res.Path, "status", res.Status.String(), "reason", res.Reason)
		}
	}

	// Progress is reported at least once, even for an empty manifest or
	// a run cancelled before the first entry.
	e.reportProgress(summary.Processed, summary.Total)
	return summary, results, nil
}

func (e *Engine) processEntry(entry types.ManifestEntry) (types.EntryResult, error) {
	expected, err := entry.DigestBytes()
	if err != nil {
		// Cannot happen after parse-time validation; treated as an
		// internal fault, not a per-entry failure.
		return types.EntryResult{}, fmt.Errorf("internal: %w", err)
	}

	native, err := pathenc.ToNative(entry.Path)
	if err != nil {
		return types.EntryResult{
			Path:   pathenc.Fallback(entry.Path),
			Status: types.StatusPathEncodingFailed,
			Reason: err.Error(),
		}, nil
	}

	computed, err := hashFile(e.Volume, native)
	if err != nil {
		return types.EntryResult{
			Path:   native,
			Status: types.StatusFileUnreadable,
			Reason: err.Error(),
		}, nil
	}

	if !bytes.Equal(computed[:], expected[:]) {
		return types.EntryResult{Path: native, Status: types.StatusHashMismatch}, nil
	}
	return types.EntryResult{Path: native, Status: types.StatusPassed}, nil
}

func (e *Engine) reportProgress(index, total int) {
	if e.Progress != nil {
		e.Progress(index, total)
	}
}

// hashFile streams the file content through MD5. There is no mid-file
// cancellation: once a file is open it is hashed to the end.
func hashFile(vol fs.FS, name string) ([constants.DigestSize]byte, error) {
	var out [constants.DigestSize]byte

	f, err := vol.Open(name)
	if err != nil {
		return out, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return out, err
	}
	if info.IsDir() {
		return out, fmt.Errorf("%s is a directory", name)
	}

	h := md5.New()
	if _, err := io.CopyBuffer(h, f, make([]byte, hashBufferSize)); err != nil {
		return out, err
	}
	copy(out[:], h.Sum(nil))
	return out, nil
}
