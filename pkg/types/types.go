package types

import (
	"encoding/hex"
	"fmt"

	"github.com/kairos-io/go-bootsum/pkg/constants"
)

// ManifestEntry is a single line of the checksum manifest.
type ManifestEntry struct {
	// Path is the relative file path exactly as found in the manifest,
	// kept in its original byte encoding. Conversion to the native path
	// representation only happens during verification.
	Path []byte
	// Digest is the expected digest as 32 lowercase hex characters.
	// Validated at parse time, so users of the entry can assume it
	// decodes cleanly.
	Digest string
}

// DigestBytes decodes the hexascii digest into its raw 16 bytes.
// The parser guarantees this cannot fail, but callers treat an error here
// as an internal fault rather than a per-entry failure.
func (e ManifestEntry) DigestBytes() ([constants.DigestSize]byte, error) {
	var out [constants.DigestSize]byte
	if len(e.Digest) != constants.HexDigestSize {
		return out, fmt.Errorf("digest %q has length %d, want %d", e.Digest, len(e.Digest), constants.HexDigestSize)
	}
	raw, err := hex.DecodeString(e.Digest)
	if err != nil {
		return out, err
	}
	copy(out[:], raw)
	return out, nil
}

// EntryStatus classifies the outcome of verifying one manifest entry.
type EntryStatus int

const (
	StatusPassed EntryStatus = iota
	StatusHashMismatch
	StatusFileUnreadable
	StatusPathEncodingFailed
)

func (s EntryStatus) String() string {
	switch s {
	case StatusPassed:
		return "passed"
	case StatusHashMismatch:
		return "hash-mismatch"
	case StatusFileUnreadable:
		return "file-unreadable"
	case StatusPathEncodingFailed:
		return "path-encoding-failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

func (s EntryStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

func (s EntryStatus) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

// EntryResult is the reported outcome for one processed entry.
type EntryResult struct {
	// Path in its native representation, or the best-effort fallback
	// rendering when the conversion itself failed.
	Path   string      `json:"path" yaml:"path"`
	Status EntryStatus `json:"status" yaml:"status"`
	// Reason carries the underlying error text for unreadable files.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Failed reports whether this entry counts towards the failure total.
func (r EntryResult) Failed() bool {
	return r.Status != StatusPassed
}

// RunSummary aggregates a verification run.
type RunSummary struct {
	Processed int  `json:"processed" yaml:"processed"`
	Failed    int  `json:"failed" yaml:"failed"`
	Total     int  `json:"total" yaml:"total"`
	Cancelled bool `json:"cancelled" yaml:"cancelled"`
}

// Clean reports whether the run completed with no failures.
func (s RunSummary) Clean() bool {
	return s.Failed == 0 && !s.Cancelled
}

// BootDecision is the gate's verdict once verification has finished.
type BootDecision int

const (
	DecisionProceed BootDecision = iota
	DecisionPrompt
	DecisionRefuse
	DecisionNoChainTarget
)

func (d BootDecision) String() string {
	switch d {
	case DecisionProceed:
		return "proceed"
	case DecisionPrompt:
		return "prompt"
	case DecisionRefuse:
		return "refuse"
	case DecisionNoChainTarget:
		return "no-chain-target"
	default:
		return fmt.Sprintf("unknown(%d)", int(d))
	}
}

func (d BootDecision) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d BootDecision) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// PCRValues holds the emulated PCR value per bank for a measured
// verification run.
type PCRValues struct {
	PCR    int    `json:"pcr" yaml:"pcr"`
	SHA1   string `json:"sha1,omitempty" yaml:"sha1,omitempty"`
	SHA256 string `json:"sha256,omitempty" yaml:"sha256,omitempty"`
	SHA384 string `json:"sha384,omitempty" yaml:"sha384,omitempty"`
	SHA512 string `json:"sha512,omitempty" yaml:"sha512,omitempty"`
}

// Report is the machine-readable record of a full gate run. CI harnesses
// consume this in test mode instead of scraping console output.
type Report struct {
	Version      string        `json:"version" yaml:"version"`
	Arch         string        `json:"arch" yaml:"arch"`
	SecureBoot   string        `json:"secureBoot,omitempty" yaml:"secureBoot,omitempty"`
	TotalBytes   uint64        `json:"totalBytes,omitempty" yaml:"totalBytes,omitempty"`
	ChainTarget  string        `json:"chainTarget,omitempty" yaml:"chainTarget,omitempty"`
	Summary      RunSummary    `json:"summary" yaml:"summary"`
	Entries      []EntryResult `json:"entries,omitempty" yaml:"entries,omitempty"`
	Decision     BootDecision  `json:"decision" yaml:"decision"`
	Fatal        string        `json:"fatal,omitempty" yaml:"fatal,omitempty"`
	Measurements *PCRValues    `json:"measurements,omitempty" yaml:"measurements,omitempty"`
	ExitCode     int           `json:"exitCode" yaml:"exitCode"`
}
