// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package measure emulates the PCR extensions a measured launch of the
// verification run would produce.
//
// For every supported bank the manifest content is extended first, then a
// phase string naming the run outcome. The resulting values let a CI
// harness (or a later attestation step) check that the gate saw exactly
// this manifest and reached exactly this verdict. No TPM hardware is
// touched; this mirrors what systemd-measure style tooling precomputes.
package measure

import (
	"encoding/hex"
	"log/slog"

	gotpm "github.com/google/go-tpm/tpm2"

	"github.com/kairos-io/go-bootsum/pkg/constants"
	"github.com/kairos-io/go-bootsum/pkg/tpm2"
	"github.com/kairos-io/go-bootsum/pkg/types"
)

// Phase strings extended after the manifest content, naming the verdict.
const (
	PhaseVerified  = "bootsum:verified"
	PhaseTainted   = "bootsum:tainted"
	PhaseCancelled = "bootsum:cancelled"
)

// Phase returns the outcome phase string for a run summary.
func Phase(summary types.RunSummary) string {
	switch {
	case summary.Cancelled:
		return PhaseCancelled
	case summary.Failed > 0:
		return PhaseTainted
	default:
		return PhaseVerified
	}
}

// Run computes the emulated PCR values for a verification run over the
// given raw manifest content.
func Run(manifestRaw []byte, summary types.RunSummary) (*types.PCRValues, error) {
	// Validates the PCR index against the minimum TPM allocation.
	if _, err := tpm2.CreateSelector([]int{constants.VerifyPCR}); err != nil {
		return nil, err
	}

	data := &types.PCRValues{PCR: constants.VerifyPCR}
	phase := Phase(summary)

	for _, bank := range []struct {
		alg    gotpm.TPMAlgID
		setter *string
	}{
		{alg: gotpm.TPMAlgSHA1, setter: &data.SHA1},
		{alg: gotpm.TPMAlgSHA256, setter: &data.SHA256},
		{alg: gotpm.TPMAlgSHA384, setter: &data.SHA384},
		{alg: gotpm.TPMAlgSHA512, setter: &data.SHA512},
	} {
		hashAlg, err := bank.alg.Hash()
		if err != nil {
			return nil, err
		}

		pcr := tpm2.NewDigest(hashAlg)
		pcr.Extend(manifestRaw)
		pcr.Extend([]byte(phase))

		value := hex.EncodeToString(pcr.Hash())
		slog.Debug("Measured verification run", "alg", hashAlg.String(), "phase", phase, "value", value)
		*bank.setter = value
	}

	return data, nil
}
