// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package tpm2 provides TPM2.0 related functionality helpers.
package tpm2

import (
	"crypto"
	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"fmt"
)

// Digest emulates a PCR register for a given hash algorithm: it starts out
// zeroed and each Extend folds new data in the same way the TPM would.
type Digest struct {
	alg   crypto.Hash
	value []byte
}

// NewDigest returns a zeroed PCR emulation for the algorithm.
func NewDigest(alg crypto.Hash) *Digest {
	return &Digest{
		alg:   alg,
		value: make([]byte, alg.Size()),
	}
}

// Extend replaces the PCR value with H(value || H(data)).
func (d *Digest) Extend(data []byte) {
	event := d.alg.New()
	event.Write(data)

	h := d.alg.New()
	h.Write(d.value)
	h.Write(event.Sum(nil))
	d.value = h.Sum(nil)
}

// Hash returns the current PCR value.
func (d *Digest) Hash() []byte {
	out := make([]byte, len(d.value))
	copy(out, d.value)
	return out
}

// CreateSelector converts PCR numbers into a bitmask.
func CreateSelector(pcrs []int) ([]byte, error) {
	// From https://trustedcomputinggroup.org/resource/pc-client-platform-tpm-profile-ptp-specification/
	// A conformant TPM SHALL allow an allocation of a minimum of 24 PCRs, 0-23, within all allocated banks

	const sizeOfPCRSelect = 3

	mask := make([]byte, sizeOfPCRSelect)

	for _, n := range pcrs {
		if n >= 8*sizeOfPCRSelect {
			return nil, fmt.Errorf("PCR index %d is out of range (exceeds maximum value %d)", n, 8*sizeOfPCRSelect-1)
		}

		mask[n>>3] |= 1 << (n & 0x7)
	}

	return mask, nil
}
