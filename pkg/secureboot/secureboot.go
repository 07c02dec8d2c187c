// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package secureboot queries the firmware's Secure Boot state. The result
// is informational only: it is displayed and recorded in the run report but
// never gates the boot decision.
package secureboot

import (
	"os"

	"github.com/foxboron/go-uefi/efi"
)

// Status of the Secure Boot firmware variables.
type Status int

const (
	StatusUnknown Status = iota
	StatusDisabled
	StatusEnabled
	StatusSetupMode
)

func (s Status) String() string {
	switch s {
	case StatusDisabled:
		return "Disabled"
	case StatusEnabled:
		return "Enabled"
	case StatusSetupMode:
		return "Setup"
	default:
		return "Unknown"
	}
}

// GetStatus reads the SecureBoot and SetupMode variables via efivarfs.
// Non-UEFI systems (no efivarfs) report StatusUnknown.
func GetStatus() Status {
	if _, err := os.Stat("/sys/firmware/efi"); err != nil {
		return StatusUnknown
	}
	if efi.GetSetupMode() {
		return StatusSetupMode
	}
	if efi.GetSecureBoot() {
		return StatusEnabled
	}
	return StatusDisabled
}
