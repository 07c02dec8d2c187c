// Package system answers the platform questions the gate needs: whether it
// is running under the automated test harness, what hardware it is on, and
// how to power the machine off.
package system

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kairos-io/go-bootsum/pkg/constants"
	"golang.org/x/sys/unix"
)

// DMIPath is where the firmware-provided DMI strings are exposed. A
// variable so tests can point it at a fixture directory.
var DMIPath = "/sys/class/dmi/id"

// Info is the informational hardware summary displayed at startup.
type Info struct {
	Vendor      string
	ProductName string
	BiosVersion string
	BiosDate    string
}

func dmiString(name string) string {
	data, err := os.ReadFile(filepath.Join(DMIPath, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// GetInfo reads the DMI identification strings. Missing entries are
// returned empty; this is display-only data.
func GetInfo() Info {
	return Info{
		Vendor:      dmiString("sys_vendor"),
		ProductName: dmiString("product_name"),
		BiosVersion: dmiString("bios_version"),
		BiosDate:    dmiString("bios_date"),
	}
}

// IsTestSystem detects the automated test harness by the DMI system vendor
// qemu is configured with during CI runs. Test mode is no less secure than
// regular mode, it only changes onscreen output and exit behavior.
func IsTestSystem() bool {
	return dmiString("sys_vendor") == constants.TestingDMIVendor
}

// PowerOff requests an immediate platform power-off. Used in test mode
// where waiting for a keystroke would hang the harness.
func PowerOff() error {
	slog.Info("Requesting system power off")
	return unix.Reboot(unix.LINUX_REBOOT_CMD_POWER_OFF)
}
