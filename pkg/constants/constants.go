package constants

// Section is kept small on purpose: everything the gate hard-codes about the
// boot volume layout and the manifest format lives here.
const (
	Name = "bootsum"

	// ManifestName is the well-known checksum list at the volume root.
	ManifestName = "md5sum.txt"

	// DigestSize is the size of an MD5 digest.
	DigestSize = 16
	// HexDigestSize is the size of the hexascii representation of a digest.
	HexDigestSize = DigestSize * 2

	// PathMax bounds the byte length of a relative path in the manifest.
	PathMax = 255

	// ManifestSizeMin is the smallest manifest we accept: one digest plus
	// a separator and a single character path.
	ManifestSizeMin = HexDigestSize + 2
	// ManifestSizeMax bounds the manifest file size.
	ManifestSizeMax = 64 * 1024 * 1024
	// ManifestLinesMax bounds the number of lines in the manifest.
	ManifestLinesMax = 100000

	// LoaderDir is where the chain-load target is searched for.
	LoaderDir = "efi/boot"
	// LoaderPattern names the original boot loader, keyed by arch tag.
	LoaderPattern = "boot%s_original.efi"

	// TestingDMIVendor is the DMI system vendor qemu advertises when the
	// gate runs under the CI harness.
	TestingDMIVendor = "GitHub Actions Test"

	// VerifyPCR is the debug PCR the measured-verification feature
	// emulates extensions against.
	VerifyPCR = 16
)

// Exit codes of the bootsum process.
const (
	ExitOK = 0
	// ExitVerifyFailed is returned when at least one manifest entry failed
	// verification, regardless of how the boot decision went afterwards.
	ExitVerifyFailed = 1
	// ExitFatal covers volume access and manifest parse failures.
	ExitFatal = 2
	// ExitRefused is returned when the boot was refused without any entry
	// having failed (prompt declined after a cancelled run).
	ExitRefused = 3
	// ExitChainLoadFailed is returned when the resolved loader could not
	// be started.
	ExitChainLoadFailed = 4
)

// archTags maps GOARCH values to the UEFI-style arch tag used in loader
// file names.
var archTags = map[string]string{
	"amd64":   "x64",
	"386":     "ia32",
	"arm64":   "aa64",
	"arm":     "arm",
	"riscv64": "riscv64",
}

// ArchTag returns the loader arch tag for a GOARCH value, or "" when the
// architecture has no conventional loader name.
func ArchTag(goarch string) string {
	return archTags[goarch]
}
