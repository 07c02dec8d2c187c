// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package boot

import (
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/kairos-io/go-bootsum/pkg/constants"
)

// LoaderName returns the conventional relative path of the original boot
// loader for an arch tag, e.g. "efi/boot/bootx64_original.efi".
func LoaderName(archTag string) string {
	return constants.LoaderDir + "/" + fmt.Sprintf(constants.LoaderPattern, archTag)
}

// ResolveLoader looks up the chain-load target on the volume, matching each
// path element case-insensitively as boot volumes are typically FAT. It
// returns the path in its on-volume casing, or fs.ErrNotExist.
func ResolveLoader(vol fs.FS, archTag string) (string, error) {
	resolved := "."
	for _, element := range strings.Split(LoaderName(archTag), "/") {
		entries, err := fs.ReadDir(vol, resolved)
		if err != nil {
			return "", err
		}
		found := ""
		for _, e := range entries {
			if strings.EqualFold(e.Name(), element) {
				found = e.Name()
				break
			}
		}
		if found == "" {
			return "", fmt.Errorf("loader element %q: %w", element, fs.ErrNotExist)
		}
		if resolved == "." {
			resolved = found
		} else {
			resolved += "/" + found
		}
	}
	return resolved, nil
}

// Starter hands control to a resolved chain-load target.
type Starter interface {
	// Start launches the loader at the given volume-relative path. A
	// non-nil error means the loader could not be started at all; once
	// started, its own exit status is returned instead.
	Start(loader string) (int, error)
}

// ExecStarter starts the loader as a process rooted at the volume's mount
// point, with the gate's stdio attached.
type ExecStarter struct {
	// Root is the OS path the volume is mounted at.
	Root string
}

func (s ExecStarter) Start(loader string) (int, error) {
	target := filepath.Join(s.Root, filepath.FromSlash(loader))

	info, err := os.Stat(target)
	if err != nil {
		return 0, fmt.Errorf("unable to load %s: %w", target, err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("unable to load %s: is a directory", target)
	}

	cmd := exec.Command(target)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("unable to start %s: %w", target, err)
	}
	if err := cmd.Wait(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), nil
		}
		return 0, err
	}
	return 0, nil
}
