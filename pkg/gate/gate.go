// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package gate wires the whole integrity gate together: parse the manifest,
// verify every entry, decide, and chain into the original loader.
//
// A Runner carries every capability explicitly; there are no ambient
// globals. The manifest is parsed once, stays immutable, and its backing
// storage is owned by Run from parse to the single exit point.
package gate

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kairos-io/go-bootsum/internal/common"
	"github.com/kairos-io/go-bootsum/pkg/boot"
	"github.com/kairos-io/go-bootsum/pkg/console"
	"github.com/kairos-io/go-bootsum/pkg/constants"
	"github.com/kairos-io/go-bootsum/pkg/manifest"
	"github.com/kairos-io/go-bootsum/pkg/measure"
	"github.com/kairos-io/go-bootsum/pkg/secureboot"
	"github.com/kairos-io/go-bootsum/pkg/system"
	"github.com/kairos-io/go-bootsum/pkg/types"
	"github.com/kairos-io/go-bootsum/pkg/verify"
)

// countdownDuration is how long the automatic proceed countdown runs.
const countdownDuration = 3 * time.Second

// Runner is the integrity gate. Construct it once at process start with
// every collaborator filled in; Run drives a full boot decision.
type Runner struct {
	// Volume is the boot volume being verified.
	Volume fs.FS
	// ManifestName is the well-known manifest path at the volume root.
	ManifestName string
	// ArchTag selects the chain-load target file name. Empty means no
	// target lookup at all.
	ArchTag string
	// TestMode suppresses prompts and interactive waits.
	TestMode bool
	// Measure enables emulated PCR measurements of the run.
	Measure bool
	// ReportPath, when set, receives the machine-readable run report.
	ReportPath string
	// ReportFormat is "json" or "yaml".
	ReportFormat string

	Console  *console.Console
	Keyboard console.Input
	// Starter launches the resolved chain-load target.
	Starter boot.Starter
	// PowerOff requests an immediate platform power off (test mode exit).
	PowerOff func() error
	// SecureBootStatus queries the firmware Secure Boot state.
	SecureBootStatus func() secureboot.Status
	// SystemInfo queries the DMI identification strings.
	SystemInfo func() system.Info
}

// Run executes the gate end to end and returns the process exit code.
func (r *Runner) Run() int {
	machine := boot.NewMachine()
	report := &types.Report{
		Version: common.GetVersion(),
		Arch:    r.ArchTag,
	}

	code := r.run(machine, report)

	report.ExitCode = code
	machine.Exit()
	r.writeReport(report)

	// Terminal behavior: the harness powers off instead of waiting for
	// a keystroke that will never come.
	if r.TestMode {
		if r.PowerOff != nil {
			if err := r.PowerOff(); err != nil {
				slog.Error("Power off request failed", "error", err)
			}
		}
	} else if code != constants.ExitOK {
		r.Console.WaitForKey(r.Keyboard, "[Press any key to exit]")
	}
	return code
}

func (r *Runner) run(machine *boot.Machine, report *types.Report) int {
	c := r.Console

	c.Banner(common.GetVersion(), r.ArchTag)
	r.displaySystemInfo(c, report)

	// The chain-load target is resolved exactly once, before verification,
	// and does not depend on its outcome.
	target := r.resolveTarget()
	report.ChainTarget = target

	m, err := manifest.Load(r.Volume, r.ManifestName)
	if err != nil {
		c.Fail("%v", err)
		report.Fatal = err.Error()
		return constants.ExitFatal
	}
	report.TotalBytes = m.TotalBytes

	if err := machine.BeginVerification(); err != nil {
		report.Fatal = err.Error()
		return constants.ExitFatal
	}

	c.Test("TotalBytes = 0x%X", m.TotalBytes)
	c.StartProgress("Media verification", len(m.Entries))
	if !r.TestMode {
		c.PrintCentered("[Press any key to cancel]", c.Rows-2)
	}

	engine := &verify.Engine{
		Volume:          r.Volume,
		Progress:        c.Progress,
		OnFailure:       c.FailedEntry,
		CancelRequested: r.cancelRequested,
	}
	summary, results, err := engine.Run(m)
	c.FinishProgress()
	if err != nil {
		c.Fail("%v", err)
		report.Fatal = err.Error()
		return constants.ExitFatal
	}
	report.Summary = summary
	report.Entries = results
	c.Summary(summary)

	if r.Measure {
		values, err := measure.Run(m.Raw, summary)
		if err != nil {
			c.Warn("Unable to compute measurements: %v", err)
		} else {
			report.Measurements = values
		}
	}

	decision, err := machine.Decide(summary, target != "", r.TestMode)
	if err != nil {
		report.Fatal = err.Error()
		return constants.ExitFatal
	}

	prompted := false
	if decision == types.DecisionPrompt {
		accepted := c.PromptYesNo(r.Keyboard, "Proceed with boot?")
		decision, _ = machine.ResolvePrompt(accepted)
		prompted = true
	}
	report.Decision = decision

	started, loaderCode, chainErr := r.chainLoad(decision, target, prompted)
	if chainErr != nil {
		c.Fail("Could not launch original bootloader: %v", chainErr)
	}

	return exitCode(summary, decision, started, loaderCode, chainErr)
}

func (r *Runner) displaySystemInfo(c *console.Console, report *types.Report) {
	if r.SystemInfo != nil {
		info := r.SystemInfo()
		if info.Vendor != "" {
			c.Info("%s %s", info.Vendor, info.ProductName)
		}
		if info.BiosVersion != "" {
			c.Info("Firmware: %s (%s)", info.BiosVersion, info.BiosDate)
		}
	}
	if r.SecureBootStatus != nil {
		status := r.SecureBootStatus()
		c.Info("Secure Boot status: %s", status)
		report.SecureBoot = status.String()
	}
}

func (r *Runner) resolveTarget() string {
	if r.ArchTag == "" {
		return ""
	}
	target, err := boot.ResolveLoader(r.Volume, r.ArchTag)
	if err != nil {
		slog.Debug("No chain-load target", "loader", boot.LoaderName(r.ArchTag), "error", err)
		return ""
	}
	slog.Debug("Resolved chain-load target", "target", target)
	return target
}

func (r *Runner) cancelRequested() bool {
	if r.Keyboard == nil {
		return false
	}
	_, ok := r.Keyboard.Poll()
	return ok
}

// chainLoad starts the loader when the decision allows it. The countdown
// only runs on a fully automatic proceed; after an explicit prompt answer
// there is nothing left to wait for.
func (r *Runner) chainLoad(decision types.BootDecision, target string, prompted bool) (bool, int, error) {
	if decision != types.DecisionProceed {
		return false, 0, nil
	}
	if !prompted {
		r.Console.Countdown(r.Keyboard, "Proceeding in", countdownDuration)
	}
	r.Console.Clear()
	code, err := r.Starter.Start(target)
	if err != nil {
		return false, 0, err
	}
	return true, code, nil
}

// exitCode maps the run outcome to the process exit status. Success needs
// zero failures and either no chain target or a loader that actually
// started; a started loader's own exit status propagates.
func exitCode(summary types.RunSummary, decision types.BootDecision, started bool, loaderCode int, chainErr error) int {
	switch {
	case summary.Failed > 0:
		return constants.ExitVerifyFailed
	case chainErr != nil:
		return constants.ExitChainLoadFailed
	case decision == types.DecisionRefuse:
		return constants.ExitRefused
	case started:
		return loaderCode
	default:
		return constants.ExitOK
	}
}

func (r *Runner) writeReport(report *types.Report) {
	if r.ReportPath == "" {
		return
	}

	var data []byte
	var err error
	switch r.ReportFormat {
	case "yaml":
		data, err = yaml.Marshal(report)
	default:
		data, err = json.MarshalIndent(report, "", "  ")
	}
	if err != nil {
		slog.Warn("Unable to marshal run report", "error", err)
		return
	}
	if err := os.WriteFile(r.ReportPath, data, 0o644); err != nil {
		slog.Warn("Unable to write run report", "path", r.ReportPath, "error", err)
		return
	}
	slog.Info(fmt.Sprintf("Run report written to %s", r.ReportPath))
}
