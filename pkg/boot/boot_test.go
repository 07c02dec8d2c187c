package boot

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/kairos-io/go-bootsum/pkg/types"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Boot test Suite")
}

var _ = Describe("Boot tests", func() {
	Describe("Machine", func() {
		var machine *Machine

		BeforeEach(func() {
			machine = NewMachine()
			Expect(machine.State()).To(Equal(StateInit))
		})
		It("Proceeds on a clean run with a target", func() {
			Expect(machine.BeginVerification()).To(Succeed())
			decision, err := machine.Decide(types.RunSummary{Processed: 3, Total: 3}, true, false)
			Expect(err).ToNot(HaveOccurred())
			Expect(decision).To(Equal(types.DecisionProceed))
			Expect(machine.State()).To(Equal(StateDecided))
		})
		It("Reports a missing chain target regardless of the outcome", func() {
			Expect(machine.BeginVerification()).To(Succeed())
			decision, err := machine.Decide(types.RunSummary{Processed: 3, Total: 3}, false, false)
			Expect(err).ToNot(HaveOccurred())
			Expect(decision).To(Equal(types.DecisionNoChainTarget))
		})
		It("Prompts on failures in interactive mode", func() {
			Expect(machine.BeginVerification()).To(Succeed())
			decision, err := machine.Decide(types.RunSummary{Processed: 3, Failed: 1, Total: 3}, true, false)
			Expect(err).ToNot(HaveOccurred())
			Expect(decision).To(Equal(types.DecisionPrompt))
		})
		It("Prompts on a cancelled run even without failures", func() {
			Expect(machine.BeginVerification()).To(Succeed())
			decision, err := machine.Decide(types.RunSummary{Processed: 1, Total: 3, Cancelled: true}, true, false)
			Expect(err).ToNot(HaveOccurred())
			Expect(decision).To(Equal(types.DecisionPrompt))
		})
		It("Refuses instead of prompting in test mode", func() {
			Expect(machine.BeginVerification()).To(Succeed())
			decision, err := machine.Decide(types.RunSummary{Processed: 3, Failed: 1, Total: 3}, true, true)
			Expect(err).ToNot(HaveOccurred())
			Expect(decision).To(Equal(types.DecisionRefuse))
		})
		It("Resolves an accepted prompt to proceed", func() {
			Expect(machine.BeginVerification()).To(Succeed())
			_, err := machine.Decide(types.RunSummary{Failed: 1, Processed: 1, Total: 1}, true, false)
			Expect(err).ToNot(HaveOccurred())
			decision, err := machine.ResolvePrompt(true)
			Expect(err).ToNot(HaveOccurred())
			Expect(decision).To(Equal(types.DecisionProceed))
			Expect(machine.Decision()).To(Equal(types.DecisionProceed))
		})
		It("Resolves a declined prompt to refuse", func() {
			Expect(machine.BeginVerification()).To(Succeed())
			_, err := machine.Decide(types.RunSummary{Failed: 1, Processed: 1, Total: 1}, true, false)
			Expect(err).ToNot(HaveOccurred())
			decision, err := machine.ResolvePrompt(false)
			Expect(err).ToNot(HaveOccurred())
			Expect(decision).To(Equal(types.DecisionRefuse))
		})
		It("Rejects deciding before verification started", func() {
			_, err := machine.Decide(types.RunSummary{}, true, false)
			Expect(err).To(HaveOccurred())
		})
		It("Rejects starting verification twice", func() {
			Expect(machine.BeginVerification()).To(Succeed())
			Expect(machine.BeginVerification()).ToNot(Succeed())
		})
		It("Rejects resolving a prompt that was never raised", func() {
			Expect(machine.BeginVerification()).To(Succeed())
			_, err := machine.Decide(types.RunSummary{Processed: 1, Total: 1}, true, false)
			Expect(err).ToNot(HaveOccurred())
			_, err = machine.ResolvePrompt(true)
			Expect(err).To(HaveOccurred())
		})
		It("Terminates in the exited state", func() {
			machine.Exit()
			Expect(machine.State()).To(Equal(StateExited))
		})
	})
	Describe("LoaderName", func() {
		It("Builds the conventional loader path", func() {
			Expect(LoaderName("x64")).To(Equal("efi/boot/bootx64_original.efi"))
			Expect(LoaderName("aa64")).To(Equal("efi/boot/bootaa64_original.efi"))
		})
	})
	Describe("ResolveLoader", func() {
		It("Finds the loader in its exact casing", func() {
			vol := fstest.MapFS{
				"efi/boot/bootx64_original.efi": &fstest.MapFile{Data: []byte("loader")},
			}
			resolved, err := ResolveLoader(vol, "x64")
			Expect(err).ToNot(HaveOccurred())
			Expect(resolved).To(Equal("efi/boot/bootx64_original.efi"))
		})
		It("Matches each path element case-insensitively", func() {
			vol := fstest.MapFS{
				"EFI/Boot/BOOTX64_ORIGINAL.EFI": &fstest.MapFile{Data: []byte("loader")},
			}
			resolved, err := ResolveLoader(vol, "x64")
			Expect(err).ToNot(HaveOccurred())
			Expect(resolved).To(Equal("EFI/Boot/BOOTX64_ORIGINAL.EFI"))
		})
		It("Reports a missing loader", func() {
			vol := fstest.MapFS{
				"efi/boot/bootx64.efi": &fstest.MapFile{Data: []byte("not the original")},
			}
			_, err := ResolveLoader(vol, "x64")
			Expect(err).To(HaveOccurred())
		})
		It("Reports a volume without the loader directory", func() {
			_, err := ResolveLoader(fstest.MapFS{"vmlinuz": &fstest.MapFile{}}, "x64")
			Expect(err).To(HaveOccurred())
		})
	})
	Describe("ExecStarter", func() {
		var tmpDir string
		var err error

		BeforeEach(func() {
			tmpDir, err = os.MkdirTemp("", "")
			Expect(err).ToNot(HaveOccurred())
		})
		AfterEach(func() {
			err := os.RemoveAll(tmpDir)
			Expect(err).ToNot(HaveOccurred())
		})
		It("Starts the loader and returns its exit code", func() {
			loader := filepath.Join(tmpDir, "loader.sh")
			err = os.WriteFile(loader, []byte("#!/bin/sh\nexit 7\n"), 0o755)
			Expect(err).ToNot(HaveOccurred())

			code, err := ExecStarter{Root: tmpDir}.Start("loader.sh")
			Expect(err).ToNot(HaveOccurred())
			Expect(code).To(Equal(7))
		})
		It("Returns zero for a loader that exits cleanly", func() {
			loader := filepath.Join(tmpDir, "loader.sh")
			err = os.WriteFile(loader, []byte("#!/bin/sh\nexit 0\n"), 0o755)
			Expect(err).ToNot(HaveOccurred())

			code, err := ExecStarter{Root: tmpDir}.Start("loader.sh")
			Expect(err).ToNot(HaveOccurred())
			Expect(code).To(Equal(0))
		})
		It("Fails when the loader does not exist", func() {
			_, err := ExecStarter{Root: tmpDir}.Start("missing.efi")
			Expect(err).To(HaveOccurred())
		})
		It("Fails when the loader is a directory", func() {
			err = os.Mkdir(filepath.Join(tmpDir, "loader.efi"), 0o755)
			Expect(err).ToNot(HaveOccurred())
			_, err := ExecStarter{Root: tmpDir}.Start("loader.efi")
			Expect(err).To(HaveOccurred())
		})
	})
})
