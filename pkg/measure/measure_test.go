package measure

import (
	"crypto"
	"encoding/hex"
	"testing"

	"github.com/kairos-io/go-bootsum/pkg/constants"
	"github.com/kairos-io/go-bootsum/pkg/tpm2"
	"github.com/kairos-io/go-bootsum/pkg/types"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Measure test Suite")
}

var _ = Describe("Measure tests", func() {
	manifestRaw := []byte("d41d8cd98f00b204e9800998ecf8427e  vmlinuz\n")

	Describe("Phase", func() {
		It("Names a clean run verified", func() {
			Expect(Phase(types.RunSummary{Processed: 3, Total: 3})).To(Equal(PhaseVerified))
		})
		It("Names a run with failures tainted", func() {
			Expect(Phase(types.RunSummary{Processed: 3, Failed: 1, Total: 3})).To(Equal(PhaseTainted))
		})
		It("Names a cancelled run cancelled, even with failures", func() {
			Expect(Phase(types.RunSummary{Processed: 2, Failed: 1, Total: 3, Cancelled: true})).To(Equal(PhaseCancelled))
		})
	})
	Describe("Run", func() {
		It("Computes a value for every bank", func() {
			values, err := Run(manifestRaw, types.RunSummary{Processed: 1, Total: 1})
			Expect(err).ToNot(HaveOccurred())
			Expect(values.PCR).To(Equal(constants.VerifyPCR))
			Expect(values.SHA1).To(HaveLen(40))
			Expect(values.SHA256).To(HaveLen(64))
			Expect(values.SHA384).To(HaveLen(96))
			Expect(values.SHA512).To(HaveLen(128))
		})
		It("Extends the manifest then the outcome phase", func() {
			pcr := tpm2.NewDigest(crypto.SHA256)
			pcr.Extend(manifestRaw)
			pcr.Extend([]byte(PhaseVerified))
			expected := hex.EncodeToString(pcr.Hash())

			values, err := Run(manifestRaw, types.RunSummary{Processed: 1, Total: 1})
			Expect(err).ToNot(HaveOccurred())
			Expect(values.SHA256).To(Equal(expected))
		})
		It("Is deterministic for identical runs", func() {
			summary := types.RunSummary{Processed: 1, Total: 1}
			a, err := Run(manifestRaw, summary)
			Expect(err).ToNot(HaveOccurred())
			b, err := Run(manifestRaw, summary)
			Expect(err).ToNot(HaveOccurred())
			Expect(a).To(Equal(b))
		})
		It("Separates verdicts by phase", func() {
			clean, err := Run(manifestRaw, types.RunSummary{Processed: 1, Total: 1})
			Expect(err).ToNot(HaveOccurred())
			tainted, err := Run(manifestRaw, types.RunSummary{Processed: 1, Failed: 1, Total: 1})
			Expect(err).ToNot(HaveOccurred())
			Expect(clean.SHA256).ToNot(Equal(tainted.SHA256))
		})
		It("Separates different manifest content", func() {
			summary := types.RunSummary{Processed: 1, Total: 1}
			a, err := Run(manifestRaw, summary)
			Expect(err).ToNot(HaveOccurred())
			b, err := Run([]byte("other content"), summary)
			Expect(err).ToNot(HaveOccurred())
			Expect(a.SHA256).ToNot(Equal(b.SHA256))
		})
	})
})
