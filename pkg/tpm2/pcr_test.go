package tpm2

import (
	"crypto"
	"crypto/sha256"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "TPM2 test Suite")
}

var _ = Describe("TPM2 tests", func() {
	Describe("Digest", func() {
		It("Starts out zeroed", func() {
			d := NewDigest(crypto.SHA256)
			Expect(d.Hash()).To(Equal(make([]byte, sha256.Size)))
		})
		It("Extends the way a PCR would", func() {
			data := []byte("measured content")
			event := sha256.Sum256(data)
			h := sha256.New()
			h.Write(make([]byte, sha256.Size))
			h.Write(event[:])
			expected := h.Sum(nil)

			d := NewDigest(crypto.SHA256)
			d.Extend(data)
			Expect(d.Hash()).To(Equal(expected))
		})
		It("Chains successive extensions", func() {
			first := sha256.Sum256([]byte("first"))
			h := sha256.New()
			h.Write(make([]byte, sha256.Size))
			h.Write(first[:])
			after := h.Sum(nil)

			second := sha256.Sum256([]byte("second"))
			h = sha256.New()
			h.Write(after)
			h.Write(second[:])
			expected := h.Sum(nil)

			d := NewDigest(crypto.SHA256)
			d.Extend([]byte("first"))
			d.Extend([]byte("second"))
			Expect(d.Hash()).To(Equal(expected))
		})
		It("Keeps returned values stable against later extensions", func() {
			d := NewDigest(crypto.SHA256)
			d.Extend([]byte("first"))
			snapshot := d.Hash()
			saved := append([]byte(nil), snapshot...)
			d.Extend([]byte("second"))
			Expect(snapshot).To(Equal(saved))
		})
		It("Sizes the value to the bank algorithm", func() {
			Expect(NewDigest(crypto.SHA1).Hash()).To(HaveLen(20))
			Expect(NewDigest(crypto.SHA384).Hash()).To(HaveLen(48))
			Expect(NewDigest(crypto.SHA512).Hash()).To(HaveLen(64))
		})
	})
	Describe("CreateSelector", func() {
		It("Builds the bitmask for selected PCRs", func() {
			mask, err := CreateSelector([]int{0, 7, 16})
			Expect(err).ToNot(HaveOccurred())
			Expect(mask).To(Equal([]byte{0x81, 0x00, 0x01}))
		})
		It("Builds an empty mask for no PCRs", func() {
			mask, err := CreateSelector(nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(mask).To(Equal([]byte{0x00, 0x00, 0x00}))
		})
		It("Rejects PCR indexes beyond the minimum allocation", func() {
			_, err := CreateSelector([]int{24})
			Expect(err).To(HaveOccurred())
		})
	})
})
