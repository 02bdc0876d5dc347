package translate_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	akitavm "github.com/sarchlab/akita/v4/mem/vm"
	"github.com/sarchlab/chmemsim/translate"
)

func TestTranslate(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Translate Suite")
}

var _ = Describe("VPNToPFN", func() {
	It("maps vpn 0 for core 0 to pfn 0", func() {
		Expect(translate.VPNToPFN(0, akitavm.PID(0))).To(Equal(uint64(0)))
	})

	It("maps vpn 0 for core 1 to (1<<21)", func() {
		Expect(translate.VPNToPFN(0, akitavm.PID(1))).To(Equal(uint64(1 << 21)))
	})
})

var _ = Describe("Translate", func() {
	It("gives the same virtual line address distinct physical addresses per core", func() {
		p0 := translate.Translate(0, akitavm.PID(0))
		p1 := translate.Translate(0, akitavm.PID(1))
		Expect(p0).NotTo(Equal(p1))
	})

	It("preserves the page offset", func() {
		addr := uint64(0x1000 + 0x123)
		phys := translate.Translate(addr, akitavm.PID(0))
		Expect(phys & 0xFFF).To(Equal(uint64(0x123)))
	})
})
