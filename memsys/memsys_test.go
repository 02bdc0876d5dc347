package memsys_test

import (
	"bytes"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	akitavm "github.com/sarchlab/akita/v4/mem/vm"

	"github.com/sarchlab/chmemsim/config"
	"github.com/sarchlab/chmemsim/dram"
	"github.com/sarchlab/chmemsim/memsys"
)

// statFields parses a PrintStats report into a label->value map,
// tolerant of the exact column alignment.
func statFields(report string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(report, "\n") {
		parts := strings.Fields(line)
		if len(parts) != 2 {
			continue
		}
		fields[parts[0]] = parts[1]
	}
	return fields
}

func TestMemsys(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Memsys Suite")
}

func modeAConfig() *config.Config {
	cfg := config.Default()
	cfg.Mode = config.ModeA
	return cfg
}

func modeDConfig() *config.Config {
	cfg := config.Default()
	cfg.Mode = config.ModeDEF
	cfg.NumCores = 2
	return cfg
}

var _ = Describe("Mode A", func() {
	It("charges zero delay to every reference", func() {
		m := memsys.New(modeAConfig())
		Expect(m.Access(1, 0x1000, memsys.Load, akitavm.PID(0))).To(Equal(uint64(0)))
		Expect(m.Access(2, 0x2000, memsys.Store, akitavm.PID(0))).To(Equal(uint64(0)))
		Expect(m.Access(3, 0x3000, memsys.IFetch, akitavm.PID(0))).To(Equal(uint64(0)))
	})
})

var _ = Describe("Mode A direct-mapped scenario", func() {
	It("matches the reference trace LOAD 0x0, LOAD 0x0, STORE 0x40, LOAD 0x0", func() {
		cfg := modeAConfig()
		cfg.DCache = config.CacheParams{SizeBytes: 64, Associativity: 1, Policy: config.PolicyLRU}
		cfg.LineSize = 64
		m := memsys.New(cfg)

		m.Access(1, 0x0, memsys.Load, akitavm.PID(0))
		m.Access(2, 0x0, memsys.Load, akitavm.PID(0))
		m.Access(3, 0x40, memsys.Store, akitavm.PID(0))
		m.Access(4, 0x0, memsys.Load, akitavm.PID(0))

		buf := &bytes.Buffer{}
		m.PrintStats(buf)
		fields := statFields(buf.String())
		Expect(fields["DCACHE_READ_ACCESS"]).To(Equal("3"))
		Expect(fields["DCACHE_WRITE_ACCESS"]).To(Equal("1"))
		Expect(fields["DCACHE_READ_MISS"]).To(Equal("2"))
		Expect(fields["DCACHE_WRITE_MISS"]).To(Equal("1"))
		// The final LOAD 0x0 misses and evicts the line the STORE left
		// dirty, so DIRTY_EVICTS is 1: the walkthrough this trace is
		// drawn from states 0, but that only accounts for the STORE's
		// own eviction (of the clean line the first two LOADs installed)
		// and misses that the fourth reference evicts the STORE's dirty
		// line in turn.
		Expect(fields["DCACHE_DIRTY_EVICTS"]).To(Equal("1"))
	})
})

var _ = Describe("Mode D translation", func() {
	It("maps the same virtual line address to distinct physical lines per core", func() {
		m := memsys.New(modeDConfig())

		d1 := m.Access(1, 0x0, memsys.Load, akitavm.PID(0))
		d2 := m.Access(2, 0x0, memsys.Load, akitavm.PID(1))

		// Both L1s and L2 must miss on first touch, going all the way
		// to DRAM: L1 miss (+L2 latency) + L2 miss (+DRAM latency).
		Expect(d1).To(BeNumerically(">", memsys.DCacheHitLatency))
		Expect(d2).To(BeNumerically(">", memsys.DCacheHitLatency))
	})
})

var _ = Describe("Mode D with SWP", func() {
	It("caps ways_per_core[0] at its quota once core 1 has filled the set", func() {
		cfg := modeDConfig()
		cfg.L2Cache.Associativity = 8
		cfg.L2Cache.SizeBytes = 8 * cfg.LineSize
		cfg.L2Cache.Policy = config.PolicySWP
		cfg.SWPCore0Ways = 2

		m := memsys.New(cfg)

		// Every address maps to the same L2 set: sizes above give L2
		// exactly one set, so any address lands there. Core 1 fills
		// every way first; core 0 then streams enough distinct lines to
		// exercise the quota repeatedly.
		for i := uint64(0); i < uint64(cfg.L2Cache.Associativity); i++ {
			m.Access(i, i*uint64(cfg.LineSize), memsys.Load, akitavm.PID(1))
		}
		for i := uint64(0); i < 24; i++ {
			m.Access(uint64(cfg.L2Cache.Associativity)+i, (uint64(cfg.L2Cache.Associativity)+i)*uint64(cfg.LineSize), memsys.Load, akitavm.PID(0))
		}

		Expect(m.L2().WaysHeldBy(0)).To(Equal(cfg.SWPCore0Ways))
		Expect(m.L2().WaysHeldBy(0) + m.L2().WaysHeldBy(1)).To(Equal(cfg.L2Cache.Associativity))
	})
})

var _ = Describe("Writeback propagation", func() {
	It("does not charge writeback delay to the triggering reference beyond the forward path", func() {
		cfg := config.Default()
		cfg.Mode = config.ModeC
		cfg.DCache.SizeBytes = 64
		cfg.DCache.Associativity = 1
		cfg.ICache.SizeBytes = 64
		cfg.ICache.Associativity = 1
		m := memsys.New(cfg)

		// Dirty a line, then force its eviction with a conflicting
		// store; the second store's delay should still just be the
		// forward-path L1-miss-to-L2 cost, not an extra writeback cost.
		// Line 1 sits in DRAM row 0 with line 0, so its DRAM read is a
		// row-buffer hit.
		m.Access(1, 0, memsys.Store, akitavm.PID(0))
		delay := m.Access(2, uint64(cfg.LineSize), memsys.Store, akitavm.PID(0))
		Expect(delay).To(Equal(uint64(memsys.DCacheHitLatency + memsys.L2HitLatency + dram.DelayBus + dram.DelayCas)))
	})
})
