// Package memsys wires caches, DRAM and address translation together
// into one of the simulator's modes (A, B, C or DEF) and accumulates per-reference
// delay the way a driver replaying a trace would need.
package memsys

import (
	"fmt"
	"io"
	"math/rand"

	akitavm "github.com/sarchlab/akita/v4/mem/vm"

	"github.com/sarchlab/chmemsim/cache"
	"github.com/sarchlab/chmemsim/config"
	"github.com/sarchlab/chmemsim/dram"
	"github.com/sarchlab/chmemsim/translate"
)

// AccessType names the three kinds of reference a trace can carry.
type AccessType int

const (
	IFetch AccessType = iota
	Load
	Store
)

func (t AccessType) String() string {
	switch t {
	case IFetch:
		return "IFETCH"
	case Load:
		return "LOAD"
	case Store:
		return "STORE"
	default:
		return "UNKNOWN"
	}
}

// Fixed per-level hit latencies, in cycles.
const (
	ICacheHitLatency = 1
	DCacheHitLatency = 1
	L2HitLatency     = 10
)

// topology distinguishes the three cache-hierarchy shapes a Config
// maps down to; mode B and mode C share one, differing only in
// whether their DRAM uses fixed or timed latency.
type topology int

const (
	topologySingleL1 topology = iota // mode A
	topologySharedL1                 // modes B, C
	topologyPerCoreL1                // mode DEF
)

func topologyFor(m config.Mode) topology {
	switch m {
	case config.ModeA:
		return topologySingleL1
	case config.ModeB, config.ModeC:
		return topologySharedL1
	default:
		return topologyPerCoreL1
	}
}

// MemorySystem is the orchestrator: given a reference it drives L1,
// L2 and DRAM lookups, translation in the multicore modes, and
// writeback propagation, and returns the reference's total delay.
type MemorySystem struct {
	cfg      *config.Config
	topology topology
	lineSize int
	numCores int

	dcache      *cache.Cache
	icache      *cache.Cache
	dcachePer   []*cache.Cache
	icachePer   []*cache.Cache
	l2          *cache.Cache
	dram        *dram.DRAM

	statAccess [3]uint64
	statDelay  [3]uint64
}

// Option configures a MemorySystem at construction time.
type Option func(*MemorySystem)

// New builds a MemorySystem from cfg. It panics if cfg.Validate would
// have returned an error, since a malformed config is a configuration
// bug the caller must fix before simulating anything.
func New(cfg *config.Config, opts ...Option) *MemorySystem {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("memsys: invalid config: %v", err))
	}

	quotas := cache.NewQuotas(cfg.SWPCore0Ways)
	rng := rand.New(rand.NewSource(cfg.RandomSeed))

	m := &MemorySystem{
		cfg:      cfg,
		topology: topologyFor(cfg.Mode),
		lineSize: cfg.LineSize,
		numCores: 1,
	}

	buildCache := func(p config.CacheParams, label string) *cache.Cache {
		return cache.New(p.SizeBytes, p.Associativity, cfg.LineSize, policyOf(p.Policy),
			cache.WithQuotas(quotas), cache.WithRandom(rng), cache.WithLabel(label))
	}

	switch m.topology {
	case topologySingleL1:
		m.dcache = buildCache(cfg.DCache, "DCACHE")

	case topologySharedL1:
		m.icache = buildCache(cfg.ICache, "ICACHE")
		m.dcache = buildCache(cfg.DCache, "DCACHE")
		m.l2 = buildCache(cfg.L2Cache, "L2CACHE")
		if cfg.Mode == config.ModeB {
			m.dram = dram.NewFixedLatency()
		} else {
			m.dram = dram.New(dramPolicyOf(cfg.DRAMPolicy))
		}

	case topologyPerCoreL1:
		m.numCores = cfg.NumCores
		m.l2 = buildCache(cfg.L2Cache, "L2CACHE")
		m.dram = dram.New(dramPolicyOf(cfg.DRAMPolicy))
		for i := 0; i < cfg.NumCores; i++ {
			m.icachePer = append(m.icachePer, buildCache(cfg.ICache, fmt.Sprintf("ICACHE_%d", i)))
			m.dcachePer = append(m.dcachePer, buildCache(cfg.DCache, fmt.Sprintf("DCACHE_%d", i)))
		}
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func policyOf(p config.Policy) cache.Policy {
	switch p {
	case config.PolicyLRU:
		return cache.LRU
	case config.PolicyRandom:
		return cache.Random
	case config.PolicySWP:
		return cache.SWP
	case config.PolicyDWP:
		return cache.DWP
	default:
		panic(fmt.Sprintf("memsys: unknown policy %q", p))
	}
}

func dramPolicyOf(p config.DRAMPolicy) dram.Policy {
	switch p {
	case config.DRAMOpenPage:
		return dram.OpenPage
	case config.DRAMClosePage:
		return dram.ClosePage
	default:
		panic(fmt.Sprintf("memsys: unknown dram policy %q", p))
	}
}

// Access simulates one reference and returns its total delay in
// cycles. addr is a byte address; cycle is an opaque, monotonically
// nondecreasing timestamp supplied by the caller and used only for
// LRU stamping.
func (m *MemorySystem) Access(cycle, addr uint64, t AccessType, core akitavm.PID) uint64 {
	var delay uint64

	switch m.topology {
	case topologySingleL1:
		delay = m.accessModeA(cycle, addr, t, core)
	case topologySharedL1:
		delay = m.accessShared(cycle, addr, t, core)
	case topologyPerCoreL1:
		delay = m.accessPerCore(cycle, addr, t, core)
	}

	m.statAccess[t]++
	m.statDelay[t] += delay
	return delay
}

func (m *MemorySystem) accessModeA(cycle, addr uint64, t AccessType, core akitavm.PID) uint64 {
	if t == IFetch {
		return 0
	}
	lineAddr := addr / uint64(m.lineSize)
	if m.dcache.Access(cycle, lineAddr, t == Store, core) == cache.Miss {
		m.dcache.Install(cycle, lineAddr, t == Store, core)
	}
	return 0
}

func (m *MemorySystem) accessShared(cycle, addr uint64, t AccessType, core akitavm.PID) uint64 {
	lineAddr := addr / uint64(m.lineSize)
	return m.accessL1(cycle, m.l1For(t, 0), lineAddr, t, core)
}

func (m *MemorySystem) accessPerCore(cycle, addr uint64, t AccessType, core akitavm.PID) uint64 {
	physAddr := translate.Translate(addr, core)
	lineAddr := physAddr / uint64(m.lineSize)
	return m.accessL1(cycle, m.l1For(t, int(core)), lineAddr, t, core)
}

func (m *MemorySystem) l1For(t AccessType, coreIdx int) *cache.Cache {
	if m.topology == topologyPerCoreL1 {
		if t == IFetch {
			return m.icachePer[coreIdx]
		}
		return m.dcachePer[coreIdx]
	}
	if t == IFetch {
		return m.icache
	}
	return m.dcache
}

// accessL1 runs a reference through one L1 cache, falling through to
// L2 (and, transitively, DRAM) on a miss, and propagating a writeback
// for any dirty line the install displaces.
func (m *MemorySystem) accessL1(cycle uint64, l1 *cache.Cache, lineAddr uint64, t AccessType, core akitavm.PID) uint64 {
	isWrite := t == Store
	delay := uint64(DCacheHitLatency)
	if t == IFetch {
		delay = ICacheHitLatency
	}

	if l1.Access(cycle, lineAddr, isWrite, core) == cache.Hit {
		return delay
	}

	delay += m.l2Access(cycle, lineAddr, false, core)
	evicted := l1.Install(cycle, lineAddr, isWrite, core)
	if evicted.Valid && evicted.Dirty {
		evictedAddr := (evicted.Tag << l1.IndexBits()) | (lineAddr & l1.IndexMask())
		m.l2Access(cycle, evictedAddr, true, core)
	}

	return delay
}

// l2Access runs a reference through L2, falling through to DRAM on a
// miss and propagating any resulting writeback to DRAM. isWriteback
// marks an L1-eviction-induced access rather than a demand reference;
// it is passed to L2 as the write flag, so it counts as an L2 write,
// dirties the line on a hit and installs it dirty on a miss.
func (m *MemorySystem) l2Access(cycle, lineAddr uint64, isWriteback bool, core akitavm.PID) uint64 {
	delay := uint64(L2HitLatency)

	if m.l2.Access(cycle, lineAddr, isWriteback, core) == cache.Hit {
		return delay
	}

	delay += m.dram.Access(lineAddr, false)
	evicted := m.l2.Install(cycle, lineAddr, isWriteback, core)
	if evicted.Valid && evicted.Dirty {
		evictedAddr := (evicted.Tag << m.l2.IndexBits()) | (lineAddr & m.l2.IndexMask())
		m.dram.Access(evictedAddr, true)
	}

	return delay
}

// L2 returns the memory system's shared L2 cache, for diagnostics that
// need to observe its partitioning directly. It is nil in mode A, which
// has no L2.
func (m *MemorySystem) L2() *cache.Cache { return m.l2 }

// AvgDelay returns the mean delay charged to references of type t.
func (m *MemorySystem) AvgDelay(t AccessType) float64 {
	if m.statAccess[t] == 0 {
		return 0
	}
	return float64(m.statDelay[t]) / float64(m.statAccess[t])
}

// PrintStats writes every component's statistics, and the
// per-reference-type memory-system averages, to w.
func (m *MemorySystem) PrintStats(w io.Writer) {
	switch m.topology {
	case topologySingleL1:
		m.dcache.PrintStats(w, "DCACHE")

	case topologySharedL1:
		m.icache.PrintStats(w, "ICACHE")
		m.dcache.PrintStats(w, "DCACHE")
		m.l2.PrintStats(w, "L2CACHE")
		m.dram.PrintStats(w)

	case topologyPerCoreL1:
		for i := 0; i < m.numCores; i++ {
			m.icachePer[i].PrintStats(w, fmt.Sprintf("ICACHE_%d", i))
			m.dcachePer[i].PrintStats(w, fmt.Sprintf("DCACHE_%d", i))
		}
		m.l2.PrintStats(w, "L2CACHE")
		m.dram.PrintStats(w)
	}

	fmt.Fprintf(w, "MEMSYS_IFETCH_ACCESS  \t %d\n", m.statAccess[IFetch])
	fmt.Fprintf(w, "MEMSYS_LOAD_ACCESS    \t %d\n", m.statAccess[Load])
	fmt.Fprintf(w, "MEMSYS_STORE_ACCESS   \t %d\n", m.statAccess[Store])
	fmt.Fprintf(w, "MEMSYS_IFETCH_AVGDELAY\t %.4f\n", m.AvgDelay(IFetch))
	fmt.Fprintf(w, "MEMSYS_LOAD_AVGDELAY  \t %.4f\n", m.AvgDelay(Load))
	fmt.Fprintf(w, "MEMSYS_STORE_AVGDELAY \t %.4f\n", m.AvgDelay(Store))
}
