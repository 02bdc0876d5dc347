// Package cache implements the tag-only set-associative caches used by
// the memory-hierarchy simulator. A Cache tracks hits, misses and
// evicted lines; it never moves data, only tags and per-core ownership.
package cache

import (
	"fmt"
	"io"
	"math/bits"
	"math/rand"

	akitavm "github.com/sarchlab/akita/v4/mem/vm"
)

// CoreID identifies which core a line belongs to. Reusing akita's
// process identifier keeps a core's address space distinct the same
// way a process's would be.
type CoreID = akitavm.PID

// MaxWaysPerSet bounds the associativity any single cache can be built
// with. It exists so per-set state can be stored inline instead of
// behind a slice-of-slices.
const MaxWaysPerSet = 16

// Policy selects how a cache picks a victim line on a miss.
type Policy int

const (
	LRU Policy = iota
	Random
	SWP
	DWP
)

func (p Policy) String() string {
	switch p {
	case LRU:
		return "LRU"
	case Random:
		return "RANDOM"
	case SWP:
		return "SWP"
	case DWP:
		return "DWP"
	default:
		return "UNKNOWN"
	}
}

// Result reports whether Access found the requested line.
type Result int

const (
	Miss Result = iota
	Hit
)

// Line is one tag-store entry. A Line with Valid == false carries no
// other meaningful field.
type Line struct {
	Valid          bool
	Dirty          bool
	Tag            uint64
	CoreID         CoreID
	LastAccessTime uint64
}

// Set is one row of the tag store, plus the bookkeeping SWP and DWP
// need to enforce and observe a per-core way quota.
type Set struct {
	Lines       [MaxWaysPerSet]Line
	WaysPerCore map[CoreID]int
	UMON        Monitor
}

func newSet() Set {
	return Set{WaysPerCore: make(map[CoreID]int)}
}

// Stats accumulates the counters a cache reports at the end of a run.
type Stats struct {
	ReadAccess  uint64
	ReadMiss    uint64
	WriteAccess uint64
	WriteMiss   uint64
	DirtyEvicts uint64
}

// ReadMissPerc returns 100*misses/accesses for reads, or 0 if there
// were no read accesses.
func (s Stats) ReadMissPerc() float64 {
	if s.ReadAccess == 0 {
		return 0
	}
	return 100 * float64(s.ReadMiss) / float64(s.ReadAccess)
}

// WriteMissPerc returns 100*misses/accesses for writes, or 0 if there
// were no write accesses.
func (s Stats) WriteMissPerc() float64 {
	if s.WriteAccess == 0 {
		return 0
	}
	return 100 * float64(s.WriteMiss) / float64(s.WriteAccess)
}

// Quotas holds the process-wide way-partitioning state SWP and DWP
// read and update. A single Quotas is shared by every cache in a
// memory system that uses either policy, since DWP's quota is meant to
// reflect utility measured across the whole hierarchy, not one cache.
type Quotas struct {
	SWPCore0Ways int
	DWPCore0Ways int
}

// NewQuotas returns a Quotas with the SWP quota fixed at swpCore0Ways
// and the DWP quota starting at zero.
func NewQuotas(swpCore0Ways int) *Quotas {
	return &Quotas{SWPCore0Ways: swpCore0Ways}
}

// Cache is a tag-only set-associative cache.
type Cache struct {
	label     string
	numWays   int
	indexBits uint
	indexMask uint64
	sets      []Set
	policy    Policy
	finder    victimFinder
	stats     Stats
	lastEvict Line
}

// Option configures a Cache at construction time.
type Option func(*Cache)

// WithQuotas attaches the shared SWP/DWP state a cache needs when built
// with the SWP or DWP policy. Ignored by LRU and Random caches.
func WithQuotas(q *Quotas) Option {
	return func(c *Cache) {
		if f, ok := c.finder.(quotaSetter); ok {
			f.setQuotas(q)
		}
	}
}

// WithRandom attaches the process-wide pseudorandom source a cache
// needs when built with the Random policy. Ignored otherwise.
func WithRandom(r *rand.Rand) Option {
	return func(c *Cache) {
		if f, ok := c.finder.(*randomFinder); ok {
			f.rng = r
		}
	}
}

// WithLabel records a name for the cache. PrintStats does not read it;
// it reports under the label passed to it.
func WithLabel(label string) Option {
	return func(c *Cache) { c.label = label }
}

// New builds a cache of sizeBytes total capacity, associativity ways
// per set, lineSize bytes per line, using the given replacement
// policy. It panics if the geometry does not divide into a power-of-two
// number of sets or associativity exceeds MaxWaysPerSet, since either
// is a configuration error the caller must fix, not a runtime
// condition to recover from.
func New(sizeBytes, associativity, lineSize int, policy Policy, opts ...Option) *Cache {
	if associativity <= 0 || associativity > MaxWaysPerSet {
		panic(fmt.Sprintf("cache: associativity %d out of range [1, %d]", associativity, MaxWaysPerSet))
	}

	numSets := sizeBytes / (associativity * lineSize)
	if numSets <= 0 || numSets&(numSets-1) != 0 {
		panic(fmt.Sprintf("cache: geometry (size=%d, ways=%d, line=%d) does not yield a power-of-two set count", sizeBytes, associativity, lineSize))
	}

	c := &Cache{
		numWays:   associativity,
		indexBits: uint(bits.Len(uint(numSets)) - 1),
		indexMask: uint64(numSets - 1),
		sets:      make([]Set, numSets),
		policy:    policy,
		finder:    newVictimFinder(policy),
	}
	for i := range c.sets {
		c.sets[i] = newSet()
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// IndexBits returns the number of set-index bits this cache uses,
// needed by callers reconstructing a full address from a Line's tag.
func (c *Cache) IndexBits() uint { return c.indexBits }

// IndexMask returns the set-index mask, i.e. (1<<IndexBits())-1.
func (c *Cache) IndexMask() uint64 { return c.indexMask }

// Policy returns the replacement policy this cache was built with.
func (c *Cache) Policy() Policy { return c.policy }

// Stats returns the cache's accumulated statistics.
func (c *Cache) Stats() Stats { return c.stats }

// LastEvicted returns the line most recently displaced by Install. Its
// Valid field is false if that install did not evict anything.
func (c *Cache) LastEvicted() Line { return c.lastEvict }

// WaysHeldBy returns the number of ways core currently occupies, summed
// across every set, so SWP/DWP partitioning can be observed directly
// instead of only inferred from eviction behavior.
func (c *Cache) WaysHeldBy(core CoreID) int {
	total := 0
	for i := range c.sets {
		total += c.sets[i].WaysPerCore[core]
	}
	return total
}

func (c *Cache) setIndex(lineAddr uint64) uint64 {
	return lineAddr & c.indexMask
}

func (c *Cache) tag(lineAddr uint64) uint64 {
	return lineAddr >> c.indexBits
}

// Access looks up lineAddr for the given core, recording a hit or miss
// in both the cache's statistics and the target set's UMON. It does
// not install anything on a miss; call Install to do that.
func (c *Cache) Access(cycle, lineAddr uint64, isWrite bool, core CoreID) Result {
	set := &c.sets[c.setIndex(lineAddr)]
	tag := c.tag(lineAddr)

	for way := 0; way < c.numWays; way++ {
		line := &set.Lines[way]
		if !line.Valid || line.Tag != tag || line.CoreID != core {
			continue
		}

		line.LastAccessTime = cycle
		if isWrite {
			line.Dirty = true
			c.stats.WriteAccess++
		} else {
			c.stats.ReadAccess++
		}
		set.UMON.RecordHit(way)
		return Hit
	}

	if isWrite {
		c.stats.WriteAccess++
		c.stats.WriteMiss++
	} else {
		c.stats.ReadAccess++
		c.stats.ReadMiss++
	}
	set.UMON.RecordMiss()
	return Miss
}

// Install places lineAddr into the cache on behalf of core, evicting a
// victim line chosen by the cache's replacement policy. It returns the
// evicted line (Valid == false if the victim way was empty); the
// caller is responsible for propagating a writeback if the evicted
// line was dirty. The set index is additionally reduced modulo the set
// count; since the index mask is already the set count minus one, this
// never changes the set Access would look up.
func (c *Cache) Install(cycle, lineAddr uint64, isWrite bool, core CoreID) Line {
	setIdx := c.setIndex(lineAddr) % uint64(len(c.sets))
	set := &c.sets[setIdx]
	tag := c.tag(lineAddr)

	way := c.finder.findVictim(set, c.numWays, core)
	evicted := set.Lines[way]
	c.lastEvict = evicted

	if evicted.Valid {
		set.WaysPerCore[evicted.CoreID]--
		if evicted.Dirty {
			c.stats.DirtyEvicts++
		}
	}

	set.Lines[way] = Line{
		Valid:          true,
		Dirty:          isWrite,
		Tag:            tag,
		CoreID:         core,
		LastAccessTime: cycle,
	}
	set.WaysPerCore[core]++

	return evicted
}

// PrintStats writes the cache's statistics to w, one line per counter,
// each prefixed with label followed by an underscore.
func (c *Cache) PrintStats(w io.Writer, label string) {
	s := c.stats
	fmt.Fprintf(w, "%s_READ_ACCESS    \t %d\n", label, s.ReadAccess)
	fmt.Fprintf(w, "%s_WRITE_ACCESS   \t %d\n", label, s.WriteAccess)
	fmt.Fprintf(w, "%s_READ_MISS      \t %d\n", label, s.ReadMiss)
	fmt.Fprintf(w, "%s_WRITE_MISS     \t %d\n", label, s.WriteMiss)
	fmt.Fprintf(w, "%s_READ_MISS_PERC \t %.4f\n", label, s.ReadMissPerc())
	fmt.Fprintf(w, "%s_WRITE_MISS_PERC\t %.4f\n", label, s.WriteMissPerc())
	fmt.Fprintf(w, "%s_DIRTY_EVICTS   \t %d\n", label, s.DirtyEvicts)
}
