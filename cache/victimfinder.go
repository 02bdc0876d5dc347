package cache

import "math/rand"

// victimFinder picks the way within set that Install should evict.
// Grounded on akita's tagging.VictimFinder shape (FindVictim(tags,
// address) (Block, bool)), adapted here to work against this package's
// own inline Set/Line layout instead of akita's directory.
type victimFinder interface {
	findVictim(set *Set, numWays int, requester CoreID) int
}

// quotaSetter is implemented by victim finders that need the shared
// SWP/DWP state. WithQuotas type-asserts against it so it is a no-op
// on finders that don't need quotas.
type quotaSetter interface {
	setQuotas(q *Quotas)
}

func newVictimFinder(p Policy) victimFinder {
	switch p {
	case LRU:
		return lruFinder{}
	case Random:
		return &randomFinder{rng: rand.New(rand.NewSource(1))}
	case SWP:
		return &swpFinder{}
	case DWP:
		return &dwpFinder{}
	default:
		panic("cache: unknown policy")
	}
}

// firstInvalid returns the way index of the first invalid line in set,
// or -1 if every way holds a valid line.
func firstInvalid(set *Set, numWays int) int {
	for way := 0; way < numWays; way++ {
		if !set.Lines[way].Valid {
			return way
		}
	}
	return -1
}

// lruVictim scans every way of set and returns the one with the
// smallest LastAccessTime, ties broken toward the lower way index.
// Empty ways are preferred over occupied ones.
func lruVictim(set *Set, numWays int) int {
	if way := firstInvalid(set, numWays); way != -1 {
		return way
	}

	victim := 0
	oldest := set.Lines[0].LastAccessTime
	for way := 1; way < numWays; way++ {
		if set.Lines[way].LastAccessTime < oldest {
			victim = way
			oldest = set.Lines[way].LastAccessTime
		}
	}
	return victim
}

type lruFinder struct{}

func (lruFinder) findVictim(set *Set, numWays int, _ CoreID) int {
	return lruVictim(set, numWays)
}

type randomFinder struct {
	rng *rand.Rand
}

func (f *randomFinder) findVictim(set *Set, numWays int, _ CoreID) int {
	if way := firstInvalid(set, numWays); way != -1 {
		return way
	}
	return f.rng.Intn(numWays)
}

// partitionVictim implements the way-quota search shared by SWP and
// DWP: the decision is always keyed on core 0's occupancy. If core 0
// holds fewer than quota ways, steal from core 1; otherwise evict from
// the requester's own ways. Within the chosen core's ways it picks the
// least-recently-used one. If the target core holds no ways in this
// set at all, it falls back to plain LRU over every way - this mirrors
// the original policy's behavior rather than a stricter reading of the
// quota, and is pinned intentionally rather than fixed.
func partitionVictim(set *Set, numWays int, requester CoreID, quota int) int {
	if way := firstInvalid(set, numWays); way != -1 {
		return way
	}

	target := requester
	if set.WaysPerCore[CoreID(0)] < quota {
		target = CoreID(1)
	}

	victim := -1
	var oldest uint64
	for way := 0; way < numWays; way++ {
		line := set.Lines[way]
		if !line.Valid || line.CoreID != target {
			continue
		}
		if victim == -1 || line.LastAccessTime < oldest {
			victim = way
			oldest = line.LastAccessTime
		}
	}

	if victim == -1 {
		return lruVictim(set, numWays)
	}
	return victim
}

type swpFinder struct {
	quotas *Quotas
}

func (f *swpFinder) setQuotas(q *Quotas) { f.quotas = q }

func (f *swpFinder) findVictim(set *Set, numWays int, requester CoreID) int {
	return partitionVictim(set, numWays, requester, f.quotas.SWPCore0Ways)
}

type dwpFinder struct {
	quotas *Quotas
}

func (f *dwpFinder) setQuotas(q *Quotas) { f.quotas = q }

// findVictim recomputes the process-wide DWP quota from this set's
// UMON before applying it, so DWP_CORE0_WAYS always reflects the most
// recently observed utility curve regardless of which set or which
// cache triggered the recomputation. This unconditional cross-set
// override is inherited as-is rather than scoped per set.
func (f *dwpFinder) findVictim(set *Set, numWays int, requester CoreID) int {
	f.quotas.DWPCore0Ways = dwpCore0Ways(set, numWays)
	return partitionVictim(set, numWays, requester, f.quotas.DWPCore0Ways)
}
