package cache

// Monitor is a per-set utility monitor: it counts hits by the way they
// landed in and misses for the set as a whole. DWP reduces these
// counters to a per-core way quota; every other policy ignores it.
type Monitor struct {
	TotalHits   [MaxWaysPerSet]uint64
	TotalMisses uint64
}

// RecordHit credits way with one hit.
func (m *Monitor) RecordHit(way int) {
	m.TotalHits[way]++
}

// RecordMiss credits the set with one miss.
func (m *Monitor) RecordMiss() {
	m.TotalMisses++
}

// Reset zeroes every counter.
func (m *Monitor) Reset() {
	*m = Monitor{}
}

// dwpCore0Ways reduces set's UMON and current way ownership to a
// dynamic quota for core 0, following the utility formula: each core's
// utility is 0.7 of its attributed hits plus 0.3 of the set's total
// misses (misses are shared across both cores by construction), and
// the quota is core 0's share of the combined utility scaled to numWays.
func dwpCore0Ways(set *Set, numWays int) int {
	var hits [2]uint64
	for way := 0; way < numWays; way++ {
		line := set.Lines[way]
		if !line.Valid {
			continue
		}
		if line.CoreID == CoreID(0) {
			hits[0] += set.UMON.TotalHits[way]
		} else {
			hits[1] += set.UMON.TotalHits[way]
		}
	}

	misses := set.UMON.TotalMisses
	utility0 := int(0.7*float64(hits[0]) + 0.3*float64(misses))
	utility1 := int(0.7*float64(hits[1]) + 0.3*float64(misses))

	sum := utility0 + utility1
	if sum < 1 {
		sum = 1
	}

	return utility0 * numWays / sum
}
