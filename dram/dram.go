// Package dram models a banked DRAM: one row buffer per bank, an
// open-page or close-page management policy, and either the timed
// activate/precharge/CAS latency model or the flat mode-B latency the
// original simulator used for its fastest configuration.
package dram

import (
	"fmt"
	"io"
	"math/bits"
)

// NumBanks is the fixed number of independently addressable banks.
const NumBanks = 16

// Fixed timing constants, in cycles.
const (
	DelayBus = 10
	DelayAct = 45
	DelayCas = 45
	DelayPre = 45

	// FixedLatency is the flat per-access delay mode B uses instead of
	// the open/close-page timing model.
	FixedLatency = 100
)

// Policy selects how a bank's row buffer behaves across accesses.
type Policy int

const (
	// OpenPage keeps the accessed row open, so a later access to the
	// same row on the same bank only pays DelayBus+DelayCas.
	OpenPage Policy = iota
	// ClosePage precharges after every access, so every access pays
	// the full activate-then-CAS latency.
	ClosePage
)

// RowBuffer holds the state of one bank's currently open row.
type RowBuffer struct {
	Valid bool
	RowID uint64
}

// Stats accumulates DRAM access counters.
type Stats struct {
	ReadAccess  uint64
	WriteAccess uint64
	ReadDelay   uint64
	WriteDelay  uint64
}

// ReadDelayAvg returns the mean read latency, or 0 if there were no
// reads.
func (s Stats) ReadDelayAvg() float64 {
	if s.ReadAccess == 0 {
		return 0
	}
	return float64(s.ReadDelay) / float64(s.ReadAccess)
}

// WriteDelayAvg returns the mean write latency, or 0 if there were no
// writes.
func (s Stats) WriteDelayAvg() float64 {
	if s.WriteAccess == 0 {
		return 0
	}
	return float64(s.WriteDelay) / float64(s.WriteAccess)
}

// DRAM is a banked memory with per-bank row-buffer state.
type DRAM struct {
	banks    [NumBanks]RowBuffer
	bankBits uint
	policy   Policy
	fixed    bool
	stats    Stats
}

// New builds a DRAM using the timed open/close-page latency model.
func New(policy Policy) *DRAM {
	return &DRAM{
		policy:   policy,
		bankBits: uint(bits.Len(NumBanks - 1)),
	}
}

// NewFixedLatency builds a DRAM that always charges FixedLatency
// cycles per access, ignoring row-buffer state. This is mode B's DRAM.
func NewFixedLatency() *DRAM {
	return &DRAM{fixed: true}
}

func (d *DRAM) bankFor(lineAddr uint64) (row, bank uint64) {
	row = lineAddr >> d.bankBits
	bank = row % NumBanks
	return
}

// Access charges and returns the delay of one access to lineAddr,
// updating the target bank's row-buffer state and the DRAM's
// statistics.
func (d *DRAM) Access(lineAddr uint64, isWrite bool) uint64 {
	var delay uint64
	if d.fixed {
		delay = FixedLatency
	} else {
		delay = d.timedAccess(lineAddr)
	}

	if isWrite {
		d.stats.WriteAccess++
		d.stats.WriteDelay += delay
	} else {
		d.stats.ReadAccess++
		d.stats.ReadDelay += delay
	}

	return delay
}

func (d *DRAM) timedAccess(lineAddr uint64) uint64 {
	row, bank := d.bankFor(lineAddr)
	rb := &d.banks[bank]
	delay := uint64(DelayBus)

	switch d.policy {
	case OpenPage:
		switch {
		case !rb.Valid:
			delay += DelayAct + DelayCas
		case rb.RowID == row:
			delay += DelayCas
		default:
			delay += DelayPre + DelayAct + DelayCas
		}
		rb.Valid = true
		rb.RowID = row

	case ClosePage:
		delay += DelayAct + DelayCas
		rb.Valid = false
		rb.RowID = row

	default:
		panic(fmt.Sprintf("dram: unknown policy %d", d.policy))
	}

	return delay
}

// Stats returns the DRAM's accumulated statistics.
func (d *DRAM) Stats() Stats { return d.stats }

// PrintStats writes the DRAM's statistics to w.
func (d *DRAM) PrintStats(w io.Writer) {
	s := d.stats
	fmt.Fprintf(w, "DRAM_READ_ACCESS   \t %d\n", s.ReadAccess)
	fmt.Fprintf(w, "DRAM_WRITE_ACCESS  \t %d\n", s.WriteAccess)
	fmt.Fprintf(w, "DRAM_READ_DELAY_AVG \t %.4f\n", s.ReadDelayAvg())
	fmt.Fprintf(w, "DRAM_WRITE_DELAY_AVG\t %.4f\n", s.WriteDelayAvg())
}
