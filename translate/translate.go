// Package translate implements the deterministic virtual-to-physical
// address mapping the multicore simulation modes use to give every
// core a distinct physical address space out of the same virtual
// range.
package translate

import (
	"math/bits"

	akitavm "github.com/sarchlab/akita/v4/mem/vm"
)

// PageSize is the fixed page size in bytes the translation scheme is
// defined over.
const PageSize = 4096

// pageOffsetBits is log2(PageSize).
var pageOffsetBits = uint(bits.Len(uint(PageSize))) - 1

// VPNToPFN maps a virtual page number and owning core to a physical
// frame number. For vpns below 1<<20, core 1's frames sit (1<<21)
// frames above core 0's, so the two cores never share a frame. The vpn
// bits above bit 19 are added in the same 1<<21 steps, so a large vpn
// of one core can map to the same frame as a small vpn of another.
func VPNToPFN(vpn uint64, core akitavm.PID) uint64 {
	low := vpn & 0x000FFFFF
	high := vpn >> 20
	return low + (uint64(core) << 21) + (high << 21)
}

// Translate maps a virtual byte address to its physical byte address,
// using core to select which core's physical window the address's
// page lands in. The page offset passes through unchanged.
func Translate(virtAddr uint64, core akitavm.PID) uint64 {
	offsetMask := uint64(1)<<pageOffsetBits - 1

	vpn := virtAddr >> pageOffsetBits
	pfn := VPNToPFN(vpn, core)

	return (pfn << pageOffsetBits) | (virtAddr & offsetMask)
}
