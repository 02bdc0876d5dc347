// Package trace reads reference traces: one line per memory
// reference, formatted as "<core_id> <I|L|S> <address>" with the
// address in decimal or 0x-prefixed hex.
package trace

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	akitavm "github.com/sarchlab/akita/v4/mem/vm"

	"github.com/sarchlab/chmemsim/memsys"
)

// Reference is one line of a trace, already parsed.
type Reference struct {
	CoreID akitavm.PID
	Type   memsys.AccessType
	Addr   uint64
}

// Reader streams references out of a trace file one at a time, so a
// trace far larger than memory can still be replayed.
type Reader struct {
	scanner *bufio.Scanner
	closer  io.Closer
	line    int
}

// Open opens path for reading as a trace.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	return &Reader{scanner: bufio.NewScanner(f), closer: f}, nil
}

// NewReader wraps an already-open reader as a trace Reader. The
// caller remains responsible for closing r if it implements io.Closer.
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Next returns the next reference in the trace. It returns false (with
// a nil error) at end of file.
func (r *Reader) Next() (Reference, bool, error) {
	for r.scanner.Scan() {
		r.line++
		text := strings.TrimSpace(r.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		ref, err := parseLine(text)
		if err != nil {
			return Reference{}, false, fmt.Errorf("trace line %d: %w", r.line, err)
		}
		return ref, true, nil
	}

	if err := r.scanner.Err(); err != nil {
		return Reference{}, false, fmt.Errorf("failed to read trace: %w", err)
	}
	return Reference{}, false, nil
}

// Close releases the underlying file, if Open was used to create the
// Reader.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

func parseLine(text string) (Reference, error) {
	fields := strings.Fields(text)
	if len(fields) != 3 {
		return Reference{}, fmt.Errorf("expected 3 fields, got %d", len(fields))
	}

	core, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return Reference{}, fmt.Errorf("invalid core id %q: %w", fields[0], err)
	}

	var accessType memsys.AccessType
	switch fields[1] {
	case "I":
		accessType = memsys.IFetch
	case "L":
		accessType = memsys.Load
	case "S":
		accessType = memsys.Store
	default:
		return Reference{}, fmt.Errorf("invalid access type %q, want I, L or S", fields[1])
	}

	addr, err := strconv.ParseUint(fields[2], 0, 64)
	if err != nil {
		return Reference{}, fmt.Errorf("invalid address %q: %w", fields[2], err)
	}

	return Reference{
		CoreID: akitavm.PID(core),
		Type:   accessType,
		Addr:   addr,
	}, nil
}
