package types

import "errors"

// DefaultProcRoot is where the kernel exposes per-process accounting.
const DefaultProcRoot = "/proc"

// ErrVanished marks a process that exited between discovery and read.
var ErrVanished = errors.New("process vanished")

// ErrDenied marks a process whose accounting files we may not read.
var ErrDenied = errors.New("permission denied")

// MemorySample is the normalized per-process figure produced by one read of
// smaps_rollup, smaps, or the statm fallback. All values are kilobytes.
type MemorySample struct {
	PrivateKB uint64
	SharedKB  uint64
	SwapKB    uint64
}

// RAMKB is the "RAM used" figure for the sample.
func (m MemorySample) RAMKB() uint64 {
	return m.PrivateKB + m.SharedKB
}

// ProcSample couples a memory sample with the process identity it was read
// from. MergeCount stays 1 until the aggregator folds same-named processes
// together.
type ProcSample struct {
	PID  int
	Name string
	MemorySample
	MergeCount int
}

// Totals accumulates over every contributing process, counted before any
// merge, so the footer reflects all processes considered rather than the
// post-merge row count.
type Totals struct {
	RAMKB  uint64
	SwapKB uint64
}

// Add folds one successfully-read sample into the running totals.
func (t *Totals) Add(m MemorySample) {
	t.RAMKB += m.RAMKB()
	t.SwapKB += m.SwapKB
}
