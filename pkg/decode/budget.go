// Package decode drives a codec tile-by-tile into a pixel buffer without
// ever holding more than one tile's decode working set.
package decode

import "runtime"

// Snapshot is one point-in-time memory reading. Snapshots are re-read on
// every query and never cached, since free memory moves under the decoder.
type Snapshot struct {
	Free         uint64
	LargestBlock uint64
	Margin       uint64
}

// Budget answers whether an allocation is safe right now.
type Budget interface {
	Snapshot() Snapshot
	// CanAllocate reports whether n bytes fit under the current free figure
	// with the safety margin preserved.
	CanAllocate(n uint64) bool
}

// DefaultMargin is the headroom kept under every allocation decision.
const DefaultMargin = 64 << 10

// DefaultSystemLimit is the soft heap budget assumed when none is
// configured: deliberately conservative, fail-closed rather than open.
const DefaultSystemLimit = 64 << 20

// FixedBudget reports a constant free figure, for tests and for targets
// whose budget is known up front. A zero Margin means DefaultMargin.
type FixedBudget struct {
	Free   uint64
	Margin uint64
}

// Snapshot returns the fixed reading.
func (b FixedBudget) Snapshot() Snapshot {
	return Snapshot{Free: b.Free, LargestBlock: b.Free, Margin: orDefault(b.Margin, DefaultMargin)}
}

// CanAllocate applies the margin rule against the fixed figure.
func (b FixedBudget) CanAllocate(n uint64) bool {
	return canAllocate(b.Snapshot(), n)
}

// SystemBudget derives free memory from the runtime heap against a soft
// limit. LargestBlock equals Free: a GC heap has no fixed fragmentation
// boundary to report. A zero Limit means DefaultSystemLimit, a zero Margin
// DefaultMargin.
type SystemBudget struct {
	Limit  uint64
	Margin uint64
}

// Snapshot reads the runtime heap.
func (b SystemBudget) Snapshot() Snapshot {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	limit := orDefault(b.Limit, DefaultSystemLimit)
	var free uint64
	if ms.HeapInuse < limit {
		free = limit - ms.HeapInuse
	}
	return Snapshot{Free: free, LargestBlock: free, Margin: orDefault(b.Margin, DefaultMargin)}
}

// CanAllocate applies the margin rule against a fresh snapshot.
func (b SystemBudget) CanAllocate(n uint64) bool {
	return canAllocate(b.Snapshot(), n)
}

// canAllocate is the shared monotonic rule: n + margin <= free, with the
// sum guarded against wrap.
func canAllocate(s Snapshot, n uint64) bool {
	return n+s.Margin >= n && n+s.Margin <= s.Free
}

func orDefault(v, def uint64) uint64 {
	if v == 0 {
		return def
	}
	return v
}
