package entity

import "sync/atomic"

// Stats is a snapshot of one handle's tier traffic. Useful for spotting
// fields that never hit a cache and for asserting tier behaviour in tests.
type Stats struct {
	LocalHits  uint64
	SharedHits uint64
	StoreHits  uint64
	Misses     uint64
}

// stats is the live atomic counterpart of [Stats].
type stats struct {
	localHits  atomic.Uint64
	sharedHits atomic.Uint64
	storeHits  atomic.Uint64
	misses     atomic.Uint64
}

func (s *stats) snapshot() Stats {
	return Stats{
		LocalHits:  s.localHits.Load(),
		SharedHits: s.sharedHits.Load(),
		StoreHits:  s.storeHits.Load(),
		Misses:     s.misses.Load(),
	}
}
