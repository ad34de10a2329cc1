/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cache

import (
	"go.uber.org/atomic"
)

// Statistics is a snapshot of cache usage counters.
// Counters never decrease during the lifetime of a Service.
type Statistics struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`

	// Evictions counts every removal that is not a read:
	// Delete, Clear, InvalidateWhere, expiration and capacity enforcement.
	Evictions uint64 `json:"evictions"`

	Size    int  `json:"size"`
	Enabled bool `json:"enabled"`
}

// HitRatio returns the share of Get calls that were hits or 0 if there were no calls.
func (s Statistics) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type statsCounters struct {
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}
