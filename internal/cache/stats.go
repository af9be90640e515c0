package cache

import "sync/atomic"

// Stats is a point-in-time snapshot of cache activity since start-up.
type Stats struct {
	Enabled       bool    `json:"enabled"`
	Provider      string  `json:"provider"`
	Codec         string  `json:"codec"`
	TTLSeconds    int64   `json:"ttl_seconds"`
	Hits          uint64  `json:"hits"`
	Misses        uint64  `json:"misses"`
	Sets          uint64  `json:"sets"`
	Invalidations uint64  `json:"invalidations"`
	Errors        uint64  `json:"errors"`
	HitRate       float64 `json:"hit_rate"`
}

type counters struct {
	hits          atomic.Uint64
	misses        atomic.Uint64
	sets          atomic.Uint64
	invalidations atomic.Uint64
	errors        atomic.Uint64
}

func (c *counters) snapshot() Stats {
	s := Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Sets:          c.sets.Load(),
		Invalidations: c.invalidations.Load(),
		Errors:        c.errors.Load(),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}
