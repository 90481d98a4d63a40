package engine

import (
	"sync"
	"time"
)

// LogThrottle rate-limits repeated log lines per key. It only gates
// logging: every event is still recorded and counted, since adjacent
// triggering frames are deliberately not deduplicated.
type LogThrottle struct {
	mu   sync.Mutex
	last map[string]time.Time
}

func NewLogThrottle() *LogThrottle {
	return &LogThrottle{last: make(map[string]time.Time)}
}

func (t *LogThrottle) Allow(key string, every time.Duration) bool {
	if every <= 0 {
		return true
	}
	now := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	if ts, ok := t.last[key]; ok && now.Sub(ts) < every {
		return false
	}
	t.last[key] = now
	return true
}
