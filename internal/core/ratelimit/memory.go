package ratelimit

import (
	"context"
	"sync"
	"time"
)

// entry 单个 key 的命中记录，window 为最近一次 Hit 使用的窗口
type entry struct {
	log    []time.Time
	window time.Duration
}

type MemoryStore struct {
	mu        sync.Mutex
	hits      map[string]*entry
	now       func() time.Time
	lastSweep time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{hits: make(map[string]*entry), now: time.Now}
}

func (s *MemoryStore) Hit(_ context.Context, key string, limit int, window time.Duration) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= window {
		s.sweep(now)
	}

	e := s.hits[key]
	if e == nil {
		e = &entry{}
		s.hits[key] = e
	}
	e.window = window
	e.log = prune(e.log, now.Add(-window))

	res := Result{Limit: limit}
	if len(e.log) < limit {
		e.log = append(e.log, now)
		res.Allowed = true
	}
	res.Remaining = max(0, limit-len(e.log))
	res.ResetAfter = window
	if len(e.log) > 0 {
		res.ResetAfter = e.log[0].Add(window).Sub(now)
	}
	return res, nil
}

// sweep 按每个 key 自己的窗口清理已经没有有效命中的 key
func (s *MemoryStore) sweep(now time.Time) {
	for k, e := range s.hits {
		if len(e.log) == 0 || !e.log[len(e.log)-1].After(now.Add(-e.window)) {
			delete(s.hits, k)
		}
	}
	s.lastSweep = now
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hits)
}

// prune 丢掉 cutoff 之前（含）的命中，log 按时间递增
func prune(log []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(log) && !log[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return log
	}
	return append(log[:0], log[i:]...)
}
