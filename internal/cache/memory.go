package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	ids     []int64
	expires time.Time
}

// Memory is an in-process TTL cache of product ID lists, grouped for bulk invalidation.
type Memory struct {
	mu      sync.RWMutex
	groups  map[string]map[string]entry
	maxKeys int
	now     func() time.Time
}

// NewMemory creates a cache holding at most maxKeys entries per group (0 = 10000).
func NewMemory(maxKeys int) *Memory {
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	return &Memory{
		groups:  make(map[string]map[string]entry),
		maxKeys: maxKeys,
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, group, key string) ([]int64, bool) {
	m.mu.RLock()
	e, ok := m.groups[group][key]
	m.mu.RUnlock()

	if !ok || !m.now().Before(e.expires) {
		return nil, false
	}
	return clone(e.ids), true
}

func (m *Memory) Set(_ context.Context, group, key string, ids []int64, ttl time.Duration) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.groups[group]
	if !ok {
		g = make(map[string]entry)
		m.groups[group] = g
	}

	// Evict expired entries once the group grows past its bound.
	if len(g) >= m.maxKeys {
		for k, v := range g {
			if !now.Before(v.expires) {
				delete(g, k)
			}
		}
		if len(g) >= m.maxKeys {
			m.groups[group] = make(map[string]entry)
			g = m.groups[group]
		}
	}

	g[key] = entry{ids: clone(ids), expires: now.Add(ttl)}
}

func (m *Memory) InvalidateGroup(_ context.Context, group string) {
	m.mu.Lock()
	delete(m.groups, group)
	m.mu.Unlock()
}

func clone(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	out := make([]int64, len(ids))
	copy(out, ids)
	return out
}
