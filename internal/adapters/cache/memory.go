// Package cache stores serialized recommendation results, either in process
// or in Redis.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/ewilliams-labs/songmatch/internal/core/ports"
)

const (
	DefaultCapacity = 2048
	DefaultTTL      = 10 * time.Minute
)

type entry struct {
	key       string
	value     []byte
	expiresAt time.Time
	prev      *entry
	next      *entry
}

// Memory is a fixed-capacity LRU with a per-entry TTL.
type Memory struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*entry
	head     *entry
	tail     *entry
	now      func() time.Time
}

var _ ports.ResultCache = (*Memory)(nil)

func NewMemory(capacity int, ttl time.Duration) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Memory{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*entry, capacity),
		head:     &entry{},
		tail:     &entry{},
		now:      time.Now,
	}
	m.head.next = m.tail
	m.tail.prev = m.head
	return m
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.items[key]
	if !ok {
		return nil, false
	}
	if m.now().After(e.expiresAt) {
		m.remove(e)
		return nil, false
	}
	m.moveToFront(e)
	return e.value, true
}

func (m *Memory) Set(_ context.Context, key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expiresAt := m.now().Add(m.ttl)
	if e, ok := m.items[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		m.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value, expiresAt: expiresAt}
	m.addToFront(e)
	m.items[key] = e
	for len(m.items) > m.capacity {
		m.remove(m.tail.prev)
	}
}

// Len returns the number of entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *Memory) addToFront(e *entry) {
	e.prev = m.head
	e.next = m.head.next
	m.head.next.prev = e
	m.head.next = e
}

func (m *Memory) moveToFront(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	m.addToFront(e)
}

func (m *Memory) remove(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	delete(m.items, e.key)
}
