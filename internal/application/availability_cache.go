package application

import (
	"context"
	"strings"
	"sync"
	"time"
)

// AvailabilityKey identifies one computed slot list.
type AvailabilityKey struct {
	AgendaID string
	Date     string
	Service  string
}

// String renders the key as "agenda|date|service" with the service lower-cased.
func (k AvailabilityKey) String() string {
	return k.AgendaID + "|" + k.Date + "|" + strings.ToLower(k.Service)
}

// AvailabilityCache stores computed slot lists until the underlying agenda,
// catalog or appointments change.
type AvailabilityCache interface {
	Get(ctx context.Context, key AvailabilityKey) ([]string, bool, error)
	Set(ctx context.Context, key AvailabilityKey, slots []string) error
	InvalidateAgenda(ctx context.Context, agendaID string) error
	InvalidateAll(ctx context.Context) error
}

// MemoryAvailabilityCache is an in-process AvailabilityCache with a TTL and a
// bounded number of entries.
type MemoryAvailabilityCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]availabilityEntry
}

type availabilityEntry struct {
	agendaID  string
	slots     []string
	expiresAt time.Time
}

// NewMemoryAvailabilityCache constructs an in-process cache. Non-positive
// ttl and maxEntries fall back to 30 seconds and 1024 entries.
func NewMemoryAvailabilityCache(ttl time.Duration, maxEntries int, now func() time.Time) *MemoryAvailabilityCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryAvailabilityCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]availabilityEntry),
	}
}

func (c *MemoryAvailabilityCache) Get(_ context.Context, key AvailabilityKey) ([]string, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	id := key.String()
	c.mu.RLock()
	entry, ok := c.entries[id]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, id)
		c.mu.Unlock()
		return nil, false, nil
	}
	return cloneSlots(entry.slots), true, nil
}

func (c *MemoryAvailabilityCache) Set(_ context.Context, key AvailabilityKey, slots []string) error {
	if c == nil {
		return nil
	}
	entry := availabilityEntry{
		agendaID:  key.AgendaID,
		slots:     cloneSlots(slots),
		expiresAt: c.now().Add(c.ttl),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key.String()] = entry
	return nil
}

func (c *MemoryAvailabilityCache) InvalidateAgenda(_ context.Context, agendaID string) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	for id, entry := range c.entries {
		if entry.agendaID == agendaID {
			delete(c.entries, id)
		}
	}
	c.mu.Unlock()
	return nil
}

func (c *MemoryAvailabilityCache) InvalidateAll(context.Context) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	c.entries = make(map[string]availabilityEntry)
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryAvailabilityCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *MemoryAvailabilityCache) cleanupLocked() {
	now := c.now()
	for id, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, id)
		}
	}
}

func (c *MemoryAvailabilityCache) evictOneLocked() {
	for id := range c.entries {
		delete(c.entries, id)
		return
	}
}

// Slot lists are never nil so an empty day is cached as a hit.
func cloneSlots(slots []string) []string {
	out := make([]string, len(slots))
	copy(out, slots)
	return out
}
