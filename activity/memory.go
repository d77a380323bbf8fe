package activity

import (
	"context"
	"sync"
)

// =============================================================================
// MEMORY FEED - In-memory implementation (for testing/dev)
// =============================================================================

type MemoryFeed struct {
	mu         sync.RWMutex
	activities []Activity
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{}
}

func (f *MemoryFeed) Save(_ context.Context, a Activity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activities = append(f.activities, a)
	return nil
}

// List returns activities newest first.
func (f *MemoryFeed) List(_ context.Context) ([]Activity, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	result := make([]Activity, len(f.activities))
	for i, a := range f.activities {
		result[len(f.activities)-1-i] = a
	}
	return result, nil
}

func (f *MemoryFeed) UnreadCount(_ context.Context) (int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	count := 0
	for _, a := range f.activities {
		if !a.Read {
			count++
		}
	}
	return count, nil
}

func (f *MemoryFeed) MarkRead(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.activities {
		if f.activities[i].ID == id {
			f.activities[i].Read = true
			return nil
		}
	}
	return nil
}

func (f *MemoryFeed) MarkAllRead(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.activities {
		f.activities[i].Read = true
	}
	return nil
}

func (f *MemoryFeed) ClearAll(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activities = nil
	return nil
}
