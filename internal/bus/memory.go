package bus

import (
	"context"
	"sync"
)

// MemoryBus is the in-process Bus for single-instance deployments. The
// registry is the only state mutated concurrently by connection tasks;
// membership changes take the write lock, publishes snapshot the member set
// under the read lock and deliver outside it so a slow subscriber never
// holds up membership changes.
type MemoryBus struct {
	mu     sync.RWMutex
	groups map[string]map[Subscriber]struct{}
}

// NewMemoryBus creates an empty MemoryBus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{groups: make(map[string]map[Subscriber]struct{})}
}

// Join registers a subscriber in a group.
func (b *MemoryBus) Join(group string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.groups[group]; !ok {
		b.groups[group] = make(map[Subscriber]struct{})
	}
	b.groups[group][sub] = struct{}{}
}

// Leave removes a subscriber from a group, dropping the group when empty.
func (b *MemoryBus) Leave(group string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if subs, ok := b.groups[group]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.groups, group)
		}
	}
}

// Publish delivers the event to every subscriber currently in the group.
func (b *MemoryBus) Publish(ctx context.Context, group string, evt Event) error {
	b.mu.RLock()
	members := make([]Subscriber, 0, len(b.groups[group]))
	for sub := range b.groups[group] {
		members = append(members, sub)
	}
	b.mu.RUnlock()

	for _, sub := range members {
		sub.Deliver(evt)
	}
	return nil
}
