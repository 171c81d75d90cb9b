package bus

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisBus is the networked Bus for multi-instance deployments. Each group
// maps to a Redis pub/sub channel; publishes go through Redis so every
// instance sees them, and each instance fans received events out to its
// local subscribers.
type RedisBus struct {
	rdb    *redis.Client
	mu     sync.Mutex
	groups map[string]*redisGroup
}

type redisGroup struct {
	subs   map[Subscriber]struct{}
	pubsub *redis.PubSub
}

// NewRedisBus creates a RedisBus on an existing client.
func NewRedisBus(rdb *redis.Client) *RedisBus {
	return &RedisBus{rdb: rdb, groups: make(map[string]*redisGroup)}
}

// Join registers a local subscriber and opens the group's Redis
// subscription on first join.
func (b *RedisBus) Join(group string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	g, ok := b.groups[group]
	if !ok {
		g = &redisGroup{
			subs:   make(map[Subscriber]struct{}),
			pubsub: b.rdb.Subscribe(context.Background(), group),
		}
		b.groups[group] = g
		go b.fanOut(group, g.pubsub)
	}
	g.subs[sub] = struct{}{}
}

// Leave removes a local subscriber, closing the Redis subscription when the
// last one is gone.
func (b *RedisBus) Leave(group string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	g, ok := b.groups[group]
	if !ok {
		return
	}
	delete(g.subs, sub)
	if len(g.subs) == 0 {
		_ = g.pubsub.Close()
		delete(b.groups, group)
	}
}

// Publish sends the event through Redis so all instances deliver it.
func (b *RedisBus) Publish(ctx context.Context, group string, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, group, payload).Err()
}

func (b *RedisBus) fanOut(group string, pubsub *redis.PubSub) {
	for msg := range pubsub.Channel() {
		var evt Event
		if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
			log.Printf("bus: dropping malformed event on %s: %v", group, err)
			continue
		}

		b.mu.Lock()
		g, ok := b.groups[group]
		members := make([]Subscriber, 0, 4)
		if ok {
			for sub := range g.subs {
				members = append(members, sub)
			}
		}
		b.mu.Unlock()

		for _, sub := range members {
			sub.Deliver(evt)
		}
	}
}
