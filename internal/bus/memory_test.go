package bus

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSub struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSub) Deliver(evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recordingSub) received() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func TestMemoryBusPublishReachesMembers(t *testing.T) {
	b := NewMemoryBus()
	first := &recordingSub{}
	second := &recordingSub{}

	b.Join("room:1", first)
	b.Join("room:1", second)

	require.NoError(t, b.Publish(context.Background(), "room:1", NewEvent("chat_message", map[string]int{"message_id": 7})))

	require.Len(t, first.received(), 1)
	require.Len(t, second.received(), 1)
	assert.Equal(t, "chat_message", first.received()[0].Type)
}

func TestMemoryBusNoDeliveryAfterLeave(t *testing.T) {
	b := NewMemoryBus()
	sub := &recordingSub{}

	b.Join("room:1", sub)
	b.Leave("room:1", sub)

	require.NoError(t, b.Publish(context.Background(), "room:1", NewEvent("typing_indicator", nil)))
	assert.Empty(t, sub.received())
}

func TestMemoryBusGroupsAreIndependent(t *testing.T) {
	b := NewMemoryBus()
	roomSub := &recordingSub{}
	otherSub := &recordingSub{}

	b.Join("room:1", roomSub)
	b.Join("room:2", otherSub)

	require.NoError(t, b.Publish(context.Background(), "room:1", NewEvent("chat_message", nil)))

	assert.Len(t, roomSub.received(), 1)
	assert.Empty(t, otherSub.received())
}

func TestMemoryBusPublishToEmptyGroup(t *testing.T) {
	b := NewMemoryBus()
	require.NoError(t, b.Publish(context.Background(), "room:99", NewEvent("chat_message", nil)))
}

func TestMemoryBusConcurrentMembershipAndPublish(t *testing.T) {
	b := NewMemoryBus()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sub := &recordingSub{}
			group := fmt.Sprintf("room:%d", i%5)
			b.Join(group, sub)
			_ = b.Publish(context.Background(), group, NewEvent("chat_message", nil))
			b.Leave(group, sub)
		}(i)
	}
	wg.Wait()
}

func TestGroupNames(t *testing.T) {
	assert.Equal(t, "room:42", RoomGroup(42))
	assert.Equal(t, "notifications:7", NotificationGroup(7))
}
