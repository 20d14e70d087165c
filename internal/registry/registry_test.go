package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeSubscriber struct {
	id     string
	refuse bool

	mu  sync.Mutex
	got []interface{}
}

func (f *fakeSubscriber) ID() string { return f.id }

func (f *fakeSubscriber) Deliver(payload interface{}) bool {
	if f.refuse {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, payload)
	return true
}

func (f *fakeSubscriber) received() []interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]interface{}(nil), f.got...)
}

func TestBroadcastReachesOnlyRoomMembers(t *testing.T) {
	reg := New()
	a := &fakeSubscriber{id: "a"}
	b := &fakeSubscriber{id: "b"}
	c := &fakeSubscriber{id: "c"}

	reg.Join("r1", a)
	reg.Join("r1", b)
	reg.Join("r2", c)

	delivered := reg.Broadcast("r1", "hello")

	assert.Equal(t, 2, delivered)
	assert.Len(t, a.received(), 1)
	assert.Len(t, b.received(), 1)
	assert.Empty(t, c.received())
}

func TestJoinIsIdempotent(t *testing.T) {
	reg := New()
	a := &fakeSubscriber{id: "a"}

	reg.Join("r1", a)
	reg.Join("r1", a)

	delivered := reg.Broadcast("r1", "hello")
	assert.Equal(t, 1, delivered)
	assert.Len(t, a.received(), 1)
}

func TestBroadcastToEmptyRoomIsNoOp(t *testing.T) {
	reg := New()
	assert.Equal(t, 0, reg.Broadcast("nobody-here", "hello"))
}

func TestSubscriberMayJoinMultipleRooms(t *testing.T) {
	reg := New()
	a := &fakeSubscriber{id: "a"}

	reg.Join("r1", a)
	reg.Join("r2", a)

	reg.Broadcast("r1", "one")
	reg.Broadcast("r2", "two")

	assert.Equal(t, []interface{}{"one", "two"}, a.received())
}

func TestRemoveDropsAllMembershipsAndPrunesRooms(t *testing.T) {
	reg := New()
	a := &fakeSubscriber{id: "a"}
	b := &fakeSubscriber{id: "b"}

	reg.Join("r1", a)
	reg.Join("r2", a)
	reg.Join("r1", b)

	removed := reg.Remove(a)
	assert.ElementsMatch(t, []string{"r1", "r2"}, removed)

	// r2 had only a, so it is gone entirely
	assert.ElementsMatch(t, []string{"r1"}, reg.Rooms())
	assert.ElementsMatch(t, []string{"b"}, reg.Members("r1"))

	assert.Equal(t, 1, reg.Broadcast("r1", "hello"))
	assert.Empty(t, a.received())
}

func TestRemoveUnknownSubscriberIsHarmless(t *testing.T) {
	reg := New()
	assert.Empty(t, reg.Remove(&fakeSubscriber{id: "ghost"}))
}

func TestDefunctSubscriberIsDroppedOnBroadcast(t *testing.T) {
	reg := New()
	dead := &fakeSubscriber{id: "dead", refuse: true}
	live := &fakeSubscriber{id: "live"}

	reg.Join("r1", dead)
	reg.Join("r1", live)

	delivered := reg.Broadcast("r1", "hello")
	assert.Equal(t, 1, delivered)
	assert.ElementsMatch(t, []string{"live"}, reg.Members("r1"))

	// Subsequent broadcasts no longer see the dead subscriber
	assert.Equal(t, 1, reg.Broadcast("r1", "again"))
	assert.Len(t, live.received(), 2)
}
