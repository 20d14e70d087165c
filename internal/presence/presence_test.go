package presence

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sghaffari/chatrelay/pkg/logger"
)

func setupTracker(t *testing.T) *Tracker {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/15"
	}

	ctx := context.Background()
	tracker, err := NewTracker(ctx, redisURL, logger.NewLogger("error", ""))
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	require.NoError(t, tracker.FlushAll(ctx))
	t.Cleanup(func() {
		tracker.FlushAll(ctx)
		tracker.Close()
	})

	return tracker
}

func TestNilTrackerIsNoOp(t *testing.T) {
	var tracker *Tracker
	ctx := context.Background()

	tracker.Connect(ctx, "s1")
	tracker.JoinRoom(ctx, "r1", "s1")
	tracker.LeaveRoom(ctx, "r1", "s1")
	tracker.Disconnect(ctx, "s1")

	members, err := tracker.RoomMembers(ctx, "r1")
	assert.NoError(t, err)
	assert.Empty(t, members)
	assert.NoError(t, tracker.Close())
}

func TestSessionTracking(t *testing.T) {
	tracker := setupTracker(t)
	ctx := context.Background()

	tracker.Connect(ctx, "s1")
	tracker.Connect(ctx, "s2")

	sessions, err := tracker.ActiveSessions(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s1", "s2"}, sessions)

	tracker.Disconnect(ctx, "s1")

	sessions, err = tracker.ActiveSessions(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s2"}, sessions)
}

func TestRoomMembershipTracking(t *testing.T) {
	tracker := setupTracker(t)
	ctx := context.Background()

	tracker.JoinRoom(ctx, "r1", "s1")
	tracker.JoinRoom(ctx, "r1", "s2")

	members, err := tracker.RoomMembers(ctx, "r1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s1", "s2"}, members)

	rooms, err := tracker.Rooms(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"r1"}, rooms)

	tracker.LeaveRoom(ctx, "r1", "s1")
	tracker.LeaveRoom(ctx, "r1", "s2")

	// Empty rooms are pruned from the tracked set
	rooms, err = tracker.Rooms(ctx)
	require.NoError(t, err)
	assert.Empty(t, rooms)
}
