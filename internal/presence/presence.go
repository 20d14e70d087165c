package presence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/sghaffari/chatrelay/pkg/logger"
)

const (
	activeSessionsKey = "active_sessions"
	allRoomsKey       = "all_rooms"
)

// Tracker mirrors connection and room membership into Redis for diagnostics.
// Routing never reads from it; the in-memory registry stays authoritative.
// A nil Tracker is valid and turns every method into a no-op, so the relay
// runs fine without Redis configured.
type Tracker struct {
	client *redis.Client
	logger logger.Logger
}

func NewTracker(ctx context.Context, redisURL string, logg logger.Logger) (*Tracker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Tracker{client: client, logger: logg}, nil
}

func roomKey(roomID string) string {
	return "room:" + roomID
}

// Connect records a new live session.
func (t *Tracker) Connect(ctx context.Context, sessionID string) {
	if t == nil {
		return
	}
	if err := t.client.SAdd(ctx, activeSessionsKey, sessionID).Err(); err != nil {
		t.logger.Errorf("failed to record session %s: %v", sessionID, err)
	}
}

// Disconnect removes a session from the active set.
func (t *Tracker) Disconnect(ctx context.Context, sessionID string) {
	if t == nil {
		return
	}
	if err := t.client.SRem(ctx, activeSessionsKey, sessionID).Err(); err != nil {
		t.logger.Errorf("failed to remove session %s: %v", sessionID, err)
	}
}

// JoinRoom records room membership for a session.
func (t *Tracker) JoinRoom(ctx context.Context, roomID, sessionID string) {
	if t == nil {
		return
	}
	if err := t.client.SAdd(ctx, roomKey(roomID), sessionID).Err(); err != nil {
		t.logger.Errorf("failed to record room membership %s/%s: %v", roomID, sessionID, err)
		return
	}
	if err := t.client.SAdd(ctx, allRoomsKey, roomID).Err(); err != nil {
		t.logger.Errorf("failed to track room %s: %v", roomID, err)
	}
}

// LeaveRoom drops room membership and prunes the room from the tracked set
// once its last member leaves.
func (t *Tracker) LeaveRoom(ctx context.Context, roomID, sessionID string) {
	if t == nil {
		return
	}
	key := roomKey(roomID)
	if err := t.client.SRem(ctx, key, sessionID).Err(); err != nil {
		t.logger.Errorf("failed to remove room membership %s/%s: %v", roomID, sessionID, err)
		return
	}

	members, err := t.client.SMembers(ctx, key).Result()
	if err != nil {
		t.logger.Errorf("failed to list room members %s: %v", roomID, err)
		return
	}
	if len(members) == 0 {
		if err := t.client.SRem(ctx, allRoomsKey, roomID).Err(); err != nil {
			t.logger.Errorf("failed to prune empty room %s: %v", roomID, err)
		}
	}
}

// ActiveSessions lists the ids of all live sessions.
func (t *Tracker) ActiveSessions(ctx context.Context) ([]string, error) {
	if t == nil {
		return nil, nil
	}
	return t.client.SMembers(ctx, activeSessionsKey).Result()
}

// RoomMembers lists the session ids recorded for a room.
func (t *Tracker) RoomMembers(ctx context.Context, roomID string) ([]string, error) {
	if t == nil {
		return nil, nil
	}
	return t.client.SMembers(ctx, roomKey(roomID)).Result()
}

// Rooms lists every room with recorded membership.
func (t *Tracker) Rooms(ctx context.Context) ([]string, error) {
	if t == nil {
		return nil, nil
	}
	return t.client.SMembers(ctx, allRoomsKey).Result()
}

// FlushAll clears the backing Redis database. Test helper.
func (t *Tracker) FlushAll(ctx context.Context) error {
	if t == nil {
		return nil
	}
	return t.client.FlushAll(ctx).Err()
}

// Close closes the Redis connection.
func (t *Tracker) Close() error {
	if t == nil {
		return nil
	}
	return t.client.Close()
}
