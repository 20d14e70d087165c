package port

import (
	"context"

	"github.com/sghaffari/chatrelay/internal/domain"
)

// MessageStore is the durable store the relay writes messages to and reads
// sender profiles from.
type MessageStore interface {
	CreateMessage(ctx context.Context, roomID, senderID, content string) (domain.Message, error)
	FetchProfile(ctx context.Context, senderID string) (*domain.Profile, error)
}

// Broadcaster fans a payload out to every current subscriber of a room.
type Broadcaster interface {
	Broadcast(roomID string, payload interface{}) int
}
