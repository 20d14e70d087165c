package service

import (
	"context"
	"time"

	"github.com/sghaffari/chatrelay/internal/domain"
	"github.com/sghaffari/chatrelay/internal/port"
	"github.com/sghaffari/chatrelay/pkg/logger"
)

// RelayService runs the persist-then-broadcast pipeline for inbound messages.
// Relay is fire-and-forget from the session's point of view: the outcome is
// never reported back to the sender, only the eventual broadcast.
type RelayService interface {
	Relay(ctx context.Context, req domain.SendMessageRequest)
}

type relayService struct {
	store        port.MessageStore
	rooms        port.Broadcaster
	logger       logger.Logger
	storeTimeout time.Duration
}

func NewRelayService(store port.MessageStore, rooms port.Broadcaster, logg logger.Logger, storeTimeout time.Duration) RelayService {
	return &relayService{
		store:        store,
		rooms:        rooms,
		logger:       logg,
		storeTimeout: storeTimeout,
	}
}

// Relay persists the message, enriches it with the sender nickname, and
// broadcasts the result to the room. Every failure is contained here: a bad
// request or a failed write ends the sequence with a log line and no
// broadcast, and never disturbs other in-flight sends.
func (s *relayService) Relay(ctx context.Context, req domain.SendMessageRequest) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorf("recovered from panic while relaying message (room=%s sender=%s): %v", req.RoomID, req.SenderID, r)
		}
	}()

	if err := req.Validate(); err != nil {
		s.logger.Errorf("rejected malformed message: %v", err)
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	// The broadcast must never race the write, so the store call is awaited
	// here and the returned row is only touched once the write succeeded.
	msg, err := s.store.CreateMessage(writeCtx, req.RoomID, req.SenderID, req.Content)
	if err != nil {
		s.logger.Errorf("message write failed (room=%s sender=%s): %v", req.RoomID, req.SenderID, err)
		return
	}

	nickname := s.lookupNickname(ctx, msg.SenderID)

	// Messages persisted concurrently by different senders may broadcast in
	// either order; only persist-before-broadcast per message is guaranteed.
	delivered := s.rooms.Broadcast(msg.RoomID, domain.Enrich(msg, nickname))
	s.logger.Debugf("relayed message %d to room %s (%d recipients)", msg.ID, msg.RoomID, delivered)
}

// lookupNickname resolves the sender's display name. Enrichment degrades
// gracefully: a failed lookup or a missing profile falls back to a
// placeholder instead of blocking the broadcast.
func (s *relayService) lookupNickname(ctx context.Context, senderID string) string {
	readCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	profile, err := s.store.FetchProfile(readCtx, senderID)
	if err != nil {
		s.logger.Warnf("profile lookup failed for sender %s, using fallback nickname: %v", senderID, err)
		return domain.FallbackNickname
	}
	if profile == nil || profile.Nickname == "" {
		return domain.FallbackNickname
	}
	return profile.Nickname
}
