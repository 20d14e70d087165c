package websocket

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/sghaffari/chatrelay/internal/domain"
	"github.com/sghaffari/chatrelay/internal/presence"
	"github.com/sghaffari/chatrelay/internal/registry"
	"github.com/sghaffari/chatrelay/pkg/logger"
	"github.com/sghaffari/chatrelay/service"
)

const sendBufferSize = 256

// Session is one live WebSocket connection. It registers itself with the
// room registry on joinRoom events and hands sendMessage events to the relay
// service without waiting for the outcome.
type Session struct {
	id       string
	ws       *websocket.Conn
	send     chan interface{}
	registry *registry.Registry
	relay    service.RelayService
	presence *presence.Tracker
	remote   string
	logger   logger.Logger

	mu     sync.Mutex
	closed bool
}

// NewSession wraps an upgraded connection. remote is the best-effort client
// address captured for logging only.
func NewSession(id string, ws *websocket.Conn, reg *registry.Registry, relay service.RelayService, pres *presence.Tracker, remote string, logg logger.Logger) *Session {
	return &Session{
		id:       id,
		ws:       ws,
		send:     make(chan interface{}, sendBufferSize),
		registry: reg,
		relay:    relay,
		presence: pres,
		remote:   remote,
		logger:   logg.WithFields(map[string]interface{}{"session": id, "remote": remote}),
	}
}

func (s *Session) ID() string { return s.id }

// Deliver queues a payload for the client without blocking. It reports false
// when the session is gone or its buffer is full, so broadcasting to a
// defunct connection stays a cheap no-op.
func (s *Session) Deliver(payload interface{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	select {
	case s.send <- payload:
		return true
	default:
		return false
	}
}

// ReadPump reads frames until the transport drops, dispatching events. It
// owns teardown: membership and presence are cleaned up here, with no
// coordinator involvement.
func (s *Session) ReadPump() {
	defer func() {
		rooms := s.registry.Remove(s)
		ctx := context.Background()
		for _, roomID := range rooms {
			s.presence.LeaveRoom(ctx, roomID, s.id)
		}
		s.presence.Disconnect(ctx, s.id)
		s.shutdown()
		s.logger.Infof("session closed (left %d rooms)", len(rooms))
	}()

	for {
		var env domain.Envelope
		if err := s.ws.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Errorf("read error: %v", err)
			}
			return
		}

		switch env.Event {
		case domain.EventJoinRoom:
			s.handleJoinRoom(env.Data)
		case domain.EventSendMessage:
			s.handleSendMessage(env.Data)
		default:
			s.logger.Warnf("ignoring unknown event %q", env.Event)
		}
	}
}

// WritePump serializes all outbound frames for this connection.
func (s *Session) WritePump() {
	defer s.ws.Close()

	for payload := range s.send {
		if err := s.ws.WriteJSON(payload); err != nil {
			s.logger.Errorf("write error: %v", err)
			return
		}
	}
}

func (s *Session) handleJoinRoom(data json.RawMessage) {
	var req domain.JoinRoomRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.logger.Errorf("malformed joinRoom payload: %v", err)
		return
	}
	if err := req.Validate(); err != nil {
		s.logger.Errorf("rejected join: %v", err)
		return
	}

	s.registry.Join(req.RoomID, s)
	s.presence.JoinRoom(context.Background(), req.RoomID, s.id)

	// The sender hint is diagnostic only, never used for authorization.
	if req.SenderID != "" {
		s.logger.Infof("joined room %s (sender hint %s)", req.RoomID, req.SenderID)
	} else {
		s.logger.Infof("joined room %s", req.RoomID)
	}
}

func (s *Session) handleSendMessage(data json.RawMessage) {
	var req domain.SendMessageRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.logger.Errorf("malformed sendMessage payload: %v", err)
		return
	}

	// Fire-and-forget: the pipeline runs on its own goroutine with a fresh
	// context so a disconnect mid-send cannot cancel the persist step.
	go s.relay.Relay(context.Background(), req)
}

// shutdown marks the session closed and releases the writer. Safe to call
// more than once; Deliver holds the same lock, so no send can race the close.
func (s *Session) shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	close(s.send)
	s.ws.Close()
}

// ClientAddr derives the best-effort origin address for a session, preferring
// the first hop of a forwarded-for header over the raw transport address.
func ClientAddr(forwardedFor, remoteAddr string) string {
	if forwardedFor != "" {
		if i := strings.IndexByte(forwardedFor, ','); i >= 0 {
			forwardedFor = forwardedFor[:i]
		}
		return strings.TrimSpace(forwardedFor)
	}
	return remoteAddr
}
