package domain

import (
	"encoding/json"
	"fmt"
)

// Event names carried in the Envelope frame. joinRoom and sendMessage are
// inbound from clients, newMessage is the only outbound event.
const (
	EventJoinRoom    = "joinRoom"
	EventSendMessage = "sendMessage"
	EventNewMessage  = "newMessage"
)

// FallbackNickname is substituted when the sender has no profile row or the
// profile lookup fails.
const FallbackNickname = "unknown"

// Envelope is the inbound WebSocket frame: an event name plus its payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinRoomRequest is the payload of a joinRoom event. Clients send either a
// bare room id string or an object with an optional senderId, which is used
// for logging only.
type JoinRoomRequest struct {
	RoomID   string `json:"roomId"`
	SenderID string `json:"senderId,omitempty"`
}

func (r *JoinRoomRequest) UnmarshalJSON(data []byte) error {
	var roomID string
	if err := json.Unmarshal(data, &roomID); err == nil {
		*r = JoinRoomRequest{RoomID: roomID}
		return nil
	}

	type plain JoinRoomRequest
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = JoinRoomRequest(p)
	return nil
}

func (r JoinRoomRequest) Validate() error {
	if r.RoomID == "" {
		return fmt.Errorf("joinRoom: roomId is required")
	}
	return nil
}

// SendMessageRequest is the payload of a sendMessage event. The sender id is
// client-asserted and never verified.
type SendMessageRequest struct {
	RoomID   string `json:"roomId"`
	SenderID string `json:"senderId"`
	Content  string `json:"content"`
}

func (r SendMessageRequest) Validate() error {
	if r.RoomID == "" {
		return fmt.Errorf("sendMessage: roomId is required")
	}
	if r.SenderID == "" {
		return fmt.Errorf("sendMessage: senderId is required")
	}
	if r.Content == "" {
		return fmt.Errorf("sendMessage: content is required")
	}
	return nil
}

// Message is a persisted message row as the store returns it. The id and
// creation timestamp are assigned by the store; the relay never mutates a row.
type Message struct {
	ID        int64  `json:"id"`
	RoomID    string `json:"room_id"`
	SenderID  string `json:"sender_id"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// Profile is the display identity projection looked up by sender id.
type Profile struct {
	Nickname string `json:"nickname"`
}

// Sender is the display identity embedded in an EnrichedMessage.
type Sender struct {
	Nickname string `json:"nickname"`
}

// EnrichedMessage is the broadcast payload: the persisted row plus the sender
// nickname. It is constructed per broadcast and never stored.
type EnrichedMessage struct {
	ID        int64  `json:"id"`
	RoomID    string `json:"roomId"`
	SenderID  string `json:"senderId"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
	Sender    Sender `json:"sender"`
}

// NewMessageEvent is the outbound newMessage frame.
type NewMessageEvent struct {
	Event string          `json:"event"`
	Data  EnrichedMessage `json:"data"`
}

// Enrich builds the newMessage frame for a persisted row.
func Enrich(msg Message, nickname string) NewMessageEvent {
	return NewMessageEvent{
		Event: EventNewMessage,
		Data: EnrichedMessage{
			ID:        msg.ID,
			RoomID:    msg.RoomID,
			SenderID:  msg.SenderID,
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
			Sender:    Sender{Nickname: nickname},
		},
	}
}
