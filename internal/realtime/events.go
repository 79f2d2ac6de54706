package realtime

import (
	"encoding/json"

	"github.com/chatty/chat-server/internal/core/ports"
)

// Event names sent from the server to clients.
const (
	EventOnlineUsersChanged  = "online_users_changed"
	EventNewMessage          = ports.EventNewMessage
	EventMessageDeleted      = ports.EventMessageDeleted
	EventConversationDeleted = ports.EventConversationDeleted
	EventPong                = "pong"
)

// Event names accepted from clients.
const (
	EventPing = "ping"
)

// Frame is the JSON envelope of every event on the wire:
//
//	{"event": "new_message", "data": {...}}
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type (
	MessageDeletedPayload      = ports.MessageDeletedPayload
	ConversationDeletedPayload = ports.ConversationDeletedPayload
)

// encodeFrame serialises an outbound event. A nil payload produces a frame
// without data.
func encodeFrame(event string, payload any) ([]byte, error) {
	f := Frame{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		f.Data = data
	}
	return json.Marshal(f)
}

// decodeFrame parses an inbound frame.
func decodeFrame(raw []byte) (Frame, error) {
	var f Frame
	err := json.Unmarshal(raw, &f)
	return f, err
}
