package domain

import "time"

// Relay subjects of the conversation events published to subscribers outside
// this process.
const (
	SubjectMessageCreated      = "chat.message.created"
	SubjectMessageDeleted      = "chat.message.deleted"
	SubjectConversationDeleted = "chat.conversation.deleted"
)

// ConversationDeletedEvent records that By removed every message exchanged
// with Peer.
type ConversationDeletedEvent struct {
	By      string    `json:"by"`
	Peer    string    `json:"peer"`
	Deleted int64     `json:"deleted"`
	At      time.Time `json:"at"`
}

// MessageDeletedEvent records the removal of a single message.
type MessageDeletedEvent struct {
	MessageID  string    `json:"message_id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	At         time.Time `json:"at"`
}
