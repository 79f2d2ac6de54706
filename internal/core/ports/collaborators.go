package ports

import (
	"context"
	"time"
)

// MediaStore turns an image payload into a durable, fetchable URL.
type MediaStore interface {
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// Mailer delivers one-time codes to users.
type Mailer interface {
	SendOTP(ctx context.Context, email, otp string) error
}

// RateLimiter counts attempts per key inside a fixed window.
type RateLimiter interface {
	// Allow records one attempt for key and reports whether it is within the
	// limit, together with the time left until the window resets.
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// Events a Notifier delivers to live connections.
const (
	EventNewMessage          = "new_message"
	EventMessageDeleted      = "message_deleted"
	EventConversationDeleted = "conversation_deleted"
)

// MessageDeletedPayload is the data of a message_deleted event.
type MessageDeletedPayload struct {
	MessageID string `json:"message_id"`
}

// ConversationDeletedPayload is the data of a conversation_deleted event.
// By is the id of the user who deleted the conversation.
type ConversationDeletedPayload struct {
	By string `json:"by"`
}

// Notifier delivers a named event to the live connection of one user. It is
// best-effort: an offline user is a silent no-op.
type Notifier interface {
	EmitToUser(userID, event string, payload any)
}

// DomainEvent is a conversation change relayed to external subscribers.
type DomainEvent struct {
	// Subject is the relay subject, e.g. "chat.message.created".
	Subject string
	// Key groups events whose relative order must be kept.
	Key     string
	Payload any
}

// EventRelay hands domain events to the publish-subscribe relay without
// blocking the caller.
type EventRelay interface {
	Enqueue(event DomainEvent)
}
