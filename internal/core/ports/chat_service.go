package ports

import (
	"context"

	"github.com/chatty/chat-server/internal/core/domain"
)

// SendMessageInput carries a new message from the transport layer. Image is
// either empty or an inline image payload (data URL or raw base64).
type SendMessageInput struct {
	SenderID   string
	ReceiverID string
	Text       string
	Image      string
}

// ChatService defines the conversation use cases.
type ChatService interface {
	ListPeers(ctx context.Context, actorID string) ([]*domain.User, error)
	GetMessages(ctx context.Context, actorID, peerID string) ([]*domain.Message, error)
	SendMessage(ctx context.Context, in SendMessageInput) (*domain.Message, error)
	DeleteConversation(ctx context.Context, actorID, peerID string) error
	DeleteMessage(ctx context.Context, actorID, messageID string) error
}
