package ports

import (
	"context"

	"github.com/chatty/chat-server/internal/core/domain"
)

// MessageRepository defines persistence operations for direct messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) (*domain.Message, error)
	FindByID(ctx context.Context, id string) (*domain.Message, error)
	// FindBetween returns the messages exchanged between a and b in either
	// direction, oldest first.
	FindBetween(ctx context.Context, a, b string) ([]*domain.Message, error)
	// DeleteBetween removes every message exchanged between a and b and
	// returns how many were removed.
	DeleteBetween(ctx context.Context, a, b string) (int64, error)
	Delete(ctx context.Context, id string) error
}
