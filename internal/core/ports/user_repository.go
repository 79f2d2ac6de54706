package ports

import (
	"context"
	"time"

	"github.com/chatty/chat-server/internal/core/domain"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	// Create inserts a user. Returns domain.ErrUserExists when the email or
	// user name is already taken.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// ListExcept returns every user except the one with the given id.
	ListExcept(ctx context.Context, id string) ([]*domain.User, error)
	SetOTP(ctx context.Context, id, otpHash string, expiresAt time.Time) error
	// MarkVerified flags the user as verified and clears any pending OTP.
	MarkVerified(ctx context.Context, id string) error
	UpdateProfilePic(ctx context.Context, id, url string) (*domain.User, error)
}
