package ports

import (
	"context"

	"github.com/chatty/chat-server/internal/core/domain"
)

// SignupInput carries the fields required to create an account.
type SignupInput struct {
	Email    string
	Password string
	UserName string
}

// AuthResult is returned by the login-style operations. When OTPSent is true
// the caller must complete verification and Token is empty.
type AuthResult struct {
	Token   string
	User    *domain.User
	OTPSent bool
}

// AvatarUpload is a raw image received through a multipart form.
type AvatarUpload struct {
	Data        []byte
	ContentType string
}

// AuthService defines account, session and profile use cases.
type AuthService interface {
	Signup(ctx context.Context, in SignupInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	VerifyOTP(ctx context.Context, email, otp string) (*AuthResult, error)
	ResendOTP(ctx context.Context, email string) error
	CurrentUser(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfilePic(ctx context.Context, userID, image string) (*domain.User, error)
	UpdateAvatar(ctx context.Context, userID string, upload AvatarUpload) (*domain.User, error)
}
