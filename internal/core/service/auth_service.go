package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/chatty/chat-server/internal/api/metrics"
	"github.com/chatty/chat-server/internal/core/domain"
	"github.com/chatty/chat-server/internal/core/ports"
)

const minPasswordLen = 6

// AuthConfig holds the session and verification settings of AuthService.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	OTPTTL    time.Duration
}

// AuthService implements signup with e-mail verification, login, sessions
// and profile picture updates.
type AuthService struct {
	users   ports.UserRepository
	media   ports.MediaStore
	mailer  ports.Mailer
	resend  ports.RateLimiter
	cfg     AuthConfig
	logger  zerolog.Logger
	nowFunc func() time.Time
}

func NewAuthService(
	users ports.UserRepository,
	media ports.MediaStore,
	mailer ports.Mailer,
	resendLimiter ports.RateLimiter,
	cfg AuthConfig,
	logger zerolog.Logger,
) *AuthService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 7 * 24 * time.Hour
	}
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = 10 * time.Minute
	}
	return &AuthService{
		users:   users,
		media:   media,
		mailer:  mailer,
		resend:  resendLimiter,
		cfg:     cfg,
		logger:  logger,
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// Signup creates an unverified account and mails it a verification code.
func (s *AuthService) Signup(ctx context.Context, in ports.SignupInput) (*ports.AuthResult, error) {
	email := normalizeEmail(in.Email)
	userName := strings.TrimSpace(in.UserName)
	if email == "" || in.Password == "" || userName == "" {
		return nil, fmt.Errorf("%w: email, password and user name are required", domain.ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email address", domain.ErrValidation)
	}
	if len(in.Password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, minPasswordLen)
	}

	hash, err := hashSecret(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.nowFunc()
	user, err := s.users.Create(ctx, &domain.User{
		Email:        email,
		UserName:     userName,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil, err
		}
		return nil, unavailable("create user", err)
	}

	s.logger.Info().Str("user_id", user.ID).Msg("user signed up")

	if err := s.issueOTP(ctx, user); err != nil {
		return nil, err
	}
	return &ports.AuthResult{User: user, OTPSent: true}, nil
}

// Login checks the password. A verified user gets a session token; an
// unverified one is sent a fresh verification code instead.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.findUser(s.users.FindByEmail(ctx, email))
	if err != nil {
		return nil, err
	}
	if !secretMatches(user.PasswordHash, password) {
		return nil, domain.ErrInvalidCredentials
	}

	if !user.Verified {
		if err := s.issueOTP(ctx, user); err != nil {
			return nil, err
		}
		return &ports.AuthResult{User: user, OTPSent: true}, nil
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", user.ID).Msg("user logged in")
	return &ports.AuthResult{Token: token, User: user}, nil
}

// VerifyOTP completes verification and opens a session.
func (s *AuthService) VerifyOTP(ctx context.Context, email, otp string) (*ports.AuthResult, error) {
	user, err := s.findUser(s.users.FindByEmail(ctx, normalizeEmail(email)))
	if err != nil {
		return nil, err
	}
	if user.OTPHash == "" {
		return nil, domain.ErrInvalidOTP
	}
	if !user.OTPValid(s.nowFunc()) {
		return nil, domain.ErrOTPExpired
	}
	if !secretMatches(user.OTPHash, strings.TrimSpace(otp)) {
		return nil, domain.ErrInvalidOTP
	}

	if err := s.users.MarkVerified(ctx, user.ID); err != nil {
		return nil, unavailable("mark verified", err)
	}
	user.Verified = true
	user.OTPHash = ""
	user.OTPExpiresAt = time.Time{}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", user.ID).Msg("user verified")
	return &ports.AuthResult{Token: token, User: user}, nil
}

// ResendOTP mails a new code, at most once per cooldown window per address.
func (s *AuthService) ResendOTP(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	allowed, retryIn, err := s.resend.Allow(ctx, "otp:"+email)
	if err != nil {
		// fail open
		s.logger.Warn().Err(err).Msg("otp cooldown check failed, allowing")
	} else if !allowed {
		metrics.RateLimitedTotal.WithLabelValues("otp_resend").Inc()
		return fmt.Errorf("%w: retry in %s", domain.ErrRateLimited, retryIn.Round(time.Second))
	}

	user, err := s.findUser(s.users.FindByEmail(ctx, email))
	if err != nil {
		return err
	}
	if user.Verified {
		return fmt.Errorf("%w: account is already verified", domain.ErrValidation)
	}
	return s.issueOTP(ctx, user)
}

// CurrentUser returns the authenticated user.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.findUser(s.users.FindByID(ctx, userID))
}

// findUser keeps ErrUserNotFound as is and reports any other lookup failure
// as unavailable storage.
func (s *AuthService) findUser(user *domain.User, err error) (*domain.User, error) {
	if err == nil {
		return user, nil
	}
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}
	return nil, unavailable("find user", err)
}

// UpdateProfilePic replaces the avatar with an inline (data URL or base64)
// image.
func (s *AuthService) UpdateProfilePic(ctx context.Context, userID, image string) (*domain.User, error) {
	if image == "" {
		return nil, fmt.Errorf("%w: profile picture is required", domain.ErrValidation)
	}
	raw, contentType, err := decodeImage(image)
	if err != nil {
		return nil, err
	}
	return s.replaceAvatar(ctx, userID, raw, contentType)
}

// UpdateAvatar replaces the avatar with an uploaded file.
func (s *AuthService) UpdateAvatar(ctx context.Context, userID string, upload ports.AvatarUpload) (*domain.User, error) {
	contentType, err := imageType(upload.Data)
	if err != nil {
		return nil, err
	}
	return s.replaceAvatar(ctx, userID, upload.Data, contentType)
}

// replaceAvatar uploads the new image first. Removing the previous one is
// best-effort and never fails the update.
func (s *AuthService) replaceAvatar(ctx context.Context, userID string, raw []byte, contentType string) (*domain.User, error) {
	user, err := s.findUser(s.users.FindByID(ctx, userID))
	if err != nil {
		return nil, err
	}

	url, err := s.media.Upload(ctx, raw, contentType)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("avatar upload failed")
		return nil, unavailable("upload avatar", err)
	}

	if user.ProfilePic != "" {
		if err := s.media.Delete(ctx, user.ProfilePic); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Str("url", user.ProfilePic).Msg("failed to delete previous avatar")
		}
	}

	updated, err := s.users.UpdateProfilePic(ctx, userID, url)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, unavailable("update profile picture", err)
	}

	s.logger.Info().Str("user_id", userID).Msg("profile picture updated")
	return updated, nil
}

// issueOTP stores a fresh code on the user and mails it.
func (s *AuthService) issueOTP(ctx context.Context, user *domain.User) error {
	otp, err := generateOTP()
	if err != nil {
		return err
	}
	hash, err := hashSecret(otp)
	if err != nil {
		return err
	}

	expiresAt := s.nowFunc().Add(s.cfg.OTPTTL)
	if err := s.users.SetOTP(ctx, user.ID, hash, expiresAt); err != nil {
		return unavailable("store otp", err)
	}
	user.OTPHash = hash
	user.OTPExpiresAt = expiresAt

	if err := s.mailer.SendOTP(ctx, user.Email, otp); err != nil {
		metrics.OTPMailsTotal.WithLabelValues("failed").Inc()
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to send otp")
		return unavailable("send otp", err)
	}
	metrics.OTPMailsTotal.WithLabelValues("sent").Inc()
	s.logger.Info().Str("user_id", user.ID).Msg("otp sent")
	return nil
}

func (s *AuthService) generateToken(user *domain.User) (string, error) {
	now := s.nowFunc()
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(s.cfg.TokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.cfg.JWTSecret))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
