package domain

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidOTP         = errors.New("invalid otp")
	ErrOTPExpired         = errors.New("otp expired")
	ErrRateLimited        = errors.New("too many requests")

	ErrMessageNotFound = errors.New("message not found")
	ErrForbidden       = errors.New("access forbidden")

	// ErrValidation is wrapped with a human readable detail, e.g.
	// fmt.Errorf("%w: text or image is required", ErrValidation).
	ErrValidation = errors.New("validation failed")

	// ErrUnavailable marks a storage, media or mail collaborator failure.
	ErrUnavailable = errors.New("dependency unavailable")
)
