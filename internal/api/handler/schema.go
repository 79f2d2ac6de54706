package handler

import "github.com/chatty/chat-server/internal/core/domain"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Auth ---

type signupRequest struct {
	Email    string `json:"email"     validate:"required,email"`
	Password string `json:"password"  validate:"required,min=6"`
	UserName string `json:"user_name" validate:"required,max=32,displayname"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type verifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp"   validate:"required,len=6,numeric"`
}

type resendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type updateProfileRequest struct {
	// ProfilePic is a data URL or bare base64 image.
	ProfilePic string `json:"profile_pic" validate:"required"`
}

// authResponse is returned by signup, login and verification. Exactly one of
// Token or OTPSent is set.
type authResponse struct {
	Token   string       `json:"token,omitempty"`
	User    *domain.User `json:"user,omitempty"`
	OTPSent bool         `json:"otp_sent,omitempty"`
	Email   string       `json:"email,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// --- Messages ---

type sendMessageRequest struct {
	Text  string `json:"text"  validate:"max=4000"`
	Image string `json:"image"`
}
