package domain

import "time"

// User models a registered chat participant.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	UserName     string    `json:"user_name"`
	PasswordHash string    `json:"-"`
	ProfilePic   string    `json:"profile_pic"`
	Verified     bool      `json:"verified"`
	OTPHash      string    `json:"-"`
	OTPExpiresAt time.Time `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// OTPValid reports whether the user holds an unexpired one-time code at now.
func (u *User) OTPValid(now time.Time) bool {
	return u.OTPHash != "" && now.Before(u.OTPExpiresAt)
}
