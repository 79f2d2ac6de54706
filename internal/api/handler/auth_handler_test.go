package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/chatty/chat-server/internal/api/middleware"
	"github.com/chatty/chat-server/internal/core/domain"
	"github.com/chatty/chat-server/internal/core/ports"
)

type stubAuthService struct {
	signupFn       func(ctx context.Context, in ports.SignupInput) (*ports.AuthResult, error)
	loginFn        func(ctx context.Context, email, password string) (*ports.AuthResult, error)
	verifyFn       func(ctx context.Context, email, otp string) (*ports.AuthResult, error)
	resendFn       func(ctx context.Context, email string) error
	currentUserFn  func(ctx context.Context, userID string) (*domain.User, error)
	profilePicFn   func(ctx context.Context, userID, image string) (*domain.User, error)
	updateAvatarFn func(ctx context.Context, userID string, upload ports.AvatarUpload) (*domain.User, error)
}

func (s *stubAuthService) Signup(ctx context.Context, in ports.SignupInput) (*ports.AuthResult, error) {
	return s.signupFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) VerifyOTP(ctx context.Context, email, otp string) (*ports.AuthResult, error) {
	return s.verifyFn(ctx, email, otp)
}

func (s *stubAuthService) ResendOTP(ctx context.Context, email string) error {
	return s.resendFn(ctx, email)
}

func (s *stubAuthService) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.currentUserFn(ctx, userID)
}

func (s *stubAuthService) UpdateProfilePic(ctx context.Context, userID, image string) (*domain.User, error) {
	return s.profilePicFn(ctx, userID, image)
}

func (s *stubAuthService) UpdateAvatar(ctx context.Context, userID string, upload ports.AvatarUpload) (*domain.User, error) {
	return s.updateAvatarFn(ctx, userID, upload)
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == middleware.SessionCookie {
			return ck
		}
	}
	return nil
}

func TestAuthHandler_Signup_SendsOTP(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		signupFn: func(ctx context.Context, in ports.SignupInput) (*ports.AuthResult, error) {
			if in.Email != "alice@example.com" || in.UserName != "alice" || in.Password != "secret1" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &ports.AuthResult{User: &domain.User{ID: "u1", Email: in.Email}, OTPSent: true}, nil
		},
	}
	handler := NewAuthHandler(stub, SessionConfig{})

	req := jsonRequest(http.MethodPost, "/api/auth/signup", `{"email":"alice@example.com","password":"secret1","user_name":"alice"}`)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.Signup(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["otp_sent"] != true || resp["email"] != "alice@example.com" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	if _, ok := resp["token"]; ok {
		t.Fatalf("signup must not return a token")
	}
	if sessionCookie(rec) != nil {
		t.Fatalf("signup must not set a session cookie")
	}
}

func TestAuthHandler_Signup_UserExists(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		signupFn: func(ctx context.Context, in ports.SignupInput) (*ports.AuthResult, error) {
			return nil, domain.ErrUserExists
		},
	}
	handler := NewAuthHandler(stub, SessionConfig{})

	req := jsonRequest(http.MethodPost, "/api/auth/signup", `{"email":"bob@example.com","password":"secret1","user_name":"bob"}`)
	c := e.NewContext(req, httptest.NewRecorder())

	if err := handler.Signup(c); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthHandler_Signup_ValidationFailure(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		signupFn: func(ctx context.Context, in ports.SignupInput) (*ports.AuthResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	handler := NewAuthHandler(stub, SessionConfig{})

	req := jsonRequest(http.MethodPost, "/api/auth/signup", `{"email":"not-an-email","password":"123","user_name":""}`)
	c := e.NewContext(req, httptest.NewRecorder())

	err := handler.Signup(c)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	for _, field := range []string{"email", "password", "user_name"} {
		if !strings.Contains(err.Error(), field) {
			t.Fatalf("expected %q in message, got %q", field, err.Error())
		}
	}
}

func TestAuthHandler_Signup_InvalidPayload(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		signupFn: func(ctx context.Context, in ports.SignupInput) (*ports.AuthResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	handler := NewAuthHandler(stub, SessionConfig{})

	req := jsonRequest(http.MethodPost, "/api/auth/signup", "not-json")
	c := e.NewContext(req, httptest.NewRecorder())

	err := handler.Signup(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTPError, got %v", err)
	}
}

func TestAuthHandler_Login_SetsSessionCookie(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (*ports.AuthResult, error) {
			if email != "alice@example.com" || password != "secret1" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return &ports.AuthResult{Token: "token123", User: &domain.User{ID: "u1", UserName: "alice", Verified: true}}, nil
		},
	}
	handler := NewAuthHandler(stub, SessionConfig{TTL: time.Hour, Secure: true})

	req := jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"alice@example.com","password":"secret1"}`)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["token"] != "token123" {
		t.Fatalf("expected token, got %v", resp["token"])
	}
	user, ok := resp["user"].(map[string]any)
	if !ok || user["user_name"] != "alice" {
		t.Fatalf("unexpected user payload: %+v", resp["user"])
	}

	ck := sessionCookie(rec)
	if ck == nil {
		t.Fatalf("expected session cookie")
	}
	if ck.Value != "token123" || !ck.HttpOnly || !ck.Secure || ck.MaxAge != 3600 || ck.SameSite != http.SameSiteStrictMode {
		t.Fatalf("unexpected cookie: %+v", ck)
	}
}

func TestAuthHandler_Login_UnverifiedGetsOTP(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (*ports.AuthResult, error) {
			return &ports.AuthResult{User: &domain.User{ID: "u1", Email: email}, OTPSent: true}, nil
		},
	}
	handler := NewAuthHandler(stub, SessionConfig{})

	req := jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"alice@example.com","password":"secret1"}`)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if !resp.OTPSent || resp.Token != "" {
		t.Fatalf("expected otp_sent without token, got %+v", resp)
	}
	if sessionCookie(rec) != nil {
		t.Fatalf("unverified login must not set a session cookie")
	}
}

func TestAuthHandler_Login_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "invalid credentials", err: domain.ErrInvalidCredentials},
		{name: "user not found", err: domain.ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho()
			stub := &stubAuthService{
				loginFn: func(ctx context.Context, email, password string) (*ports.AuthResult, error) {
					return nil, tt.err
				},
			}
			handler := NewAuthHandler(stub, SessionConfig{})

			req := jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"ghost@example.com","password":"pwd"}`)
			c := e.NewContext(req, httptest.NewRecorder())

			if err := handler.Login(c); !errors.Is(err, tt.err) {
				t.Fatalf("expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestAuthHandler_VerifyOTP(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		verifyFn: func(ctx context.Context, email, otp string) (*ports.AuthResult, error) {
			if otp != "123456" {
				return nil, domain.ErrInvalidOTP
			}
			return &ports.AuthResult{Token: "tok", User: &domain.User{ID: "u1", Verified: true}}, nil
		},
	}
	handler := NewAuthHandler(stub, SessionConfig{})

	req := jsonRequest(http.MethodPost, "/api/auth/verify-otp", `{"email":"alice@example.com","otp":"123456"}`)
	rec := httptest.NewRecorder()
	if err := handler.VerifyOTP(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if ck := sessionCookie(rec); ck == nil || ck.Value != "tok" {
		t.Fatalf("expected session cookie after verification")
	}

	req = jsonRequest(http.MethodPost, "/api/auth/verify-otp", `{"email":"alice@example.com","otp":"654321"}`)
	if err := handler.VerifyOTP(e.NewContext(req, httptest.NewRecorder())); !errors.Is(err, domain.ErrInvalidOTP) {
		t.Fatalf("expected ErrInvalidOTP, got %v", err)
	}

	req = jsonRequest(http.MethodPost, "/api/auth/verify-otp", `{"email":"alice@example.com","otp":"12ab"}`)
	if err := handler.VerifyOTP(e.NewContext(req, httptest.NewRecorder())); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for malformed code, got %v", err)
	}
}

func TestAuthHandler_ResendOTP(t *testing.T) {
	e := newTestEcho()
	calls := 0
	stub := &stubAuthService{
		resendFn: func(ctx context.Context, email string) error {
			calls++
			if calls > 1 {
				return domain.ErrRateLimited
			}
			return nil
		},
	}
	handler := NewAuthHandler(stub, SessionConfig{})

	req := jsonRequest(http.MethodPost, "/api/auth/resend-otp", `{"email":"alice@example.com"}`)
	rec := httptest.NewRecorder()
	if err := handler.ResendOTP(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	req = jsonRequest(http.MethodPost, "/api/auth/resend-otp", `{"email":"alice@example.com"}`)
	if err := handler.ResendOTP(e.NewContext(req, httptest.NewRecorder())); !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestAuthHandler_Logout_ClearsCookie(t *testing.T) {
	e := newTestEcho()
	handler := NewAuthHandler(&stubAuthService{}, SessionConfig{})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil), rec)

	if err := handler.Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	ck := sessionCookie(rec)
	if ck == nil || ck.Value != "" || ck.MaxAge >= 0 {
		t.Fatalf("expected expired session cookie, got %+v", ck)
	}
}

func TestAuthHandler_Check(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		currentUserFn: func(ctx context.Context, userID string) (*domain.User, error) {
			return &domain.User{ID: userID, UserName: "alice"}, nil
		},
	}
	handler := NewAuthHandler(stub, SessionConfig{})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/auth/check", nil), rec)
	c.Set("user_id", "u1")

	if err := handler.Check(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var user domain.User
	if err := json.Unmarshal(rec.Body.Bytes(), &user); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if user.ID != "u1" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestAuthHandler_Check_MissingClaims(t *testing.T) {
	e := newTestEcho()
	handler := NewAuthHandler(&stubAuthService{}, SessionConfig{})

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/auth/check", nil), httptest.NewRecorder())

	err := handler.Check(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 HTTPError, got %v", err)
	}
}

func TestAuthHandler_UpdateProfile(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		profilePicFn: func(ctx context.Context, userID, image string) (*domain.User, error) {
			if userID != "u1" || image != "data:image/png;base64,AAAA" {
				t.Fatalf("unexpected args: %s %s", userID, image)
			}
			return &domain.User{ID: userID, ProfilePic: "https://cdn.example.com/a.png"}, nil
		},
	}
	handler := NewAuthHandler(stub, SessionConfig{})

	req := jsonRequest(http.MethodPut, "/api/auth/update-profile", `{"profile_pic":"data:image/png;base64,AAAA"}`)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", "u1")

	if err := handler.UpdateProfile(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "https://cdn.example.com/a.png") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}

	req = jsonRequest(http.MethodPut, "/api/auth/update-profile", `{}`)
	c = e.NewContext(req, httptest.NewRecorder())
	c.Set("user_id", "u1")
	if err := handler.UpdateProfile(c); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAuthHandler_UploadAvatar(t *testing.T) {
	e := newTestEcho()
	var got ports.AvatarUpload
	stub := &stubAuthService{
		updateAvatarFn: func(ctx context.Context, userID string, upload ports.AvatarUpload) (*domain.User, error) {
			got = upload
			return &domain.User{ID: userID, ProfilePic: "https://cdn.example.com/b.png"}, nil
		},
	}
	handler := NewAuthHandler(stub, SessionConfig{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("avatar", "me.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write([]byte("\x89PNG\r\n\x1a\nrest"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPatch, "/api/auth/upload-avatar", &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", "u1")

	if err := handler.UploadAvatar(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if string(got.Data) != "\x89PNG\r\n\x1a\nrest" {
		t.Fatalf("unexpected upload data: %q", got.Data)
	}
}

func TestAuthHandler_UploadAvatar_MissingFile(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		updateAvatarFn: func(ctx context.Context, userID string, upload ports.AvatarUpload) (*domain.User, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	handler := NewAuthHandler(stub, SessionConfig{})

	req := jsonRequest(http.MethodPatch, "/api/auth/upload-avatar", `{}`)
	c := e.NewContext(req, httptest.NewRecorder())
	c.Set("user_id", "u1")

	if err := handler.UploadAvatar(c); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
