package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/chatty/chat-server/internal/core/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

// errorMapping pairs a domain sentinel with its status. An empty message means
// the wrapped error text is safe to show.
type errorMapping struct {
	target  error
	status  int
	message string
	logged  bool
}

var domainErrors = []errorMapping{
	{target: domain.ErrValidation, status: http.StatusBadRequest},
	{target: domain.ErrUserNotFound, status: http.StatusNotFound, message: "user not found"},
	{target: domain.ErrMessageNotFound, status: http.StatusNotFound, message: "message not found"},
	{target: domain.ErrForbidden, status: http.StatusForbidden, message: "access forbidden"},
	{target: domain.ErrUserExists, status: http.StatusConflict, message: "user already exists"},
	{target: domain.ErrInvalidCredentials, status: http.StatusUnauthorized, message: "invalid credentials"},
	{target: domain.ErrInvalidOTP, status: http.StatusBadRequest, message: "invalid verification code"},
	{target: domain.ErrOTPExpired, status: http.StatusBadRequest, message: "verification code expired"},
	{target: domain.ErrRateLimited, status: http.StatusTooManyRequests},
	{target: domain.ErrUnavailable, status: http.StatusServiceUnavailable, message: "service temporarily unavailable", logged: true},
}

// NewHTTPErrorHandler renders every error as {"error": "..."}. Causes of 5xx
// responses are logged and never sent to the client.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, msg, logIt := classify(err)
		if logIt {
			log.Error().
				Err(err).
				Int("status", status).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Msg("request failed")
		}
		_ = c.JSON(status, errorResponse{Error: msg})
	}
}

func classify(err error) (int, string, bool) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code == http.StatusRequestEntityTooLarge {
			return he.Code, "request body too large", false
		}
		return he.Code, fmt.Sprint(he.Message), he.Code >= http.StatusInternalServerError
	}

	for _, m := range domainErrors {
		if !errors.Is(err, m.target) {
			continue
		}
		if m.message == "" {
			return m.status, err.Error(), m.logged
		}
		return m.status, m.message, m.logged
	}
	return http.StatusInternalServerError, "internal server error", true
}
