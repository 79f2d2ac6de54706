package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/chatty/chat-server/internal/core/domain"
)

// RequireSelf rejects requests whose query parameter param names a user other
// than the authenticated one. An absent parameter is allowed.
func RequireSelf(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claimed := c.QueryParam(param)
			if claimed == "" {
				return next(c)
			}
			userID, _ := c.Get("user_id").(string)
			if claimed != userID {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}
