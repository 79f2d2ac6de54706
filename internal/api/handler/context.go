package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// actorID returns the id of the authenticated user injected by the Auth
// middleware. An empty value means the middleware did not run.
func actorID(c echo.Context) (string, error) {
	id, _ := c.Get("user_id").(string)
	if id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return id, nil
}
