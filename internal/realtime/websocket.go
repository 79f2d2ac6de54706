package realtime

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/chatty/chat-server/internal/core/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// WSHandler upgrades authenticated HTTP requests to WebSocket connections
// and binds each socket to a Gateway connection.
type WSHandler struct {
	gateway  *Gateway
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewWSHandler returns a WSHandler. allowedOrigin "*" or "" accepts any
// origin; otherwise the Origin header must match exactly.
func NewWSHandler(gateway *Gateway, allowedOrigin string, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		gateway: gateway,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" || allowedOrigin == "*" {
					return true
				}
				origin := r.Header.Get("Origin")
				return origin == "" || origin == allowedOrigin
			},
		},
	}
}

// Serve handles GET /ws. The user id comes from the auth middleware.
//
// @Summary      Open the realtime event channel
// @Tags         realtime
// @Security     BearerAuth
// @Param        userId  query  string  false  "Must match the authenticated user"
// @Success      101
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /ws [get]
func (h *WSHandler) Serve(c echo.Context) error {
	userID, _ := c.Get("user_id").(string)
	if userID == "" {
		return fmt.Errorf("%w: user id is required to connect", domain.ErrValidation)
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already replied to the client.
		h.log.Debug().Err(err).Str("user_id", userID).Msg("websocket upgrade failed")
		return nil
	}

	conn := h.gateway.NewConn(userID)
	if err := h.gateway.Open(conn); err != nil {
		_ = ws.Close()
		return nil
	}

	go h.writePump(ws, conn)
	h.readPump(ws, conn)
	return nil
}

// readPump dispatches inbound frames until the socket fails or closes.
func (h *WSHandler) readPump(ws *websocket.Conn, conn *Conn) {
	defer func() {
		h.gateway.Close(conn)
		_ = ws.Close()
	}()

	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				h.log.Debug().Err(err).Str("conn_id", conn.ID()).Msg("websocket read")
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		h.gateway.Dispatch(conn, data)
	}
}

// writePump is the only writer of ws.
func (h *WSHandler) writePump(ws *websocket.Conn, conn *Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = ws.Close()
	}()

	for {
		select {
		case frame := <-conn.Outbound():
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				h.gateway.Close(conn)
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.gateway.Close(conn)
				return
			}
		case <-conn.Done():
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
