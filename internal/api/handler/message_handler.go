package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chatty/chat-server/internal/core/ports"
)

// MessageHandler handles HTTP requests for conversations.
type MessageHandler struct {
	service ports.ChatService
}

func NewMessageHandler(service ports.ChatService) *MessageHandler {
	return &MessageHandler{service: service}
}

// ListUsers handles GET /api/messages/users.
//
// @Summary      List chat partners
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.User
// @Failure      401  {object}  errorResponse
// @Router       /api/messages/users [get]
func (h *MessageHandler) ListUsers(c echo.Context) error {
	id, err := actorID(c)
	if err != nil {
		return err
	}

	users, err := h.service.ListPeers(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// GetMessages handles GET /api/messages/:id.
//
// @Summary      Conversation with a user
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Peer user id"
// @Success      200  {array}   domain.Message
// @Failure      401  {object}  errorResponse
// @Router       /api/messages/{id} [get]
func (h *MessageHandler) GetMessages(c echo.Context) error {
	id, err := actorID(c)
	if err != nil {
		return err
	}

	msgs, err := h.service.GetMessages(c.Request().Context(), id, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, msgs)
}

// Send handles POST /api/messages/send/:id.
//
// @Summary      Send a message
// @Tags         messages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string              true  "Receiver user id"
// @Param        body  body      sendMessageRequest  true  "Text and/or inline image"
// @Success      201   {object}  domain.Message
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /api/messages/send/{id} [post]
func (h *MessageHandler) Send(c echo.Context) error {
	id, err := actorID(c)
	if err != nil {
		return err
	}

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	msg, err := h.service.SendMessage(c.Request().Context(), ports.SendMessageInput{
		SenderID:   id,
		ReceiverID: c.Param("id"),
		Text:       req.Text,
		Image:      req.Image,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, msg)
}

// DeleteConversation handles DELETE /api/messages/:id.
//
// @Summary      Delete a whole conversation
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Peer user id"
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/messages/{id} [delete]
func (h *MessageHandler) DeleteConversation(c echo.Context) error {
	id, err := actorID(c)
	if err != nil {
		return err
	}

	if err := h.service.DeleteConversation(c.Request().Context(), id, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "conversation deleted"})
}

// DeleteMessage handles DELETE /api/messages/message/:id.
//
// @Summary      Delete one of your messages
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Message id"
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/messages/message/{id} [delete]
func (h *MessageHandler) DeleteMessage(c echo.Context) error {
	id, err := actorID(c)
	if err != nil {
		return err
	}

	if err := h.service.DeleteMessage(c.Request().Context(), id, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "message deleted"})
}
