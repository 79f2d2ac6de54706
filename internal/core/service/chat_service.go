package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/chatty/chat-server/internal/api/metrics"
	"github.com/chatty/chat-server/internal/core/domain"
	"github.com/chatty/chat-server/internal/core/ports"
)

// ChatService implements the direct-messaging use cases. Every mutation is
// written to storage first; live notification and relay happen afterwards and
// never change the outcome of the call.
type ChatService struct {
	users    ports.UserRepository
	messages ports.MessageRepository
	media    ports.MediaStore
	notifier ports.Notifier
	relay    ports.EventRelay
	logger   zerolog.Logger
}

func NewChatService(
	users ports.UserRepository,
	messages ports.MessageRepository,
	media ports.MediaStore,
	notifier ports.Notifier,
	relay ports.EventRelay,
	logger zerolog.Logger,
) *ChatService {
	return &ChatService{
		users:    users,
		messages: messages,
		media:    media,
		notifier: notifier,
		relay:    relay,
		logger:   logger,
	}
}

// ListPeers returns every user other than the actor.
func (s *ChatService) ListPeers(ctx context.Context, actorID string) ([]*domain.User, error) {
	users, err := s.users.ListExcept(ctx, actorID)
	if err != nil {
		return nil, unavailable("list users", err)
	}
	return users, nil
}

// GetMessages returns the conversation between actor and peer, oldest first.
func (s *ChatService) GetMessages(ctx context.Context, actorID, peerID string) ([]*domain.Message, error) {
	msgs, err := s.messages.FindBetween(ctx, actorID, peerID)
	if err != nil {
		return nil, unavailable("find messages", err)
	}
	return msgs, nil
}

// SendMessage persists a message from sender to receiver and then notifies
// the receiver if they are online. The sender is not notified.
func (s *ChatService) SendMessage(ctx context.Context, in ports.SendMessageInput) (*domain.Message, error) {
	text := in.Text
	if strings.TrimSpace(text) == "" {
		text = ""
	}
	if text == "" && in.Image == "" {
		return nil, fmt.Errorf("%w: text or image is required", domain.ErrValidation)
	}
	if _, err := s.users.FindByID(ctx, in.ReceiverID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, unavailable("find receiver", err)
	}

	imageURL := ""
	if in.Image != "" {
		raw, contentType, err := decodeImage(in.Image)
		if err != nil {
			return nil, err
		}
		if imageURL, err = s.media.Upload(ctx, raw, contentType); err != nil {
			s.logger.Error().Err(err).Str("sender_id", in.SenderID).Msg("image upload failed")
			return nil, unavailable("upload image", err)
		}
	}

	msg, err := s.messages.Create(ctx, &domain.Message{
		SenderID:   in.SenderID,
		ReceiverID: in.ReceiverID,
		Text:       text,
		Image:      imageURL,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("sender_id", in.SenderID).Msg("failed to create message")
		return nil, unavailable("create message", err)
	}

	metrics.MessagesSentTotal.WithLabelValues(messageKind(msg)).Inc()
	s.logger.Info().
		Str("message_id", msg.ID).
		Str("sender_id", msg.SenderID).
		Str("receiver_id", msg.ReceiverID).
		Msg("message sent")

	s.notifier.EmitToUser(msg.ReceiverID, ports.EventNewMessage, msg)
	s.relay.Enqueue(ports.DomainEvent{
		Subject: domain.SubjectMessageCreated,
		Key:     ConversationKey(msg.SenderID, msg.ReceiverID),
		Payload: msg,
	})
	return msg, nil
}

// DeleteConversation removes every message between actor and peer and tells
// both sides.
func (s *ChatService) DeleteConversation(ctx context.Context, actorID, peerID string) error {
	if _, err := s.users.FindByID(ctx, peerID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
		return unavailable("find peer", err)
	}

	deleted, err := s.messages.DeleteBetween(ctx, actorID, peerID)
	if err != nil {
		s.logger.Error().Err(err).Str("actor_id", actorID).Str("peer_id", peerID).Msg("failed to delete conversation")
		return unavailable("delete conversation", err)
	}

	metrics.MessagesDeletedTotal.WithLabelValues("conversation").Add(float64(deleted))
	s.logger.Info().
		Str("actor_id", actorID).
		Str("peer_id", peerID).
		Int64("deleted", deleted).
		Msg("conversation deleted")

	payload := ports.ConversationDeletedPayload{By: actorID}
	s.notifier.EmitToUser(peerID, ports.EventConversationDeleted, payload)
	s.notifier.EmitToUser(actorID, ports.EventConversationDeleted, payload)
	s.relay.Enqueue(ports.DomainEvent{
		Subject: domain.SubjectConversationDeleted,
		Key:     ConversationKey(actorID, peerID),
		Payload: domain.ConversationDeletedEvent{By: actorID, Peer: peerID, Deleted: deleted, At: time.Now().UTC()},
	})
	return nil
}

// DeleteMessage removes one message. Only its sender may delete it.
func (s *ChatService) DeleteMessage(ctx context.Context, actorID, messageID string) error {
	msg, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, domain.ErrMessageNotFound) {
			return err
		}
		return unavailable("find message", err)
	}
	if msg.SenderID != actorID {
		return domain.ErrForbidden
	}

	if err := s.messages.Delete(ctx, messageID); err != nil {
		if errors.Is(err, domain.ErrMessageNotFound) {
			return err
		}
		s.logger.Error().Err(err).Str("message_id", messageID).Msg("failed to delete message")
		return unavailable("delete message", err)
	}

	metrics.MessagesDeletedTotal.WithLabelValues("message").Inc()
	s.logger.Info().Str("message_id", messageID).Str("actor_id", actorID).Msg("message deleted")

	payload := ports.MessageDeletedPayload{MessageID: messageID}
	s.notifier.EmitToUser(msg.ReceiverID, ports.EventMessageDeleted, payload)
	s.notifier.EmitToUser(actorID, ports.EventMessageDeleted, payload)
	s.relay.Enqueue(ports.DomainEvent{
		Subject: domain.SubjectMessageDeleted,
		Key:     ConversationKey(msg.SenderID, msg.ReceiverID),
		Payload: domain.MessageDeletedEvent{
			MessageID:  messageID,
			SenderID:   msg.SenderID,
			ReceiverID: msg.ReceiverID,
			At:         time.Now().UTC(),
		},
	})
	return nil
}

// ConversationKey identifies the conversation between a and b regardless of
// direction.
func ConversationKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

func messageKind(m *domain.Message) string {
	switch {
	case m.Text != "" && m.Image != "":
		return "both"
	case m.Image != "":
		return "image"
	default:
		return "text"
	}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrUnavailable, op, err)
}
