package conversation

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/BruksfildServices01/service-marketplace/internal/domain/actor"
	domain "github.com/BruksfildServices01/service-marketplace/internal/domain/conversation"
	"github.com/BruksfildServices01/service-marketplace/internal/events"
	"github.com/BruksfildServices01/service-marketplace/internal/httperr"
	"github.com/BruksfildServices01/service-marketplace/internal/models"
)

const maxMessageLength = 4000

type Messages struct {
	lifecycle *Lifecycle
}

func NewMessages(lifecycle *Lifecycle) *Messages {
	return &Messages{lifecycle: lifecycle}
}

// Get devolve a conversa se o ator participa dela (admin pode ler).
func (uc *Messages) Get(
	ctx context.Context,
	a actor.Actor,
	conversationID uint,
) (*models.Conversation, error) {

	conv, err := uc.lifecycle.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !a.IsAdmin() && !domain.IsParticipant(conv, a.UserID) {
		return nil, httperr.ErrForbidden("not_conversation_party")
	}
	return conv, nil
}

// Status roda a checagem do par (com os efeitos colaterais dela).
func (uc *Messages) Status(
	ctx context.Context,
	a actor.Actor,
	conversationID uint,
) (CheckResult, *models.Conversation, error) {

	conv, err := uc.Get(ctx, a, conversationID)
	if err != nil {
		return CheckResult{}, nil, err
	}

	res, synced, err := uc.lifecycle.SyncPair(ctx, conv.CustomerID, conv.ProviderID)
	if err != nil {
		return res, nil, err
	}
	if synced == nil {
		synced = conv
	}
	return res, synced, nil
}

func (uc *Messages) List(
	ctx context.Context,
	a actor.Actor,
	conversationID uint,
	beforeID uint,
	limit int,
) ([]models.Message, error) {

	if _, err := uc.Get(ctx, a, conversationID); err != nil {
		return nil, err
	}
	return uc.lifecycle.repo.ListMessages(ctx, conversationID, beforeID, limit)
}

func (uc *Messages) ListConversations(
	ctx context.Context,
	a actor.Actor,
) ([]models.Conversation, error) {
	return uc.lifecycle.repo.ListConversationsForUser(ctx, a.UserID)
}

// Send só grava se o par ainda tem um agendamento que libera mensagens.
func (uc *Messages) Send(
	ctx context.Context,
	a actor.Actor,
	conversationID uint,
	body string,
) (*models.Message, error) {

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, httperr.ErrValidation("body_required")
	}
	if utf8.RuneCountInString(body) > maxMessageLength {
		return nil, httperr.ErrValidation("body_too_long")
	}

	conv, err := uc.lifecycle.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !domain.IsParticipant(conv, a.UserID) {
		return nil, httperr.ErrForbidden("not_conversation_party")
	}

	res, _, err := uc.lifecycle.SyncPair(ctx, conv.CustomerID, conv.ProviderID)
	if err != nil {
		return nil, err
	}
	if !res.CanMessage || domain.Status(conv.Status) == domain.StatusArchived {
		return nil, httperr.ErrForbidden("messaging_not_allowed")
	}

	recipient := conv.CustomerID
	if a.UserID == conv.CustomerID {
		recipient = conv.ProviderID
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       a.UserID,
		Body:           body,
	}

	err = uc.lifecycle.repo.Transaction(ctx, func(ctx context.Context) error {
		if err := uc.lifecycle.repo.CreateMessage(ctx, msg); err != nil {
			return err
		}
		return uc.lifecycle.outbox.AppendEvents(ctx, events.MessageSentEvent{
			Base:           events.Base{OccurredAt: uc.lifecycle.clock()},
			ConversationID: conv.ID,
			MessageID:      msg.ID,
			SenderID:       msg.SenderID,
			RecipientID:    recipient,
			Body:           msg.Body,
			SentAt:         msg.CreatedAt,
		})
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}
