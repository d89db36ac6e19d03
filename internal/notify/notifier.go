package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/BruksfildServices01/service-marketplace/internal/events"
	"github.com/BruksfildServices01/service-marketplace/internal/models"
)

// UserDirectory resolve e-mail e push token dos destinatários.
type UserDirectory interface {
	FindUsers(ctx context.Context, ids []uint) (map[uint]models.User, error)
}

// delivery é uma mensagem para um usuário; Email=false manda só push.
type delivery struct {
	UserID  uint
	Subject string
	Body    string
	Email   bool
	Data    map[string]any
}

// Notifier assina o outbox e avisa cliente/prestador por e-mail e push.
type Notifier struct {
	users  UserDirectory
	mailer Mailer
	pusher Pusher
	log    *zap.Logger
}

func NewNotifier(users UserDirectory, mailer Mailer, pusher Pusher, log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	if pusher == nil {
		pusher = NoopPusher{}
	}
	return &Notifier{users: users, mailer: mailer, pusher: pusher, log: log}
}

// Types lista os eventos que geram notificação.
func (n *Notifier) Types() []string {
	return []string{
		events.AppointmentCreated,
		events.AppointmentStatusChanged,
		events.AppointmentCancelled,
		events.AppointmentCompleted,
		events.AppointmentRescheduled,
		events.BackjobApplied,
		events.BackjobDisputed,
		events.BackjobCancelled,
		events.BackjobResolved,
		events.MessageSent,
	}
}

func (n *Notifier) Handle(ctx context.Context, env events.Envelope) error {
	plan, err := planFor(env)
	if err != nil {
		return err
	}
	if len(plan) == 0 {
		return nil
	}

	ids := make([]uint, 0, len(plan))
	for _, d := range plan {
		ids = append(ids, d.UserID)
	}
	users, err := n.users.FindUsers(ctx, ids)
	if err != nil {
		return fmt.Errorf("find recipients: %w", err)
	}

	var errs []error
	for _, d := range plan {
		u, ok := users[d.UserID]
		if !ok {
			n.log.Warn("notification recipient not found",
				zap.Uint("user_id", d.UserID),
				zap.String("event_type", env.Type),
			)
			continue
		}

		if d.Email && u.Email != "" && n.mailer != nil {
			if err := n.mailer.Send(ctx, u.Email, d.Subject, d.Body); err != nil {
				errs = append(errs, err)
			}
		}
		if u.PushToken != "" {
			if err := n.pusher.Push(ctx, u.PushToken, Notification{
				Title: d.Subject,
				Body:  d.Body,
				Data:  d.Data,
			}); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}

// ======================================================
// PLAN
// ======================================================

// planFor decide quem recebe o quê para um evento.
func planFor(env events.Envelope) ([]delivery, error) {
	switch env.Type {

	case events.AppointmentCreated:
		var ev events.AppointmentCreatedEvent
		if err := env.Decode(&ev); err != nil {
			return nil, err
		}
		return []delivery{{
			UserID:  ev.ProviderID,
			Subject: "Novo agendamento",
			Body:    fmt.Sprintf("Você recebeu um novo agendamento para %s.", ev.ScheduledDate.Format("02/01/2006 15:04")),
			Email:   true,
			Data:    appointmentData(ev.AppointmentID),
		}}, nil

	case events.AppointmentStatusChanged:
		var ev events.AppointmentStatusChangedEvent
		if err := env.Decode(&ev); err != nil {
			return nil, err
		}
		return []delivery{{
			UserID:  ev.CustomerID,
			Subject: "Atualização do agendamento",
			Body:    fmt.Sprintf("Seu agendamento agora está: %s.", ev.To),
			Data:    appointmentData(ev.AppointmentID),
		}}, nil

	case events.AppointmentCancelled:
		var ev events.AppointmentCancelledEvent
		if err := env.Decode(&ev); err != nil {
			return nil, err
		}
		body := fmt.Sprintf("O agendamento #%d foi cancelado. Motivo: %s", ev.AppointmentID, ev.Reason)
		var out []delivery
		if ev.CancelledBy != "customer" {
			out = append(out, delivery{UserID: ev.CustomerID, Subject: "Agendamento cancelado", Body: body, Email: true, Data: appointmentData(ev.AppointmentID)})
		}
		if ev.CancelledBy != "provider" {
			out = append(out, delivery{UserID: ev.ProviderID, Subject: "Agendamento cancelado", Body: body, Email: true, Data: appointmentData(ev.AppointmentID)})
		}
		return out, nil

	case events.AppointmentCompleted:
		var ev events.AppointmentCompletedEvent
		if err := env.Decode(&ev); err != nil {
			return nil, err
		}
		body := fmt.Sprintf("O agendamento #%d foi concluído.", ev.AppointmentID)
		if ev.Trigger == "warranty_expired" {
			body = fmt.Sprintf("A garantia do agendamento #%d terminou e ele foi concluído.", ev.AppointmentID)
		}
		return []delivery{
			{UserID: ev.CustomerID, Subject: "Agendamento concluído", Body: body, Data: appointmentData(ev.AppointmentID)},
			{UserID: ev.ProviderID, Subject: "Agendamento concluído", Body: body, Data: appointmentData(ev.AppointmentID)},
		}, nil

	case events.AppointmentRescheduled:
		var ev events.AppointmentRescheduledEvent
		if err := env.Decode(&ev); err != nil {
			return nil, err
		}
		return []delivery{{
			UserID:  ev.CustomerID,
			Subject: "Retorno de garantia agendado",
			Body:    fmt.Sprintf("O prestador agendou o retorno para %s.", ev.ScheduledDate.Format("02/01/2006 15:04")),
			Email:   true,
			Data:    appointmentData(ev.AppointmentID),
		}}, nil

	case events.BackjobApplied:
		var ev events.BackjobAppliedEvent
		if err := env.Decode(&ev); err != nil {
			return nil, err
		}
		return []delivery{{
			UserID:  ev.ProviderID,
			Subject: "Pedido de garantia",
			Body:    fmt.Sprintf("O cliente abriu um pedido de garantia: %s", ev.Reason),
			Email:   true,
			Data:    backjobData(ev.BackjobID),
		}}, nil

	case events.BackjobDisputed:
		var ev events.BackjobDisputedEvent
		if err := env.Decode(&ev); err != nil {
			return nil, err
		}
		return []delivery{{
			UserID:  ev.CustomerID,
			Subject: "Pedido de garantia contestado",
			Body:    fmt.Sprintf("O prestador contestou seu pedido: %s", ev.Reason),
			Email:   true,
			Data:    backjobData(ev.BackjobID),
		}}, nil

	case events.BackjobCancelled:
		var ev events.BackjobCancelledEvent
		if err := env.Decode(&ev); err != nil {
			return nil, err
		}
		return []delivery{{
			UserID:  ev.ProviderID,
			Subject: "Pedido de garantia cancelado",
			Body:    fmt.Sprintf("O cliente cancelou o pedido de garantia #%d.", ev.BackjobID),
			Data:    backjobData(ev.BackjobID),
		}}, nil

	case events.BackjobResolved:
		var ev events.BackjobResolvedEvent
		if err := env.Decode(&ev); err != nil {
			return nil, err
		}
		body := fmt.Sprintf("O pedido de garantia #%d foi analisado: %s.", ev.BackjobID, ev.Status)
		return []delivery{
			{UserID: ev.CustomerID, Subject: "Pedido de garantia analisado", Body: body, Email: true, Data: backjobData(ev.BackjobID)},
			{UserID: ev.ProviderID, Subject: "Pedido de garantia analisado", Body: body, Email: true, Data: backjobData(ev.BackjobID)},
		}, nil

	case events.MessageSent:
		var ev events.MessageSentEvent
		if err := env.Decode(&ev); err != nil {
			return nil, err
		}
		return []delivery{{
			UserID:  ev.RecipientID,
			Subject: "Nova mensagem",
			Body:    preview(ev.Body, 120),
			Data:    map[string]any{"conversation_id": ev.ConversationID},
		}}, nil
	}

	return nil, nil
}

func appointmentData(id uint) map[string]any {
	return map[string]any{"appointment_id": id}
}

func backjobData(id uint) map[string]any {
	return map[string]any{"backjob_id": id}
}

func preview(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "…"
}
