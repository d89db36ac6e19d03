package conversation

import (
	"context"
	"time"

	"go.uber.org/zap"

	appointmentDomain "github.com/BruksfildServices01/service-marketplace/internal/domain/appointment"
	domain "github.com/BruksfildServices01/service-marketplace/internal/domain/conversation"
	"github.com/BruksfildServices01/service-marketplace/internal/domain/warranty"
	"github.com/BruksfildServices01/service-marketplace/internal/events"
	"github.com/BruksfildServices01/service-marketplace/internal/models"
	"github.com/BruksfildServices01/service-marketplace/internal/timezone"
)

// CheckResult é o resultado da checagem de um par cliente/prestador.
type CheckResult struct {
	CanMessage          bool       `json:"can_message"`
	ActiveAppointmentID uint       `json:"active_appointment_id,omitempty"`
	WarrantyExpires     *time.Time `json:"warranty_expires,omitempty"`
	AutoCompleted       []uint     `json:"auto_completed,omitempty"`
	Memoized            []uint     `json:"-"`
}

// Lifecycle mantém o status das conversas coerente com os agendamentos do par.
type Lifecycle struct {
	repo   domain.Repository
	outbox events.Outbox
	clock  timezone.Clock
	log    *zap.Logger
}

func NewLifecycle(
	repo domain.Repository,
	outbox events.Outbox,
	clock timezone.Clock,
	log *zap.Logger,
) *Lifecycle {
	if clock == nil {
		clock = timezone.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Lifecycle{
		repo:   repo,
		outbox: outbox,
		clock:  clock,
		log:    log,
	}
}

// ======================================================
// FIND-OR-CREATE / EXTEND
// ======================================================

// EnsureForPair busca a conversa do par; cria se não existir, reativa se
// estiver fechada e só estende warranty_expires para frente.
func (l *Lifecycle) EnsureForPair(
	ctx context.Context,
	customerID uint,
	providerID uint,
	warrantyExpires *time.Time,
) (*models.Conversation, error) {

	now := l.clock()
	var conv *models.Conversation

	err := l.repo.Transaction(ctx, func(ctx context.Context) error {
		var err error
		conv, err = l.repo.FindConversationByPair(ctx, customerID, providerID)
		if err != nil {
			return err
		}

		if conv == nil {
			// CreateConversation devolve a existente se outra requisição criou antes
			conv = domain.New(customerID, providerID, warrantyExpires)
			if err := l.repo.CreateConversation(ctx, conv); err != nil {
				return err
			}
		}

		return l.apply(ctx, conv, func(c *models.Conversation) bool {
			return domain.Extend(c, warrantyExpires)
		}, now)
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// apply roda a mutação e persiste (com evento) só se algo mudou.
func (l *Lifecycle) apply(
	ctx context.Context,
	conv *models.Conversation,
	mutate func(*models.Conversation) bool,
	now time.Time,
) error {

	from := conv.Status
	if !mutate(conv) {
		return nil
	}
	if err := l.repo.UpdateConversation(ctx, conv); err != nil {
		return err
	}
	if from == conv.Status {
		return nil
	}
	return l.outbox.AppendEvents(ctx, events.ConversationStatusChangedEvent{
		Base:           events.Base{OccurredAt: now},
		ConversationID: conv.ID,
		CustomerID:     conv.CustomerID,
		ProviderID:     conv.ProviderID,
		From:           from,
		To:             conv.Status,
	})
}

// ======================================================
// CHECK
// ======================================================

// CheckAppointmentStatus decide se o par pode conversar olhando todos os
// agendamentos não cancelados. Como efeito colateral conclui garantias
// vencidas e memoriza a expiração derivada de finished_at + warranty_days.
func (l *Lifecycle) CheckAppointmentStatus(
	ctx context.Context,
	customerID uint,
	providerID uint,
) (CheckResult, error) {

	var res CheckResult
	now := l.clock()

	items, err := l.repo.ListPairAppointments(ctx, customerID, providerID)
	if err != nil {
		return res, err
	}

	for i := range items {
		ap := &items[i]
		if appointmentDomain.Status(ap.Status) != appointmentDomain.StatusInWarranty {
			continue
		}

		st := warranty.Of(ap, now)
		switch {
		case st.Kind == warranty.KindExpired:
			updated, err := l.expire(ctx, ap.ID, now)
			if err != nil {
				return res, err
			}
			if updated != nil {
				*ap = *updated
				res.AutoCompleted = append(res.AutoCompleted, ap.ID)
			}

		case st.Kind == warranty.KindActive && st.Derived:
			updated, err := l.memoize(ctx, ap.ID, now)
			if err != nil {
				return res, err
			}
			if updated != nil {
				*ap = *updated
				res.Memoized = append(res.Memoized, ap.ID)
			}
		}
	}

	allowed, active := domain.MessagingAllowed(items)
	res.CanMessage = allowed
	if active != nil {
		res.ActiveAppointmentID = active.ID
	}
	res.WarrantyExpires = latestWarranty(items, now)

	return res, nil
}

// expire conclui o agendamento com a linha travada.
func (l *Lifecycle) expire(ctx context.Context, id uint, now time.Time) (*models.Appointment, error) {
	var done *models.Appointment

	err := l.repo.Transaction(ctx, func(ctx context.Context) error {
		ap, err := l.repo.GetAppointmentForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if appointmentDomain.Status(ap.Status) != appointmentDomain.StatusInWarranty ||
			warranty.Of(ap, now).Kind != warranty.KindExpired {
			return nil
		}

		from := ap.Status
		if err := appointmentDomain.ForceComplete(ap, now); err != nil {
			return err
		}
		if _, err := l.repo.CompleteApprovedBackjobs(ctx, ap.ID, now); err != nil {
			return err
		}
		if err := l.repo.UpdateAppointment(ctx, ap); err != nil {
			return err
		}

		done = ap
		parties := events.AppointmentParties{
			AppointmentID: ap.ID,
			CustomerID:    ap.CustomerID,
			ProviderID:    ap.ProviderID,
		}
		return l.outbox.AppendEvents(ctx,
			events.AppointmentStatusChangedEvent{
				Base:               events.Base{OccurredAt: now},
				AppointmentParties: parties,
				From:               from,
				To:                 ap.Status,
				WarrantyExpiresAt:  ap.WarrantyExpiresAt,
			},
			events.AppointmentCompletedEvent{
				Base:               events.Base{OccurredAt: now},
				AppointmentParties: parties,
				Trigger:            "warranty_expired",
			},
		)
	})
	return done, err
}

func (l *Lifecycle) memoize(ctx context.Context, id uint, now time.Time) (*models.Appointment, error) {
	var saved *models.Appointment

	err := l.repo.Transaction(ctx, func(ctx context.Context) error {
		ap, err := l.repo.GetAppointmentForUpdate(ctx, id)
		if err != nil {
			return err
		}
		st := warranty.Of(ap, now)
		if st.Kind != warranty.KindActive || !st.Derived {
			return nil
		}

		warranty.Apply(ap, st)
		if err := l.repo.UpdateAppointment(ctx, ap); err != nil {
			return err
		}
		saved = ap
		return nil
	})
	return saved, err
}

// latestWarranty: maior expiração ativa (não pausada) entre os agendamentos.
func latestWarranty(items []models.Appointment, now time.Time) *time.Time {
	var latest *time.Time
	for i := range items {
		st := warranty.Of(&items[i], now)
		if st.Kind != warranty.KindActive {
			continue
		}
		if latest == nil || st.ExpiresAt.After(*latest) {
			t := st.ExpiresAt
			latest = &t
		}
	}
	return latest
}

// ======================================================
// SYNC
// ======================================================

// SyncPair roda a checagem e abre/fecha a conversa existente do par.
func (l *Lifecycle) SyncPair(
	ctx context.Context,
	customerID uint,
	providerID uint,
) (CheckResult, *models.Conversation, error) {

	res, err := l.CheckAppointmentStatus(ctx, customerID, providerID)
	if err != nil {
		return res, nil, err
	}

	now := l.clock()
	var conv *models.Conversation

	err = l.repo.Transaction(ctx, func(ctx context.Context) error {
		var err error
		conv, err = l.repo.FindConversationByPair(ctx, customerID, providerID)
		if err != nil || conv == nil {
			return err
		}

		return l.apply(ctx, conv, func(c *models.Conversation) bool {
			changed := domain.ExtendExpiry(c, res.WarrantyExpires)
			if want := domain.Desired(c, res.CanMessage); domain.Status(c.Status) != want {
				c.Status = string(want)
				changed = true
			}
			return changed
		}, now)
	})

	return res, conv, err
}

// OnAppointmentChanged é o gancho síncrono chamado pelos use cases de
// appointment e backjob depois do commit.
func (l *Lifecycle) OnAppointmentChanged(ctx context.Context, ap *models.Appointment) error {
	if appointmentDomain.Status(ap.Status).AllowsMessaging() {
		var expires *time.Time
		if st := warranty.Of(ap, l.clock()); st.Kind == warranty.KindActive {
			expires = &st.ExpiresAt
		}
		if _, err := l.EnsureForPair(ctx, ap.CustomerID, ap.ProviderID, expires); err != nil {
			return err
		}
	}

	_, _, err := l.SyncPair(ctx, ap.CustomerID, ap.ProviderID)
	return err
}
