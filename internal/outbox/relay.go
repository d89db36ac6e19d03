// Package outbox entrega os eventos gravados pelos use cases para os
// assinantes (e-mail, push, kafka, websocket) fora da transação original.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BruksfildServices01/service-marketplace/internal/events"
	"github.com/BruksfildServices01/service-marketplace/internal/models"
	"github.com/BruksfildServices01/service-marketplace/internal/timezone"
)

// Store é a parte do repositório usada pelo relay.
type Store interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
	ClaimPendingEvents(ctx context.Context, now time.Time, limit int) ([]models.OutboxEvent, error)
	MarkEventPublished(ctx context.Context, id uint, now time.Time) error
	MarkEventRetry(ctx context.Context, id uint, lastErr string, availableAt time.Time, failed bool) error
}

type Handler interface {
	Handle(ctx context.Context, env events.Envelope) error
}

type HandlerFunc func(ctx context.Context, env events.Envelope) error

func (f HandlerFunc) Handle(ctx context.Context, env events.Envelope) error {
	return f(ctx, env)
}

type Config struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
}

const maxBackoff = 5 * time.Minute

type Relay struct {
	store Store
	cfg   Config
	log   *zap.Logger
	clock timezone.Clock

	byType map[string][]Handler
	all    []Handler
}

func NewRelay(store Store, cfg Config, log *zap.Logger) *Relay {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Relay{
		store:  store,
		cfg:    cfg,
		log:    log,
		clock:  timezone.Now,
		byType: map[string][]Handler{},
	}
}

// Subscribe registra h para um tipo de evento. Não é seguro chamar
// depois de Run.
func (r *Relay) Subscribe(eventType string, h Handler) {
	r.byType[eventType] = append(r.byType[eventType], h)
}

func (r *Relay) SubscribeAll(h Handler) {
	r.all = append(r.all, h)
}

// ======================================================
// LOOP
// ======================================================

func (r *Relay) Run(ctx context.Context) error {
	r.log.Info("outbox relay started",
		zap.Duration("poll_interval", r.cfg.PollInterval),
		zap.Int("batch_size", r.cfg.BatchSize),
	)

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("outbox relay stopped")
			return nil
		case <-ticker.C:
			// lote cheio: continua drenando sem esperar o próximo tick
			for {
				n, err := r.RunOnce(ctx)
				if err != nil {
					if !errors.Is(err, context.Canceled) {
						r.log.Error("outbox batch failed", zap.Error(err))
					}
					break
				}
				if n < r.cfg.BatchSize {
					break
				}
			}
		}
	}
}

// RunOnce processa um lote e devolve quantos eventos foram tratados.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	var processed int

	err := r.store.Transaction(ctx, func(ctx context.Context) error {
		now := r.clock()

		rows, err := r.store.ClaimPendingEvents(ctx, now, r.cfg.BatchSize)
		if err != nil {
			return err
		}

		for i := range rows {
			if err := r.process(ctx, &rows[i], now); err != nil {
				return err
			}
			processed++
		}
		return nil
	})

	return processed, err
}

func (r *Relay) process(ctx context.Context, row *models.OutboxEvent, now time.Time) error {
	env := events.Envelope{
		ID:            row.EventID,
		Type:          row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Payload:       []byte(row.Payload),
		Attempt:       row.Attempts + 1,
	}

	if err := r.dispatch(ctx, env); err != nil {
		failed := env.Attempt >= r.cfg.MaxAttempts
		log := r.log.With(
			zap.String("event_id", env.ID),
			zap.String("event_type", env.Type),
			zap.Int("attempt", env.Attempt),
			zap.Error(err),
		)
		if failed {
			log.Error("outbox event failed permanently")
		} else {
			log.Warn("outbox event will be retried")
		}
		return r.store.MarkEventRetry(ctx, row.ID, err.Error(), now.Add(Backoff(env.Attempt)), failed)
	}

	return r.store.MarkEventPublished(ctx, row.ID, now)
}

// dispatch chama todos os assinantes; um erro de qualquer um reagenda
// o evento inteiro, então os handlers precisam tolerar reentrega.
func (r *Relay) dispatch(ctx context.Context, env events.Envelope) error {
	var errs []error

	handlers := append(append([]Handler(nil), r.byType[env.Type]...), r.all...)
	for _, h := range handlers {
		if err := h.Handle(ctx, env); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("dispatch %s: %w", env.Type, errors.Join(errs...))
	}
	return nil
}

// Backoff: 2^attempt segundos, até 5 minutos.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 16 {
		return maxBackoff
	}
	d := time.Duration(1<<attempt) * time.Second
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
