package appointment

import (
	"context"

	"go.uber.org/zap"

	domain "github.com/BruksfildServices01/service-marketplace/internal/domain/appointment"
	"github.com/BruksfildServices01/service-marketplace/internal/domain/backjob"
	"github.com/BruksfildServices01/service-marketplace/internal/domain/warranty"
	"github.com/BruksfildServices01/service-marketplace/internal/events"
	"github.com/BruksfildServices01/service-marketplace/internal/models"
)

type SweepResult struct {
	Completed         int   `json:"completed"`
	BackjobsCancelled int64 `json:"backjobs_cancelled"`
	Failed            int   `json:"failed"`
}

// SweepExpiredWarranties conclui agendamentos in-warranty/backjob cuja
// garantia venceu sem pausa ativa. Claims approved/pending são cancelados
// (cancelled-by-admin) para não sobreviverem à janela.
type SweepExpiredWarranties struct {
	deps  Deps
	batch int
}

func NewSweepExpiredWarranties(deps Deps, batch int) *SweepExpiredWarranties {
	if batch <= 0 {
		batch = 100
	}
	return &SweepExpiredWarranties{deps: deps, batch: batch}
}

func (uc *SweepExpiredWarranties) Execute(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	now := uc.deps.now()

	// paginação por id: linhas que falham não bloqueiam as seguintes
	var lastID uint
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		page, err := uc.deps.Repo.ListExpiredWarranties(ctx, now, lastID, uc.batch)
		if err != nil {
			return res, err
		}

		for i := range page {
			id := page[i].ID
			lastID = id

			ap, cancelled, err := uc.completeOne(ctx, id)
			if err != nil {
				res.Failed++
				uc.deps.logger().Warn("sweep: appointment not completed",
					zap.Uint("appointment_id", id),
					zap.Error(err),
				)
				continue
			}
			if ap == nil {
				continue
			}

			res.Completed++
			res.BackjobsCancelled += cancelled
			uc.deps.afterCommit(ctx, ap)
		}

		if len(page) < uc.batch {
			return res, nil
		}
	}
}

func (uc *SweepExpiredWarranties) completeOne(
	ctx context.Context,
	id uint,
) (*models.Appointment, int64, error) {

	now := uc.deps.now()
	var (
		done      *models.Appointment
		cancelled int64
	)

	err := uc.deps.Repo.Transaction(ctx, func(ctx context.Context) error {
		ap, err := uc.deps.Repo.GetAppointmentForUpdate(ctx, id)
		if err != nil {
			return err
		}

		// revalida com a linha travada (pode ter mudado desde a listagem)
		st := domain.Status(ap.Status)
		if st != domain.StatusInWarranty && st != domain.StatusBackjob {
			return nil
		}
		if warranty.Of(ap, now).Kind != warranty.KindExpired || ap.WarrantyExpiresAt == nil {
			return nil
		}

		from := ap.Status
		cancelled, err = uc.deps.Repo.CancelOpenBackjobs(ctx, ap.ID, backjob.SystemExpiryNote, now)
		if err != nil {
			return err
		}
		if err := domain.ForceComplete(ap, now); err != nil {
			return err
		}
		if err := uc.deps.Repo.UpdateAppointment(ctx, ap); err != nil {
			return err
		}

		done = ap
		return uc.deps.Outbox.AppendEvents(ctx,
			events.AppointmentStatusChangedEvent{
				Base:               events.Base{OccurredAt: now},
				AppointmentParties: parties(ap),
				From:               from,
				To:                 ap.Status,
				WarrantyExpiresAt:  ap.WarrantyExpiresAt,
			},
			events.AppointmentCompletedEvent{
				Base:               events.Base{OccurredAt: now},
				AppointmentParties: parties(ap),
				Trigger:            "warranty_expired",
			},
		)
	})
	if err != nil {
		return nil, 0, err
	}
	return done, cancelled, nil
}
