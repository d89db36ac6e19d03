package conversation

import (
	"context"

	"go.uber.org/zap"

	domain "github.com/BruksfildServices01/service-marketplace/internal/domain/conversation"
)

type ReconcileResult struct {
	Scanned       int `json:"scanned"`
	Reopened      int `json:"reopened"`
	Closed        int `json:"closed"`
	AutoCompleted int `json:"auto_completed"`
	Failed        int `json:"failed"`
}

// Reconcile percorre todas as conversas (paginando por id) e reabre ou
// fecha conforme os agendamentos do par. Rodar duas vezes seguidas sem
// mudanças no meio não altera nada.
type Reconcile struct {
	lifecycle *Lifecycle
	pageSize  int
}

func NewReconcile(lifecycle *Lifecycle, pageSize int) *Reconcile {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Reconcile{lifecycle: lifecycle, pageSize: pageSize}
}

func (uc *Reconcile) Execute(ctx context.Context) (ReconcileResult, error) {
	var (
		res    ReconcileResult
		lastID uint
	)

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		page, err := uc.lifecycle.repo.ListConversationsAfter(ctx, lastID, uc.pageSize)
		if err != nil {
			return res, err
		}
		if len(page) == 0 {
			return res, nil
		}

		for _, conv := range page {
			lastID = conv.ID
			res.Scanned++

			before := domain.Status(conv.Status)
			check, after, err := uc.lifecycle.SyncPair(ctx, conv.CustomerID, conv.ProviderID)
			if err != nil {
				// erro de um par não derruba o lote
				res.Failed++
				uc.lifecycle.log.Warn("reconcile: pair failed",
					zap.Uint("conversation_id", conv.ID),
					zap.Error(err),
				)
				continue
			}

			res.AutoCompleted += len(check.AutoCompleted)
			if after == nil {
				continue
			}

			switch now := domain.Status(after.Status); {
			case before != domain.StatusActive && now == domain.StatusActive:
				res.Reopened++
			case before == domain.StatusActive && now == domain.StatusClosed:
				res.Closed++
			}
		}

		if len(page) < uc.pageSize {
			return res, nil
		}
	}
}
