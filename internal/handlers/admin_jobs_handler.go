package handlers

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BruksfildServices01/service-marketplace/internal/httperr"
	"github.com/BruksfildServices01/service-marketplace/internal/httpresp"
	"github.com/BruksfildServices01/service-marketplace/internal/jobs"
	"github.com/BruksfildServices01/service-marketplace/internal/usecase/appointment"
	"github.com/BruksfildServices01/service-marketplace/internal/usecase/conversation"
)

// Maintenance roda os jobs sob o mesmo lock do agendador.
type Maintenance interface {
	RunReconcile(ctx context.Context) (conversation.ReconcileResult, error)
	RunSweep(ctx context.Context) (appointment.SweepResult, error)
}

type AdminJobsHandler struct {
	jobs Maintenance
	log  *zap.Logger
}

func NewAdminJobsHandler(jobs Maintenance, log *zap.Logger) *AdminJobsHandler {
	return &AdminJobsHandler{jobs: jobs, log: orNop(log)}
}

func (h *AdminJobsHandler) Reconcile(c *gin.Context) {
	res, err := h.jobs.RunReconcile(c.Request.Context())
	if h.failed(c, err) {
		return
	}
	httpresp.OK(c, res)
}

func (h *AdminJobsHandler) Sweep(c *gin.Context) {
	res, err := h.jobs.RunSweep(c.Request.Context())
	if h.failed(c, err) {
		return
	}
	httpresp.OK(c, res)
}

func (h *AdminJobsHandler) failed(c *gin.Context, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, jobs.ErrLocked):
		httperr.Respond(c, h.log, httperr.ErrConflict("job_running", nil))
	default:
		httperr.Respond(c, h.log, err)
	}
	return true
}
