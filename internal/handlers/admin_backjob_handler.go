package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BruksfildServices01/service-marketplace/internal/domain/actor"
	domain "github.com/BruksfildServices01/service-marketplace/internal/domain/backjob"
	"github.com/BruksfildServices01/service-marketplace/internal/dto"
	"github.com/BruksfildServices01/service-marketplace/internal/httperr"
	"github.com/BruksfildServices01/service-marketplace/internal/httpresp"
	"github.com/BruksfildServices01/service-marketplace/internal/middleware"
	"github.com/BruksfildServices01/service-marketplace/internal/models"
	ucBackjob "github.com/BruksfildServices01/service-marketplace/internal/usecase/backjob"
)

type AdminBackjobHandler struct {
	list    *ucBackjob.ListBackjobs
	update  *ucBackjob.AdminUpdateBackjob
	approve *ucBackjob.AdminApproveDispute
	reject  *ucBackjob.AdminRejectDispute
	log     *zap.Logger
}

type AdminBackjobUseCases struct {
	List    *ucBackjob.ListBackjobs
	Update  *ucBackjob.AdminUpdateBackjob
	Approve *ucBackjob.AdminApproveDispute
	Reject  *ucBackjob.AdminRejectDispute
}

func NewAdminBackjobHandler(uc AdminBackjobUseCases, log *zap.Logger) *AdminBackjobHandler {
	return &AdminBackjobHandler{
		list:    uc.List,
		update:  uc.Update,
		approve: uc.Approve,
		reject:  uc.Reject,
		log:     orNop(log),
	}
}

type AdminUpdateBackjobRequest struct {
	Action string `json:"action" binding:"required,admin_action"`
	Notes  string `json:"admin_notes"`
}

type ResolveDisputeRequest struct {
	Notes string `json:"admin_notes"`
}

func (h *AdminBackjobHandler) List(c *gin.Context) {
	limit, offset := page(c)

	items, total, err := h.list.Execute(c.Request.Context(), middleware.ActorFrom(c), domain.ListFilter{
		Status:        c.Query("status"),
		AppointmentID: queryUint(c, "appointment_id"),
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}

	httpresp.Page(c, dto.NewBackjobs(items), total, limit, offset)
}

func (h *AdminBackjobHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req AdminUpdateBackjobRequest
	if !bindJSON(c, &req) {
		return
	}

	bj, err := h.update.Execute(c.Request.Context(), middleware.ActorFrom(c), id, req.Action, req.Notes)
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}

	httpresp.OK(c, dto.NewBackjob(bj))
}

func (h *AdminBackjobHandler) ApproveDispute(c *gin.Context) {
	h.resolve(c, h.approve.Execute)
}

func (h *AdminBackjobHandler) RejectDispute(c *gin.Context) {
	h.resolve(c, h.reject.Execute)
}

type resolveFunc func(ctx context.Context, a actor.Actor, backjobID uint, notes string) (*models.BackjobApplication, error)

func (h *AdminBackjobHandler) resolve(c *gin.Context, fn resolveFunc) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	// corpo é opcional
	var req ResolveDisputeRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	bj, err := fn(c.Request.Context(), middleware.ActorFrom(c), id, req.Notes)
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}

	httpresp.OK(c, dto.NewBackjob(bj))
}
