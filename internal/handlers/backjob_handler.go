package handlers

import (
	"context"
	"mime/multipart"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domain "github.com/BruksfildServices01/service-marketplace/internal/domain/backjob"
	"github.com/BruksfildServices01/service-marketplace/internal/dto"
	"github.com/BruksfildServices01/service-marketplace/internal/httperr"
	"github.com/BruksfildServices01/service-marketplace/internal/middleware"
	ucBackjob "github.com/BruksfildServices01/service-marketplace/internal/usecase/backjob"
)

// EvidenceUploader sobe as fotos do multipart e devolve as URLs.
// Discard apaga o que foi enviado quando o pedido não é aceito.
type EvidenceUploader interface {
	UploadFiles(ctx context.Context, appointmentID uint, files []*multipart.FileHeader) ([]string, error)
	Discard(ctx context.Context, urls []string) error
}

const evidenceFormField = "files"

// ======================================================
// HANDLER
// ======================================================

type BackjobHandler struct {
	apply    *ucBackjob.ApplyBackjob
	get      *ucBackjob.GetBackjob
	dispute  *ucBackjob.DisputeBackjob
	cancel   *ucBackjob.CancelBackjobByCustomer
	uploader EvidenceUploader
	log      *zap.Logger
}

type BackjobUseCases struct {
	Apply   *ucBackjob.ApplyBackjob
	Get     *ucBackjob.GetBackjob
	Dispute *ucBackjob.DisputeBackjob
	Cancel  *ucBackjob.CancelBackjobByCustomer
}

// uploader pode ser nil (sem S3): aí só JSON com URLs já hospedadas.
func NewBackjobHandler(uc BackjobUseCases, uploader EvidenceUploader, log *zap.Logger) *BackjobHandler {
	return &BackjobHandler{
		apply:    uc.Apply,
		get:      uc.Get,
		dispute:  uc.Dispute,
		cancel:   uc.Cancel,
		uploader: uploader,
		log:      orNop(log),
	}
}

// ======================================================
// REQUESTS
// ======================================================

// ClaimRequest serve para aplicar e para contestar.
type ClaimRequest struct {
	Reason      string   `json:"reason" form:"reason"`
	Description string   `json:"description" form:"description"`
	Files       []string `json:"files" form:"-"`
}

type CancelBackjobRequest struct {
	Reason string `json:"reason" binding:"notblank"`
}

// readClaim aceita JSON ou multipart/form-data (campo "files").
// authorize roda antes de qualquer upload; uploaded lista o que foi enviado.
func (h *BackjobHandler) readClaim(
	c *gin.Context,
	appointmentID uint,
	authorize func(ctx context.Context) error,
) (reason string, ev domain.Evidence, uploaded []string, ok bool) {

	var req ClaimRequest

	if c.ContentType() != "multipart/form-data" {
		if !bindJSON(c, &req) {
			return "", domain.Evidence{}, nil, false
		}
		return req.Reason, domain.Evidence{Description: req.Description, Files: req.Files}, nil, true
	}

	if err := c.ShouldBind(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Dados inválidos.")
		return "", domain.Evidence{}, nil, false
	}

	// motivo é checado antes de subir arquivo
	if strings.TrimSpace(req.Reason) == "" {
		httperr.Respond(c, h.log, httperr.ErrValidation("reason_required"))
		return "", domain.Evidence{}, nil, false
	}

	ev = domain.Evidence{Description: req.Description}

	form, err := c.MultipartForm()
	if err != nil {
		httperr.BadRequest(c, "invalid_request", "Dados inválidos.")
		return "", domain.Evidence{}, nil, false
	}

	files := form.File[evidenceFormField]
	if len(files) == 0 {
		return req.Reason, ev, nil, true
	}

	if err := authorize(c.Request.Context()); err != nil {
		httperr.Respond(c, h.log, err)
		return "", domain.Evidence{}, nil, false
	}
	if h.uploader == nil {
		httperr.Respond(c, h.log, httperr.ErrBusiness("uploads_disabled"))
		return "", domain.Evidence{}, nil, false
	}

	urls, err := h.uploader.UploadFiles(c.Request.Context(), appointmentID, files)
	if err != nil {
		httperr.Respond(c, h.log, err)
		return "", domain.Evidence{}, nil, false
	}
	ev.Files = urls

	return req.Reason, ev, urls, true
}

// discard apaga evidência de um pedido recusado. Usa context.Background
// porque o request pode ter sido cancelado.
func (h *BackjobHandler) discard(urls []string) {
	if len(urls) == 0 || h.uploader == nil {
		return
	}
	if err := h.uploader.Discard(context.Background(), urls); err != nil {
		h.log.Warn("evidence cleanup failed",
			zap.Strings("urls", urls),
			zap.Error(err),
		)
	}
}

// ======================================================
// CUSTOMER
// ======================================================

func (h *BackjobHandler) Apply(c *gin.Context) {
	appointmentID, ok := pathID(c, "id")
	if !ok {
		return
	}

	a := middleware.ActorFrom(c)

	reason, ev, uploaded, ok := h.readClaim(c, appointmentID, func(ctx context.Context) error {
		return h.apply.Authorize(ctx, a, appointmentID)
	})
	if !ok {
		return
	}

	bj, err := h.apply.Execute(c.Request.Context(), a, ucBackjob.ApplyBackjobInput{
		AppointmentID: appointmentID,
		Reason:        reason,
		Evidence:      ev,
	})
	if err != nil {
		h.discard(uploaded)
		httperr.Respond(c, h.log, err)
		return
	}

	c.JSON(201, dto.NewBackjob(bj))
}

func (h *BackjobHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req CancelBackjobRequest
	if !bindJSON(c, &req) {
		return
	}

	bj, err := h.cancel.Execute(c.Request.Context(), middleware.ActorFrom(c), id, req.Reason)
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}

	c.JSON(200, dto.NewBackjob(bj))
}

// ======================================================
// SHARED
// ======================================================

func (h *BackjobHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	bj, err := h.get.Execute(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}

	c.JSON(200, dto.NewBackjob(bj))
}

// ======================================================
// PROVIDER
// ======================================================

func (h *BackjobHandler) Dispute(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	a := middleware.ActorFrom(c)

	// evidência do prestador vai para a pasta do agendamento
	bj, err := h.dispute.Authorize(c.Request.Context(), a, id)
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}

	// já autorizado acima
	reason, ev, uploaded, ok := h.readClaim(c, bj.AppointmentID, func(context.Context) error {
		return nil
	})
	if !ok {
		return
	}

	updated, err := h.dispute.Execute(c.Request.Context(), a, ucBackjob.DisputeBackjobInput{
		BackjobID: id,
		Reason:    reason,
		Evidence:  ev,
	})
	if err != nil {
		h.discard(uploaded)
		httperr.Respond(c, h.log, err)
		return
	}

	c.JSON(200, dto.NewBackjob(updated))
}
