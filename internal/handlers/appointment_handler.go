package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domain "github.com/BruksfildServices01/service-marketplace/internal/domain/appointment"
	"github.com/BruksfildServices01/service-marketplace/internal/dto"
	"github.com/BruksfildServices01/service-marketplace/internal/httperr"
	"github.com/BruksfildServices01/service-marketplace/internal/httpresp"
	"github.com/BruksfildServices01/service-marketplace/internal/middleware"
	"github.com/BruksfildServices01/service-marketplace/internal/models"
	"github.com/BruksfildServices01/service-marketplace/internal/timezone"
	ucAppointment "github.com/BruksfildServices01/service-marketplace/internal/usecase/appointment"
)

// ======================================================
// HANDLER
// ======================================================

type AppointmentHandler struct {
	create       *ucAppointment.CreateAppointment
	list         *ucAppointment.ListAppointments
	get          *ucAppointment.GetAppointment
	updateStatus *ucAppointment.UpdateAppointmentStatus
	cancel       *ucAppointment.CancelAppointment
	complete     *ucAppointment.CustomerCompleteAppointment
	reschedule   *ucAppointment.RescheduleFromBackjob

	clock timezone.Clock
	log   *zap.Logger
}

type AppointmentUseCases struct {
	Create       *ucAppointment.CreateAppointment
	List         *ucAppointment.ListAppointments
	Get          *ucAppointment.GetAppointment
	UpdateStatus *ucAppointment.UpdateAppointmentStatus
	Cancel       *ucAppointment.CancelAppointment
	Complete     *ucAppointment.CustomerCompleteAppointment
	Reschedule   *ucAppointment.RescheduleFromBackjob
}

func NewAppointmentHandler(uc AppointmentUseCases, clock timezone.Clock, log *zap.Logger) *AppointmentHandler {
	if clock == nil {
		clock = timezone.Now
	}
	return &AppointmentHandler{
		create:       uc.Create,
		list:         uc.List,
		get:          uc.Get,
		updateStatus: uc.UpdateStatus,
		cancel:       uc.Cancel,
		complete:     uc.Complete,
		reschedule:   uc.Reschedule,
		clock:        clock,
		log:          orNop(log),
	}
}

// ======================================================
// REQUESTS
// ======================================================

type CreateAppointmentRequest struct {
	ServiceID      uint   `json:"service_id" binding:"required"`
	AvailabilityID uint   `json:"availability_id" binding:"required"`
	ScheduledDate  string `json:"scheduled_date"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,appointment_status"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" binding:"notblank"`
}

type RescheduleRequest struct {
	AvailabilityID uint   `json:"availability_id" binding:"required"`
	ScheduledDate  string `json:"scheduled_date"`
}

func (h *AppointmentHandler) respond(c *gin.Context, status int, ap *models.Appointment) {
	c.JSON(status, dto.NewAppointment(ap, h.clock()))
}

// ======================================================
// CREATE
// ======================================================

func (h *AppointmentHandler) Create(c *gin.Context) {
	var req CreateAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}

	date, err := parseDateTime(req.ScheduledDate)
	if err != nil {
		httperr.BadRequest(c, "invalid_date_or_time", "Data ou hora inválida.")
		return
	}

	ap, err := h.create.Execute(c.Request.Context(), middleware.ActorFrom(c), ucAppointment.CreateAppointmentInput{
		ServiceID:      req.ServiceID,
		AvailabilityID: req.AvailabilityID,
		ScheduledDate:  date,
	})
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}

	h.respond(c, 201, ap)
}

// ======================================================
// READ
// ======================================================

func (h *AppointmentHandler) List(c *gin.Context) {
	limit, offset := page(c)

	items, total, err := h.list.Execute(c.Request.Context(), middleware.ActorFrom(c), domain.ListFilter{
		Status: c.Query("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}

	httpresp.Page(c, dto.NewAppointments(items, h.clock()), total, limit, offset)
}

func (h *AppointmentHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	ap, err := h.get.Execute(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}

	h.respond(c, 200, ap)
}

// ======================================================
// TRANSITIONS
// ======================================================

func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	ap, err := h.updateStatus.Execute(c.Request.Context(), middleware.ActorFrom(c), id, req.Status)
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}

	h.respond(c, 200, ap)
}

func (h *AppointmentHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req CancelAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}

	ap, err := h.cancel.Execute(c.Request.Context(), middleware.ActorFrom(c), id, req.Reason)
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}

	h.respond(c, 200, ap)
}

func (h *AppointmentHandler) Complete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	ap, err := h.complete.Execute(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}

	h.respond(c, 200, ap)
}

func (h *AppointmentHandler) Reschedule(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req RescheduleRequest
	if !bindJSON(c, &req) {
		return
	}

	date, err := parseDateTime(req.ScheduledDate)
	if err != nil {
		httperr.BadRequest(c, "invalid_date_or_time", "Data ou hora inválida.")
		return
	}

	ap, err := h.reschedule.Execute(c.Request.Context(), middleware.ActorFrom(c), ucAppointment.RescheduleInput{
		AppointmentID:  id,
		AvailabilityID: req.AvailabilityID,
		ScheduledDate:  date,
	})
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}

	h.respond(c, 200, ap)
}
