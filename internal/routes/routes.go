package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BruksfildServices01/service-marketplace/internal/domain/actor"
	"github.com/BruksfildServices01/service-marketplace/internal/handlers"
	"github.com/BruksfildServices01/service-marketplace/internal/middleware"
)

// Handlers é montado no main (e nos testes de rota).
type Handlers struct {
	Appointment  *handlers.AppointmentHandler
	Backjob      *handlers.BackjobHandler
	AdminBackjob *handlers.AdminBackjobHandler
	AdminJobs    *handlers.AdminJobsHandler
	AuditLogs    *handlers.AuditLogsHandler
	Conversation *handlers.ConversationHandler
	Health       *handlers.HealthHandler
}

func RegisterRoutes(r *gin.Engine, h Handlers, jwtSecret string, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}

	// ======================================================
	// 🌍 MIDDLEWARE GLOBAL
	// ======================================================
	r.Use(
		middleware.RequestID(),
		middleware.Recovery(log),
		middleware.AccessLog(log),
		middleware.CORSMiddleware(),
	)

	r.GET("/health", h.Health.Health)

	// ======================================================
	// 🔐 API PRIVADA
	// ======================================================
	secured := r.Group("/")
	secured.Use(middleware.AuthMiddleware(jwtSecret))

	customer := middleware.RequireRole(actor.RoleCustomer)
	provider := middleware.RequireRole(actor.RoleProvider)
	providerOrAdmin := middleware.RequireRole(actor.RoleProvider, actor.RoleAdmin)

	// ------------------------------
	// APPOINTMENTS
	// ------------------------------
	appointments := secured.Group("/appointments")
	{
		appointments.POST("", customer, h.Appointment.Create)
		appointments.GET("", h.Appointment.List)
		appointments.GET("/:id", h.Appointment.Get)
		appointments.PATCH("/:id/status", providerOrAdmin, h.Appointment.UpdateStatus)
		appointments.POST("/:id/cancel", h.Appointment.Cancel)
		appointments.POST("/:id/complete", customer, h.Appointment.Complete)
		appointments.POST("/:id/reschedule", provider, h.Appointment.Reschedule)
		appointments.POST("/:id/backjobs", customer, h.Backjob.Apply)
	}

	// ------------------------------
	// BACKJOBS
	// ------------------------------
	backjobs := secured.Group("/backjobs")
	{
		backjobs.GET("/:id", h.Backjob.Get)
		backjobs.POST("/:id/dispute", provider, h.Backjob.Dispute)
		backjobs.POST("/:id/cancel", customer, h.Backjob.Cancel)
	}

	// ------------------------------
	// CONVERSATIONS
	// ------------------------------
	conversations := secured.Group("/conversations")
	{
		conversations.GET("", h.Conversation.List)
		conversations.GET("/:id/status", h.Conversation.Status)
		conversations.GET("/:id/messages", h.Conversation.Messages)
		conversations.POST("/:id/messages", h.Conversation.Send)
		conversations.GET("/:id/ws", h.Conversation.Stream)
	}

	// ======================================================
	// 🛠️ ADMIN
	// ======================================================
	admin := secured.Group("/admin")
	admin.Use(middleware.RequireRole(actor.RoleAdmin))
	{
		admin.GET("/backjobs", h.AdminBackjob.List)
		admin.PATCH("/backjobs/:id", h.AdminBackjob.Update)
		admin.POST("/backjobs/:id/approve-dispute", h.AdminBackjob.ApproveDispute)
		admin.POST("/backjobs/:id/reject-dispute", h.AdminBackjob.RejectDispute)

		admin.POST("/jobs/reconcile", h.AdminJobs.Reconcile)
		admin.POST("/jobs/sweep", h.AdminJobs.Sweep)

		admin.GET("/audit-logs", h.AuditLogs.List)
	}
}
