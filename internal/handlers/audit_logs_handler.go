package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BruksfildServices01/service-marketplace/internal/audit"
	"github.com/BruksfildServices01/service-marketplace/internal/httperr"
	"github.com/BruksfildServices01/service-marketplace/internal/httpresp"
	"github.com/BruksfildServices01/service-marketplace/internal/models"
)

type AuditReader interface {
	List(ctx context.Context, f audit.Filter) ([]models.AuditLog, int64, error)
}

// ======================================================
// HANDLER
// ======================================================

type AuditLogsHandler struct {
	reader AuditReader
	log    *zap.Logger
}

func NewAuditLogsHandler(reader AuditReader, log *zap.Logger) *AuditLogsHandler {
	return &AuditLogsHandler{reader: reader, log: orNop(log)}
}

func (h *AuditLogsHandler) List(c *gin.Context) {
	limit, offset := page(c)

	// --------------------------------------------------
	// Filtros opcionais
	// --------------------------------------------------

	from, err := parseDate(c.Query("from"))
	if err != nil {
		httperr.BadRequest(c, "invalid_from", "Data inicial inválida.")
		return
	}
	to, err := parseDate(c.Query("to"))
	if err != nil {
		httperr.BadRequest(c, "invalid_to", "Data final inválida.")
		return
	}
	if to != nil {
		// inclui o dia inteiro
		end := to.AddDate(0, 0, 1)
		to = &end
	}

	logs, total, err := h.reader.List(c.Request.Context(), audit.Filter{
		UserID:   queryUint(c, "user_id"),
		Action:   c.Query("action"),
		Entity:   c.Query("entity"),
		EntityID: queryUint(c, "entity_id"),
		From:     from,
		To:       to,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}

	httpresp.Page(c, logs, total, limit, offset)
}
