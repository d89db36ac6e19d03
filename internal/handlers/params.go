package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BruksfildServices01/service-marketplace/internal/httperr"
	"github.com/BruksfildServices01/service-marketplace/internal/timezone"
	"github.com/BruksfildServices01/service-marketplace/internal/validators"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// pathID lê um id positivo da rota; responde 400 quando inválido.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		httperr.BadRequest(c, "invalid_"+name, "Identificador inválido.")
		return 0, false
	}
	return uint(id), true
}

func queryUint(c *gin.Context, name string) uint {
	n, err := strconv.ParseUint(c.Query(name), 10, 64)
	if err != nil {
		return 0
	}
	return uint(n)
}

// page lê page/limit (page começa em 1) e devolve limit/offset.
func page(c *gin.Context) (limit, offset int) {
	p, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if p <= 0 {
		p = 1
	}

	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageLimit)))
	if limit <= 0 || limit > maxPageLimit {
		limit = defaultPageLimit
	}

	return limit, (p - 1) * limit
}

// bindJSON traduz erro de binding para o error_code do campo.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httperr.BadRequest(c, validators.Code(err), "Dados inválidos.")
		return false
	}
	return true
}

// parseDateTime aceita RFC3339 ou "2006-01-02 15:04" no timezone da aplicação.
// Vazio devolve zero.
func parseDateTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02 15:04", raw, timezone.Current())
}

// parseDate aceita "2006-01-02" no timezone da aplicação.
func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, timezone.Current())
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func orNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
