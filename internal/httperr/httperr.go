package httperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type HTTPError struct {
	Code    string         `json:"error_code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func Write(c *gin.Context, status int, code, message string) {
	c.JSON(status, HTTPError{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, code, message string) {
	Write(c, http.StatusBadRequest, code, message)
}

func NotFound(c *gin.Context, code, message string) {
	Write(c, http.StatusNotFound, code, message)
}

func Internal(c *gin.Context, code, message string) {
	Write(c, http.StatusInternalServerError, code, message)
}

func Unauthorized(c *gin.Context, code, message string) {
	Write(c, http.StatusUnauthorized, code, message)
}

func Forbidden(c *gin.Context, code, message string) {
	Write(c, http.StatusForbidden, code, message)
}

func StatusFor(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindBusiness:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Respond traduz o erro de um use case para a resposta HTTP.
// Erros desconhecidos viram 500 e são logados (o detalhe nunca vaza pro cliente).
func Respond(c *gin.Context, log *zap.Logger, err error) {
	var be BusinessError
	if errors.As(err, &be) {
		c.JSON(StatusFor(be.Kind), HTTPError{
			Code:    be.Code,
			Message: messageFor(be),
			Details: be.Details,
		})
		return
	}

	if log != nil {
		log.Error("unhandled error",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
	}
	Internal(c, "internal_error", "Erro interno.")
}

func messageFor(be BusinessError) string {
	if msg, ok := messages[be.Code]; ok {
		return msg
	}
	switch be.Kind {
	case KindValidation:
		return "Dados inválidos."
	case KindNotFound:
		return "Registro não encontrado."
	case KindForbidden:
		return "Acesso negado."
	case KindConflict:
		return "Conflito com registro existente."
	case KindUnauthorized:
		return "Não autenticado."
	default:
		return "Operação não permitida no estado atual."
	}
}

var messages = map[string]string{
	"invalid_status":           "Status inválido.",
	"invalid_state":            "Operação não permitida no estado atual.",
	"reason_required":          "Informe o motivo.",
	"evidence_required":        "Envie evidências (arquivos ou descrição).",
	"backjob_already_active":   "Já existe uma solicitação de garantia ativa para este agendamento.",
	"schedule_conflict":        "Conflito de horário.",
	"appointment_not_found":    "Agendamento não encontrado.",
	"backjob_not_found":        "Solicitação de garantia não encontrada.",
	"conversation_not_found":   "Conversa não encontrada.",
	"messaging_not_allowed":    "Conversa encerrada para este par.",
	"not_appointment_party":    "Você não participa deste agendamento.",
	"uploads_disabled":         "Upload de arquivos indisponível.",
	"invalid_admin_action":     "Ação administrativa inválida.",
	"availability_not_found":   "Horário não encontrado.",
	"availability_unavailable": "Horário indisponível.",
	"job_running":              "Job já em execução em outra instância.",
	"body_required":            "Mensagem vazia.",
	"customer_only":            "Apenas o cliente pode realizar esta ação.",
}
