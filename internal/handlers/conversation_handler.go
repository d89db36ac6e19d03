package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BruksfildServices01/service-marketplace/internal/dto"
	"github.com/BruksfildServices01/service-marketplace/internal/httperr"
	"github.com/BruksfildServices01/service-marketplace/internal/httpresp"
	"github.com/BruksfildServices01/service-marketplace/internal/middleware"
	ucConversation "github.com/BruksfildServices01/service-marketplace/internal/usecase/conversation"
)

// Streamer faz o upgrade para websocket e segura a conexão.
type Streamer interface {
	Serve(w http.ResponseWriter, r *http.Request, conversationID, userID uint) error
}

type ConversationHandler struct {
	messages *ucConversation.Messages
	stream   Streamer
	log      *zap.Logger
}

func NewConversationHandler(messages *ucConversation.Messages, stream Streamer, log *zap.Logger) *ConversationHandler {
	return &ConversationHandler{messages: messages, stream: stream, log: orNop(log)}
}

type SendMessageRequest struct {
	Body string `json:"body"`
}

func (h *ConversationHandler) List(c *gin.Context) {
	items, err := h.messages.ListConversations(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}
	httpresp.List(c, dto.NewConversations(items))
}

// Status é o checkAppointmentStatus do par da conversa.
func (h *ConversationHandler) Status(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	res, conv, err := h.messages.Status(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}

	httpresp.OK(c, dto.ConversationStatusDTO{
		Conversation: dto.NewConversation(conv),
		CheckResult:  res,
	})
}

func (h *ConversationHandler) Messages(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageLimit)))
	if limit <= 0 || limit > maxPageLimit {
		limit = defaultPageLimit
	}

	items, err := h.messages.List(c.Request.Context(), middleware.ActorFrom(c), id, queryUint(c, "before_id"), limit)
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}
	httpresp.List(c, dto.NewMessages(items))
}

func (h *ConversationHandler) Send(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req SendMessageRequest
	if !bindJSON(c, &req) {
		return
	}

	msg, err := h.messages.Send(c.Request.Context(), middleware.ActorFrom(c), id, req.Body)
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}
	httpresp.Created(c, dto.NewMessage(msg))
}

// Stream checa a participação antes do upgrade; depois disso o hub assume.
func (h *ConversationHandler) Stream(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	a := middleware.ActorFrom(c)
	if _, err := h.messages.Get(c.Request.Context(), a, id); err != nil {
		httperr.Respond(c, h.log, err)
		return
	}

	if err := h.stream.Serve(c.Writer, c.Request, id, a.UserID); err != nil {
		// upgrader já respondeu com o erro HTTP
		h.log.Debug("websocket upgrade failed", zap.Uint("conversation_id", id), zap.Error(err))
	}
}
