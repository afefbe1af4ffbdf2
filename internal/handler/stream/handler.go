package stream

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/polaris/backend/internal/handler/apierror"
	"github.com/zhouzirui/polaris/backend/internal/logging"
	chatService "github.com/zhouzirui/polaris/backend/internal/service/chat"
	"github.com/zhouzirui/polaris/backend/pkg/utils"
)

// SSE event names.
const (
	EventStart   = "start"
	EventDelta   = "delta"
	EventMessage = "message"
	EventEnd     = "end"
	EventError   = "error"
)

// Handler manages streaming chat responses via Server-Sent Events
type Handler struct {
	chatSvc *chatService.Service
	logger  *slog.Logger
}

// New creates a new stream handler
func New(chatSvc *chatService.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{chatSvc: chatSvc, logger: logger}
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	Event     string `json:"event"`
	Content   string `json:"content,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

// RegisterRoutes 注册流式路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/{sessionID}", h.handleStream)
}

// handleStream 校验参数后切换到 SSE；切换之后的失败以 error 事件发送
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	message := r.URL.Query().Get("message")
	if strings.TrimSpace(message) == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()
	if _, _, err := h.chatSvc.EnsureSession(ctx, sessionID); err != nil {
		apierror.Write(w, err)
		return
	}

	utils.SetupSSEHeaders(w)
	h.send(w, flusher, StreamResponse{Event: EventStart, SessionID: sessionID})

	reply, err := h.chatSvc.Stream(ctx, sessionID, message, func(delta string) error {
		return utils.SendSSEChunk(w, flusher, StreamResponse{
			Event:     EventDelta,
			SessionID: sessionID,
			Content:   delta,
		})
	})
	if err != nil {
		_, msg := apierror.Status(err)
		h.logger.Warn("stream aborted", "session_id", sessionID, "error", err)
		h.send(w, flusher, StreamResponse{Event: EventError, SessionID: sessionID, Error: msg})
		return
	}

	h.send(w, flusher, StreamResponse{Event: EventMessage, SessionID: sessionID, Content: reply.Response})
	h.send(w, flusher, StreamResponse{Event: EventEnd, SessionID: sessionID, Finished: true})
	h.logger.Info("stream completed", "session_id", sessionID, "length", len(reply.Response))
}

func (h *Handler) send(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) {
	if err := utils.SendSSEChunk(w, flusher, response); err != nil {
		h.logger.Warn("failed to send sse event", "event", response.Event, "error", err)
	}
}
