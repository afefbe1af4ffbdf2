package discovery

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/polaris/backend/internal/handler/apierror"
	discoveryService "github.com/zhouzirui/polaris/backend/internal/service/discovery"
	"github.com/zhouzirui/polaris/backend/pkg/utils"
)

// Handler 处理需求发现轮次
type Handler struct {
	service *discoveryService.Service
}

// New 创建发现处理器
func New(service *discoveryService.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes 注册发现路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/discovery", h.handleTurn)
}

type turnRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// handleTurn 处理一轮对话。模型失败不会返回错误，只有会话不存在会返回 404。
func (h *Handler) handleTurn(w http.ResponseWriter, r *http.Request) {
	var payload turnRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.SessionID) == "" {
		utils.RespondError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if strings.TrimSpace(payload.Message) == "" {
		utils.RespondError(w, http.StatusBadRequest, "message is required")
		return
	}

	result, err := h.service.ProcessTurn(r.Context(), payload.SessionID, payload.Message)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}
