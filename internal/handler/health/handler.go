package health

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	healthService "github.com/zhouzirui/polaris/backend/internal/service/health"
	"github.com/zhouzirui/polaris/backend/pkg/utils"
)

// Handler 健康检查
type Handler struct {
	service *healthService.Service
}

func New(service *healthService.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes 注册健康检查路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.handleHealth)
}

// handleHealth 始终返回 200，组件状态放在响应体里
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	var opts healthService.Options
	if raw := r.URL.Query().Get("embeddings"); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "embeddings must be a boolean")
			return
		}
		opts.Embeddings = enabled
	}

	utils.RespondJSON(w, http.StatusOK, h.service.Check(r.Context(), opts))
}
