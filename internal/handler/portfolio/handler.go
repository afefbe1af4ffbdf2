package portfolio

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/polaris/backend/internal/handler/apierror"
	portfolioService "github.com/zhouzirui/polaris/backend/internal/service/portfolio"
	"github.com/zhouzirui/polaris/backend/pkg/utils"
)

const defaultTopK = 5

// Handler 组合项目推荐
type Handler struct {
	service *portfolioService.Service
}

func New(service *portfolioService.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes 注册组合路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/portfolio/select", h.handleSelect)
}

type selectRequest struct {
	Query   string                   `json:"query"`
	TopK    *int                     `json:"top_k"`
	Filters portfolioService.Filters `json:"filters"`
}

func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	var payload selectRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	topK := defaultTopK
	if payload.TopK != nil {
		topK = *payload.TopK
	}

	selection, err := h.service.Select(r.Context(), payload.Query, topK, payload.Filters)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, selection)
}
