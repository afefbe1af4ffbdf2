package artifact

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/polaris/backend/internal/handler/apierror"
	artifactService "github.com/zhouzirui/polaris/backend/internal/service/artifact"
	"github.com/zhouzirui/polaris/backend/pkg/utils"
)

// Handler 原型、模拟数据和工时估算
type Handler struct {
	service *artifactService.Service
}

func New(service *artifactService.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes 注册产物路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/prototype", h.handlePrototype)
	r.Post("/mocks", h.handleMocks)
	r.Post("/estimate", h.handleEstimate)
}

type prototypeRequest struct {
	SessionID string         `json:"session_id"`
	ChoiceID  int            `json:"choice_id"`
	Context   map[string]any `json:"context"`
}

func (h *Handler) handlePrototype(w http.ResponseWriter, r *http.Request) {
	var payload prototypeRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pc, err := artifactService.DecodePrototypeContext(payload.Context)
	if err != nil {
		apierror.Write(w, err)
		return
	}

	result, err := h.service.Prototype(r.Context(), payload.SessionID, payload.ChoiceID, pc)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

type mocksRequest struct {
	SessionID    string         `json:"session_id"`
	ContractName string         `json:"contract_name"`
	Context      map[string]any `json:"context"`
	Count        int            `json:"count"`
}

func (h *Handler) handleMocks(w http.ResponseWriter, r *http.Request) {
	var payload mocksRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mc, err := artifactService.DecodeMockContext(payload.Context)
	if err != nil {
		apierror.Write(w, err)
		return
	}

	result, err := h.service.Mocks(r.Context(), payload.SessionID, payload.ContractName, mc, payload.Count)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

type estimateRequest struct {
	SessionID     string   `json:"session_id"`
	Features      []string `json:"features"`
	IncludeBuffer bool     `json:"include_buffer"`
}

func (h *Handler) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var payload estimateRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.service.Estimate(r.Context(), payload.SessionID, payload.Features, payload.IncludeBuffer)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}
