package session

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/polaris/backend/internal/handler/apierror"
	"github.com/zhouzirui/polaris/backend/internal/model/discovery"
	discoveryService "github.com/zhouzirui/polaris/backend/internal/service/discovery"
	sessionService "github.com/zhouzirui/polaris/backend/internal/service/session"
	"github.com/zhouzirui/polaris/backend/pkg/utils"
)

const jsonPatchContentType = "application/json-patch+json"

// Handler 会话相关的HTTP处理器
type Handler struct {
	store     *sessionService.Store
	discovery *discoveryService.Service
}

// New 创建会话处理器
func New(store *sessionService.Store, discovery *discoveryService.Service) *Handler {
	return &Handler{store: store, discovery: discovery}
}

// RegisterRoutes 注册会话路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreate)
	r.Get("/sessions/{sessionID}", h.handleGet)
	r.Patch("/sessions/{sessionID}/slots", h.handlePatchSlots)
}

type createRequest struct {
	ClientID *string        `json:"client_id"`
	Metadata map[string]any `json:"metadata"`
}

type createResponse struct {
	SessionID string         `json:"session_id"`
	ClientID  *string        `json:"client_id"`
	CreatedAt time.Time      `json:"created_at"`
	Metadata  map[string]any `json:"metadata"`
	Status    string         `json:"status"`
}

// handleCreate 创建会话，请求体可为空
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload createRequest
	if err := utils.DecodeJSON(r, &payload); err != nil && !errors.Is(err, utils.ErrEmptyBody) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record := h.store.Create(r.Context(), payload.ClientID, payload.Metadata)
	snap := record.Snapshot()

	utils.RespondJSON(w, http.StatusCreated, createResponse{
		SessionID: snap.ID,
		ClientID:  snap.ClientID,
		CreatedAt: snap.CreatedAt,
		Metadata:  snap.Metadata,
		Status:    "active",
	})
}

// handleGet 返回会话快照
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Snapshot(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		apierror.Write(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, snap)
}

type slotsResponse struct {
	SessionID   string          `json:"session_id"`
	Slots       discovery.Slots `json:"slots"`
	IgnoredKeys []string        `json:"ignored_keys,omitempty"`
}

// handlePatchSlots 手动覆盖槽位：JSON 对象做浅合并，json-patch 文档按 RFC 6902 应用
func (h *Handler) handlePatchSlots(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var (
		slots   discovery.Slots
		ignored []string
		err     error
	)
	if isJSONPatch(r) {
		raw, readErr := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if readErr != nil {
			utils.RespondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		ops, decodeErr := discovery.DecodePatch(raw)
		if decodeErr != nil {
			apierror.Write(w, decodeErr)
			return
		}
		slots, ignored, err = h.discovery.PatchSlots(r.Context(), sessionID, ops)
	} else {
		var patch map[string]any
		if decodeErr := utils.DecodeJSON(r, &patch); decodeErr != nil {
			utils.RespondError(w, http.StatusBadRequest, "request body must be a JSON object")
			return
		}
		slots, ignored, err = h.discovery.OverrideSlots(r.Context(), sessionID, patch)
	}
	if err != nil {
		apierror.Write(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, slotsResponse{
		SessionID:   sessionID,
		Slots:       slots,
		IgnoredKeys: ignored,
	})
}

func isJSONPatch(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == jsonPatchContentType
}
