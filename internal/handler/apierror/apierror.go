package apierror

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/zhouzirui/polaris/backend/internal/model/discovery"
	"github.com/zhouzirui/polaris/backend/internal/service/artifact"
	"github.com/zhouzirui/polaris/backend/internal/service/chat"
	"github.com/zhouzirui/polaris/backend/internal/service/gateway"
	"github.com/zhouzirui/polaris/backend/internal/service/portfolio"
	"github.com/zhouzirui/polaris/backend/internal/service/session"
	"github.com/zhouzirui/polaris/backend/pkg/utils"
)

// Status maps a service error to an HTTP status and a client-facing message.
func Status(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound, "session not found"
	case errors.Is(err, artifact.ErrInvalidInput),
		errors.Is(err, portfolio.ErrInvalidQuery),
		errors.Is(err, chat.ErrMessageRequired),
		errors.Is(err, discovery.ErrInvalidPatch):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, gateway.ErrUpstream):
		return http.StatusBadGateway, "llm_error"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout, "request cancelled"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// Write responds with the mapped status. Unmapped errors are logged.
func Write(w http.ResponseWriter, err error) {
	status, message := Status(err)
	if status == http.StatusInternalServerError {
		slog.Error("unhandled request error", "error", err)
	}
	utils.RespondError(w, status, message)
}
