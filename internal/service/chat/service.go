package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/zhouzirui/polaris/backend/internal/logging"
	"github.com/zhouzirui/polaris/backend/internal/model/discovery"
	"github.com/zhouzirui/polaris/backend/internal/service/gateway"
	"github.com/zhouzirui/polaris/backend/internal/service/session"
)

var ErrMessageRequired = errors.New("message is required")

const (
	replyTemperature = 0.7
	replyMaxTokens   = 256
	streamMaxTokens  = 512
)

const promptTemplate = `You are a helpful assistant. Reply in a concise, friendly and human tone to the user message: "%s"`

// Reply is a completed chat exchange.
type Reply struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

// Service answers free-form messages and records both sides in the session.
type Service struct {
	store   *session.Store
	gateway gateway.Gateway
	logger  *slog.Logger
}

// NewService creates a chat service. A nil logger discards output.
func NewService(store *session.Store, gw gateway.Gateway, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{store: store, gateway: gw, logger: logger}
}

// EnsureSession returns sessionID when it exists, or creates a session when
// sessionID is empty. created reports whether a session was created.
func (s *Service) EnsureSession(ctx context.Context, sessionID string) (id string, created bool, err error) {
	if sessionID == "" {
		return s.store.Create(ctx, nil, nil).ID, true, nil
	}
	if _, err := s.store.Get(ctx, sessionID); err != nil {
		return "", false, err
	}
	return sessionID, false, nil
}

// Reply sends message to the model and returns its answer. Gateway failures
// are returned wrapping gateway.ErrUpstream; the client turn stays recorded.
func (s *Service) Reply(ctx context.Context, sessionID, message string) (*Reply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrMessageRequired
	}
	id, _, err := s.EnsureSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var reply *Reply
	err = s.store.WithLock(ctx, id, func(record *discovery.Session) error {
		record.AppendTurn(discovery.SpeakerClient, message, s.store.Now())

		completion, err := s.gateway.Generate(ctx, gateway.Request{
			Prompt:      buildPrompt(message),
			MaxTokens:   replyMaxTokens,
			Temperature: replyTemperature,
		})
		if err != nil {
			return err
		}

		record.AppendTurn(discovery.SpeakerAssistant, completion.Text, s.store.Now())
		reply = &Reply{Response: completion.Text, SessionID: id}
		return nil
	})
	if err != nil {
		s.logger.Warn("chat reply failed", "session_id", id, "error", err)
		return nil, err
	}

	s.logger.Info("chat reply generated", "session_id", id, "length", len(reply.Response))
	return reply, nil
}

// Stream is Reply with incremental delivery: onDelta receives every
// non-empty chunk in order. An onDelta error aborts the stream.
func (s *Service) Stream(ctx context.Context, sessionID, message string, onDelta func(string) error) (*Reply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrMessageRequired
	}
	if sessionID == "" {
		return nil, session.ErrSessionNotFound
	}

	var reply *Reply
	err := s.store.WithLock(ctx, sessionID, func(record *discovery.Session) error {
		record.AppendTurn(discovery.SpeakerClient, message, s.store.Now())

		stream, err := gateway.Stream(ctx, s.gateway, gateway.Request{
			Prompt:      buildPrompt(message),
			MaxTokens:   streamMaxTokens,
			Temperature: replyTemperature,
		})
		if err != nil {
			return err
		}
		defer stream.Close()

		var full strings.Builder
		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return fmt.Errorf("%w: stream: %v", gateway.ErrUpstream, err)
			}
			if chunk == "" {
				continue
			}
			full.WriteString(chunk)
			if err := onDelta(chunk); err != nil {
				return err
			}
		}

		record.AppendTurn(discovery.SpeakerAssistant, full.String(), s.store.Now())
		reply = &Reply{Response: full.String(), SessionID: sessionID}
		return nil
	})
	if err != nil {
		s.logger.Warn("chat stream failed", "session_id", sessionID, "error", err)
		return nil, err
	}
	return reply, nil
}

func buildPrompt(message string) string {
	return fmt.Sprintf(promptTemplate, message)
}
