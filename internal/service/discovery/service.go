package discovery

import (
	"context"
	"log/slog"

	"github.com/zhouzirui/polaris/backend/internal/logging"
	"github.com/zhouzirui/polaris/backend/internal/metrics"
	"github.com/zhouzirui/polaris/backend/internal/model/discovery"
	"github.com/zhouzirui/polaris/backend/internal/model/portfolio"
	"github.com/zhouzirui/polaris/backend/internal/service/extractor"
	portfoliosvc "github.com/zhouzirui/polaris/backend/internal/service/portfolio"
	"github.com/zhouzirui/polaris/backend/internal/service/session"
)

// ActionSuggestPortfolio tells the caller to present portfolio candidates.
const ActionSuggestPortfolio = "suggest_portfolio"

// SuggestionCount is the number of candidates requested on completion.
const SuggestionCount = 5

// SlotExtractor turns a message into an extraction outcome.
type SlotExtractor interface {
	Extract(ctx context.Context, message string) extractor.Outcome
}

// Action is a follow-up the caller should perform.
type Action struct {
	Type       string                `json:"type"`
	Candidates []portfolio.Candidate `json:"candidates"`
}

// TurnResult is the answer to one discovery turn.
type TurnResult struct {
	NextQuestion *string         `json:"next_question"`
	Slots        discovery.Slots `json:"slots"`
	Complete     bool            `json:"complete"`
	Actions      []Action        `json:"actions,omitempty"`
}

// Service drives the discovery conversation of every session.
type Service struct {
	store     *session.Store
	extractor SlotExtractor
	searcher  portfoliosvc.Searcher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService wires the state machine to its collaborators.
func NewService(store *session.Store, ex SlotExtractor, searcher portfoliosvc.Searcher, opts ...Option) *Service {
	s := &Service{
		store:     store,
		extractor: ex,
		searcher:  searcher,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessTurn records the client message, extracts slots from it and either
// asks for the first missing slot or, once all are present, suggests
// portfolio candidates. Only session.ErrSessionNotFound and context errors
// are returned; model failures leave the slots as they were.
func (s *Service) ProcessTurn(ctx context.Context, sessionID, message string) (*TurnResult, error) {
	var result *TurnResult

	err := s.store.WithLock(ctx, sessionID, func(record *discovery.Session) error {
		record.AppendTurn(discovery.SpeakerClient, message, s.store.Now())

		outcome := s.extractor.Extract(ctx, message)
		if outcome.Succeeded() {
			outcome.Apply(record.Slots)
		} else {
			s.logger.Warn("slot extraction produced no update",
				"session_id", sessionID,
				"reason", outcome.Reason,
				"attempts", outcome.Attempts,
			)
		}

		result = s.evaluate(ctx, record.Slots, message)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.DiscoveryTurn(result.Complete)
	s.logger.Info("discovery turn processed",
		"session_id", sessionID,
		"complete", result.Complete,
	)
	return result, nil
}

// evaluate recomputes the state from slot presence; nothing is cached.
func (s *Service) evaluate(ctx context.Context, slots discovery.Slots, query string) *TurnResult {
	result := &TurnResult{Slots: slots.Clone()}

	if slot, missing := discovery.NextMissing(slots); missing {
		question := slot.Question
		result.NextQuestion = &question
		return result
	}

	result.Complete = true
	result.Actions = []Action{{
		Type:       ActionSuggestPortfolio,
		Candidates: s.searcher.Search(ctx, query, SuggestionCount),
	}}
	return result
}

// OverrideSlots shallow-merges patch into the session's slots and returns
// the full map. Unknown keys are dropped and reported.
func (s *Service) OverrideSlots(ctx context.Context, sessionID string, patch map[string]any) (discovery.Slots, []string, error) {
	var (
		slots   discovery.Slots
		ignored []string
	)
	err := s.store.WithLock(ctx, sessionID, func(record *discovery.Session) error {
		ignored = record.Slots.Override(patch)
		slots = record.Slots.Clone()
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.logOverride(sessionID, ignored)
	return slots, ignored, nil
}

// PatchSlots applies RFC 6902 operations to the session's slots. A failing
// patch leaves the slots untouched.
func (s *Service) PatchSlots(ctx context.Context, sessionID string, ops []discovery.PatchOperation) (discovery.Slots, []string, error) {
	var (
		slots   discovery.Slots
		ignored []string
	)
	err := s.store.WithLock(ctx, sessionID, func(record *discovery.Session) error {
		patched, dropped, err := record.Slots.ApplyPatch(ops)
		if err != nil {
			return err
		}
		record.Slots = patched
		slots = patched.Clone()
		ignored = dropped
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.logOverride(sessionID, ignored)
	return slots, ignored, nil
}

func (s *Service) logOverride(sessionID string, ignored []string) {
	if len(ignored) > 0 {
		s.logger.Warn("slot override ignored unknown keys", "session_id", sessionID, "keys", ignored)
		return
	}
	s.logger.Debug("slots overridden", "session_id", sessionID)
}
