package artifact

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/zhouzirui/polaris/backend/internal/model/discovery"
)

// ErrInvalidInput marks a request that fails validation.
var ErrInvalidInput = errors.New("invalid input")

// SessionLookup is the part of the session store artifacts depend on.
type SessionLookup interface {
	Get(ctx context.Context, id string) (*discovery.Session, error)
}

// Service generates session-scoped artifacts. Every operation requires an
// existing session.
type Service struct {
	sessions SessionLookup
	now      func() time.Time

	randMu sync.Mutex
	rand   *rand.Rand
}

// Option configures the Service.
type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRand fixes the random source used for mock sampling.
func WithRand(r *rand.Rand) Option {
	return func(s *Service) { s.rand = r }
}

func NewService(sessions SessionLookup, opts ...Option) *Service {
	s := &Service{
		sessions: sessions,
		now:      func() time.Time { return time.Now().UTC() },
		rand:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ensureSession(ctx context.Context, sessionID string) error {
	_, err := s.sessions.Get(ctx, sessionID)
	return err
}

// decodeContext maps a loose JSON object onto a typed context struct.
func decodeContext(raw map[string]any, out any) error {
	if raw == nil {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		TagName:          "json",
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("%w: context: %w", ErrInvalidInput, err)
	}
	return nil
}
