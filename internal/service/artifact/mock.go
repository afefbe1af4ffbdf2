package artifact

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
)

const (
	DefaultMockCount = 10
	MaxMockCount     = 100
)

// MockContext describes the record mocks are derived from.
type MockContext struct {
	ExampleBase map[string]any `json:"example_base"`
	Domain      string         `json:"domain"`
	Locale      string         `json:"locale"`
}

// DecodeMockContext converts a loose JSON object.
func DecodeMockContext(raw map[string]any) (MockContext, error) {
	var mc MockContext
	err := decodeContext(raw, &mc)
	return mc, err
}

// Mock is one generated example record.
type Mock struct {
	ID       int            `json:"id"`
	Contract string         `json:"contract"`
	Name     string         `json:"name"`
	Payload  map[string]any `json:"payload"`
}

// MockResult is returned by Service.Mocks.
type MockResult struct {
	Mocks        []Mock `json:"mocks"`
	ValidCount   int    `json:"valid_count"`
	InvalidCount int    `json:"invalid_count"`
	ContractName string `json:"contract_name"`
	Validated    bool   `json:"validated"`
	SessionID    string `json:"session_id"`
}

// Mocks generates count examples of contract. A zero count uses the default.
func (s *Service) Mocks(ctx context.Context, sessionID, contract string, mc MockContext, count int) (*MockResult, error) {
	if err := s.ensureSession(ctx, sessionID); err != nil {
		return nil, err
	}
	contract = strings.TrimSpace(contract)
	if contract == "" {
		return nil, fmt.Errorf("%w: contract name is required", ErrInvalidInput)
	}
	if count == 0 {
		count = DefaultMockCount
	}
	if count < 1 || count > MaxMockCount {
		return nil, fmt.Errorf("%w: count must be between 1 and %d", ErrInvalidInput, MaxMockCount)
	}

	s.randMu.Lock()
	mocks := GenerateMocks(s.rand, contract, mc.ExampleBase, count)
	s.randMu.Unlock()

	return &MockResult{
		Mocks:        mocks,
		ValidCount:   len(mocks),
		ContractName: contract,
		SessionID:    sessionID,
	}, nil
}

// GenerateMocks derives count records from base. For record i (1-based)
// strings get a "_i" suffix, integers are increased by i-1, lists are
// replaced by a random sample of at most two elements and anything else is
// copied.
func GenerateMocks(r *rand.Rand, contract string, base map[string]any, count int) []Mock {
	mocks := make([]Mock, 0, count)
	for i := 1; i <= count; i++ {
		payload := make(map[string]any, len(base))
		for key, value := range base {
			payload[key] = vary(r, value, i)
		}
		mocks = append(mocks, Mock{
			ID:       i,
			Contract: contract,
			Name:     fmt.Sprintf("%s_mock_%d", contract, i),
			Payload:  payload,
		})
	}
	return mocks
}

func vary(r *rand.Rand, value any, i int) any {
	switch v := value.(type) {
	case string:
		return fmt.Sprintf("%s_%d", v, i)
	case int:
		return v + i - 1
	case int64:
		return v + int64(i-1)
	case float64:
		// JSON numbers decode as float64; only integral ones are varied.
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return v + float64(i-1)
		}
		return v
	case []any:
		return sample(r, v, 2)
	case []string:
		items := make([]any, len(v))
		for j, s := range v {
			items[j] = s
		}
		return sample(r, items, 2)
	default:
		return v
	}
}

// sample picks up to k distinct elements in random order.
func sample(r *rand.Rand, items []any, k int) []any {
	k = min(k, len(items))
	out := make([]any, 0, k)
	for _, idx := range r.Perm(len(items))[:k] {
		out = append(out, items[idx])
	}
	return out
}
