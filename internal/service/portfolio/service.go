package portfolio

import (
	"context"
	"errors"
	"strings"

	model "github.com/zhouzirui/polaris/backend/internal/model/portfolio"
)

// ErrInvalidQuery is returned for an empty selection query.
var ErrInvalidQuery = errors.New("query is required")

const (
	minTopK = 1
	maxTopK = 10
)

// Filters restrict a selection. Zero values disable a filter.
type Filters struct {
	MaxBudget     *float64 `json:"max_budget,omitempty"`
	RequiredStack []string `json:"required_stack,omitempty"`
	Industry      string   `json:"industry,omitempty"`
}

func (f Filters) empty() bool {
	return f.MaxBudget == nil && len(f.RequiredStack) == 0 && f.Industry == ""
}

// Selection is the result of Select.
type Selection struct {
	Candidates     []model.Candidate `json:"candidates"`
	Query          string            `json:"query"`
	TotalFound     int               `json:"total_found"`
	FiltersApplied Filters           `json:"filters_applied"`
}

// Service is the public portfolio selection operation on top of a Searcher.
type Service struct {
	searcher Searcher
}

func NewService(searcher Searcher) *Service {
	return &Service{searcher: searcher}
}

// Searcher exposes the underlying capability for the discovery flow.
func (s *Service) Searcher() Searcher {
	return s.searcher
}

// Select clamps topK to [1,10], searches and applies filters.
func (s *Service) Select(ctx context.Context, query string, topK int, filters Filters) (*Selection, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidQuery
	}
	topK = max(minTopK, min(maxTopK, topK))

	candidates := s.searcher.Search(ctx, query, topK)
	if !filters.empty() {
		candidates = applyFilters(candidates, filters)
	}
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	return &Selection{
		Candidates:     candidates,
		Query:          query,
		TotalFound:     len(candidates),
		FiltersApplied: filters,
	}, nil
}

// applyFilters keeps candidates within budget and carrying every required
// stack entry. Industry is recorded but not matched: candidates carry no
// industry field.
func applyFilters(candidates []model.Candidate, filters Filters) []model.Candidate {
	out := make([]model.Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		if filters.MaxBudget != nil {
			if candidate.EstimatedBudget == nil || *candidate.EstimatedBudget > *filters.MaxBudget {
				continue
			}
		}
		if !hasStack(candidate.Stack, filters.RequiredStack) {
			continue
		}
		out = append(out, candidate)
	}
	return out
}

func hasStack(stack, required []string) bool {
	have := make(map[string]struct{}, len(stack))
	for _, item := range stack {
		have[strings.ToLower(item)] = struct{}{}
	}
	for _, item := range required {
		if _, ok := have[strings.ToLower(item)]; !ok {
			return false
		}
	}
	return true
}
