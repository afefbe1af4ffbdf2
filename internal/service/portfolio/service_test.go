package portfolio

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/zhouzirui/polaris/backend/internal/model/portfolio"
	"github.com/zhouzirui/polaris/backend/internal/service/embedding"
)

func budget(v float64) *float64 { return &v }

func richCatalog() *model.Catalog {
	return model.NewCatalog([]model.Candidate{
		{ID: 1, Title: "Loja", Score: 0.9, Stack: []string{"Go", "React"}, EstimatedBudget: budget(30000)},
		{ID: 2, Title: "SaaS", Score: 0.8, Stack: []string{"go"}, EstimatedBudget: budget(90000)},
		{ID: 3, Title: "Marketplace", Score: 0.7, Stack: []string{"python", "react"}},
	})
}

func TestStaticSearcherIsDeterministic(t *testing.T) {
	s := NewStaticSearcher(nil)
	first := s.Search(context.Background(), "loja online", 5)
	second := s.Search(context.Background(), "algo diferente", 5)

	require.Len(t, first, 3)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, first[0].ID)
	assert.Len(t, s.Search(context.Background(), "x", 2), 2)
	assert.Empty(t, s.Search(context.Background(), "x", 0))
}

func TestSelectClampsTopK(t *testing.T) {
	svc := NewService(NewStaticSearcher(nil))

	sel, err := svc.Select(context.Background(), "loja", 0, Filters{})
	require.NoError(t, err)
	assert.Len(t, sel.Candidates, 1)

	sel, err = svc.Select(context.Background(), "loja", 50, Filters{})
	require.NoError(t, err)
	assert.Len(t, sel.Candidates, 3)
	assert.Equal(t, 3, sel.TotalFound)
	assert.Equal(t, "loja", sel.Query)
}

func TestSelectRejectsEmptyQuery(t *testing.T) {
	_, err := NewService(NewStaticSearcher(nil)).Select(context.Background(), "  ", 5, Filters{})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestSelectFilters(t *testing.T) {
	svc := NewService(NewStaticSearcher(richCatalog()))

	sel, err := svc.Select(context.Background(), "q", 10, Filters{MaxBudget: budget(50000)})
	require.NoError(t, err)
	require.Len(t, sel.Candidates, 1)
	assert.Equal(t, 1, sel.Candidates[0].ID)
	assert.Equal(t, 1, sel.TotalFound)

	sel, err = svc.Select(context.Background(), "q", 10, Filters{RequiredStack: []string{"react"}})
	require.NoError(t, err)
	assert.Equal(t, 2, sel.TotalFound)
	assert.Equal(t, []string{"react"}, sel.FiltersApplied.RequiredStack)
}

type fakeIndex struct {
	vectors [][]float64
	matches []embedding.Match
	err     error
}

func (f *fakeIndex) Embed(context.Context, []string) ([][]float64, error) {
	return f.vectors, f.err
}

func (f *fakeIndex) Search(context.Context, []float64, int) ([]embedding.Match, error) {
	return f.matches, f.err
}

func TestEmbeddingSearcherMapsMatches(t *testing.T) {
	index := &fakeIndex{
		vectors: [][]float64{{0.1}},
		matches: []embedding.Match{
			{ID: "3", Score: 0.99},
			{ID: 42, Score: 0.5, Metadata: map[string]any{"title": "Novo", "rationale": "fora do catálogo"}},
			{ID: "unknown", Score: 0.1},
		},
	}
	s := NewEmbeddingSearcher(index, richCatalog(), nil, nil)

	got := s.Search(context.Background(), "marketplace", 5)
	require.Len(t, got, 2)
	assert.Equal(t, 3, got[0].ID)
	assert.Equal(t, 0.99, got[0].Score)
	assert.Equal(t, "Novo", got[1].Title)
	assert.Equal(t, 42, got[1].ID)
}

func TestEmbeddingSearcherFallsBack(t *testing.T) {
	static := NewStaticSearcher(nil)

	failing := NewEmbeddingSearcher(&fakeIndex{err: errors.New("down")}, nil, static, nil)
	assert.Equal(t, static.Search(context.Background(), "q", 2), failing.Search(context.Background(), "q", 2))

	empty := NewEmbeddingSearcher(&fakeIndex{vectors: [][]float64{{1}}}, nil, static, nil)
	assert.Len(t, empty.Search(context.Background(), "q", 3), 3)
}
