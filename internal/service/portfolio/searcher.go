package portfolio

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mitchellh/mapstructure"

	"github.com/zhouzirui/polaris/backend/internal/logging"
	model "github.com/zhouzirui/polaris/backend/internal/model/portfolio"
	"github.com/zhouzirui/polaris/backend/internal/service/embedding"
)

// Searcher ranks portfolio candidates for a query. It never fails; an
// unusable backend degrades to a static answer.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) []model.Candidate
}

// StaticSearcher answers every query with the catalog's ranking.
type StaticSearcher struct {
	catalog *model.Catalog
}

func NewStaticSearcher(catalog *model.Catalog) *StaticSearcher {
	if catalog == nil {
		catalog = model.NewCatalog(model.Seed())
	}
	return &StaticSearcher{catalog: catalog}
}

// Search ignores the query and returns the top topK catalog entries.
func (s *StaticSearcher) Search(_ context.Context, _ string, topK int) []model.Candidate {
	return s.catalog.Top(topK)
}

// VectorIndex is the part of the embedding client used for search.
type VectorIndex interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	Search(ctx context.Context, vector []float64, topK int) ([]embedding.Match, error)
}

// EmbeddingSearcher queries a vector index and falls back to a static
// searcher on any error or empty result.
type EmbeddingSearcher struct {
	index    VectorIndex
	catalog  *model.Catalog
	fallback Searcher
	logger   *slog.Logger
}

func NewEmbeddingSearcher(index VectorIndex, catalog *model.Catalog, fallback Searcher, logger *slog.Logger) *EmbeddingSearcher {
	if catalog == nil {
		catalog = model.NewCatalog(model.Seed())
	}
	if fallback == nil {
		fallback = NewStaticSearcher(catalog)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &EmbeddingSearcher{index: index, catalog: catalog, fallback: fallback, logger: logger}
}

func (s *EmbeddingSearcher) Search(ctx context.Context, query string, topK int) []model.Candidate {
	if topK <= 0 {
		return []model.Candidate{}
	}

	candidates, err := s.search(ctx, query, topK)
	if err != nil {
		s.logger.Warn("portfolio vector search failed, using static catalog", "error", err)
		return s.fallback.Search(ctx, query, topK)
	}
	if len(candidates) == 0 {
		return s.fallback.Search(ctx, query, topK)
	}
	return candidates
}

func (s *EmbeddingSearcher) search(ctx context.Context, query string, topK int) ([]model.Candidate, error) {
	vectors, err := s.index.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("embedding service returned no vector")
	}

	matches, err := s.index.Search(ctx, vectors[0], topK)
	if err != nil {
		return nil, err
	}

	out := make([]model.Candidate, 0, len(matches))
	for _, match := range matches {
		candidate, ok := s.resolve(match)
		if !ok {
			continue
		}
		out = append(out, candidate)
		if len(out) == topK {
			break
		}
	}
	return out, nil
}

// resolve maps a match to a catalog entry by id, or decodes it from the
// match metadata when the id is not catalogued.
func (s *EmbeddingSearcher) resolve(match embedding.Match) (model.Candidate, bool) {
	var id int
	if err := mapstructure.WeakDecode(match.ID, &id); err == nil {
		if candidate, ok := s.catalog.FindByID(id); ok {
			candidate.Score = match.Score
			return candidate, true
		}
	}

	if len(match.Metadata) == 0 {
		return model.Candidate{}, false
	}
	var candidate model.Candidate
	if err := mapstructure.WeakDecode(match.Metadata, &candidate); err != nil || candidate.Title == "" {
		return model.Candidate{}, false
	}
	if candidate.ID == 0 {
		candidate.ID = id
	}
	candidate.Score = match.Score
	return candidate, true
}
