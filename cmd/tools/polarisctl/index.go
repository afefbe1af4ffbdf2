package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/polaris/backend/internal/model/portfolio"
)

// catalogIndex is the part of the embedding client used to index the catalog.
type catalogIndex interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	Upsert(ctx context.Context, id any, vector []float64, metadata map[string]any) error
}

func newIndexCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index-catalog",
		Short: "Embed the portfolio catalog and upsert it into the embedding service",
		Long: `Embeds "title. rationale" for every catalog entry and upserts the vector
with the candidate fields as metadata, so vector search can resolve hits that
are not in the local catalog.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			n, err := indexCatalog(cmd.Context(), a.Embeddings, a.Catalog.List(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d candidates\n", n)
			return nil
		},
	}
}

// indexCatalog embeds every candidate in one call and upserts them in order.
// It stops at the first upsert failure.
func indexCatalog(ctx context.Context, index catalogIndex, candidates []portfolio.Candidate, out io.Writer) (int, error) {
	if len(candidates) == 0 {
		return 0, nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = indexText(c)
	}

	vectors, err := index.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed catalog: %w", err)
	}
	if len(vectors) != len(candidates) {
		return 0, fmt.Errorf("embed catalog: got %d vectors for %d candidates", len(vectors), len(candidates))
	}

	for i, c := range candidates {
		if err := index.Upsert(ctx, c.ID, vectors[i], candidateMetadata(c)); err != nil {
			return i, fmt.Errorf("upsert candidate %d: %w", c.ID, err)
		}
		fmt.Fprintf(out, "%d\t%s\n", c.ID, c.Title)
	}
	return len(candidates), nil
}

func indexText(c portfolio.Candidate) string {
	parts := []string{c.Title}
	if c.Rationale != "" {
		parts = append(parts, c.Rationale)
	}
	if len(c.Stack) > 0 {
		parts = append(parts, strings.Join(c.Stack, ", "))
	}
	return strings.Join(parts, ". ")
}

// candidateMetadata uses the field names EmbeddingSearcher decodes matches with.
func candidateMetadata(c portfolio.Candidate) map[string]any {
	meta := map[string]any{
		"id":        c.ID,
		"title":     c.Title,
		"score":     c.Score,
		"rationale": c.Rationale,
	}
	if len(c.Stack) > 0 {
		meta["stack"] = c.Stack
	}
	if c.EstimatedBudget != nil {
		meta["estimated_budget"] = *c.EstimatedBudget
	}
	if len(c.Metadata) > 0 {
		meta["metadata"] = c.Metadata
	}
	return meta
}
