package portfolio

import (
	"cmp"
	"fmt"
	"os"
	"slices"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Catalog is an immutable, score-ordered candidate list.
type Catalog struct {
	items []Candidate
	byID  map[int]Candidate
}

// NewCatalog copies items and orders them by descending score. Ties keep input order.
func NewCatalog(items []Candidate) *Catalog {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b Candidate) int {
		return cmp.Compare(b.Score, a.Score)
	})

	byID := make(map[int]Candidate, len(sorted))
	for _, item := range sorted {
		byID[item.ID] = item
	}
	return &Catalog{items: sorted, byID: byID}
}

// List returns a copy of the ranked candidates.
func (c *Catalog) List() []Candidate {
	return slices.Clone(c.items)
}

// Top returns the first n candidates. n <= 0 yields an empty list.
func (c *Catalog) Top(n int) []Candidate {
	if n <= 0 {
		return []Candidate{}
	}
	if n > len(c.items) {
		n = len(c.items)
	}
	return slices.Clone(c.items[:n])
}

// FindByID returns the candidate with the given id.
func (c *Catalog) FindByID(id int) (Candidate, bool) {
	item, ok := c.byID[id]
	return item, ok
}

// Len reports the catalog size.
func (c *Catalog) Len() int {
	return len(c.items)
}

type catalogFile struct {
	Candidates []map[string]any `yaml:"candidates"`
}

// LoadCatalog reads a YAML file of the form:
//
//	candidates:
//	  - id: 1
//	    title: E-commerce básico
//	    score: 0.95
//	    rationale: ...
//	    stack: [go, react]
//	    estimated_budget: 30000
//
// An empty path returns the built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return NewCatalog(Seed()), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read portfolio catalog: %w", err)
	}
	return ParseCatalog(raw)
}

// ParseCatalog decodes catalog YAML.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse portfolio catalog: %w", err)
	}
	if len(file.Candidates) == 0 {
		return nil, fmt.Errorf("portfolio catalog has no candidates")
	}

	items := make([]Candidate, 0, len(file.Candidates))
	seen := make(map[int]struct{}, len(file.Candidates))
	for i, entry := range file.Candidates {
		var item Candidate
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &item,
		})
		if err != nil {
			return nil, err
		}
		if err := decoder.Decode(entry); err != nil {
			return nil, fmt.Errorf("decode candidate %d: %w", i, err)
		}
		if item.Title == "" {
			return nil, fmt.Errorf("candidate %d missing title", i)
		}
		if _, dup := seen[item.ID]; dup {
			return nil, fmt.Errorf("duplicate candidate id %d", item.ID)
		}
		seen[item.ID] = struct{}{}
		items = append(items, item)
	}
	return NewCatalog(items), nil
}
