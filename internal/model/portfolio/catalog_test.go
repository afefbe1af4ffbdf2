package portfolio

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSeedIsRanked(t *testing.T) {
	catalog := NewCatalog(Seed())
	items := catalog.List()
	if len(items) != 3 {
		t.Fatalf("expected 3 seed candidates, got %d", len(items))
	}
	for i := 1; i < len(items); i++ {
		if items[i-1].Score < items[i].Score {
			t.Fatalf("catalog not ranked: %+v", items)
		}
	}
}

func TestTop(t *testing.T) {
	catalog := NewCatalog(Seed())
	if got := catalog.Top(2); len(got) != 2 || got[0].ID != 1 {
		t.Fatalf("unexpected top 2: %+v", got)
	}
	if got := catalog.Top(5); len(got) != 3 {
		t.Fatalf("top 5 should return all 3, got %d", len(got))
	}
	if got := catalog.Top(0); got == nil || len(got) != 0 {
		t.Fatalf("top 0 should be an empty list, got %#v", got)
	}
}

func TestParseCatalog(t *testing.T) {
	raw := []byte(`
candidates:
  - id: 7
    title: ERP leve
    score: "0.5"
    rationale: Gestão para PMEs
  - id: 8
    title: App de delivery
    score: 0.9
    rationale: Pedidos e rastreio
    stack: [go, react]
    estimated_budget: 45000
`)
	catalog, err := ParseCatalog(raw)
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	items := catalog.List()
	if items[0].ID != 8 || items[1].Score != 0.5 {
		t.Fatalf("unexpected catalog order: %+v", items)
	}
	if items[0].EstimatedBudget == nil || *items[0].EstimatedBudget != 45000 {
		t.Fatalf("budget not decoded: %+v", items[0])
	}
	if _, ok := catalog.FindByID(7); !ok {
		t.Fatal("expected id 7 to be found")
	}
}

func TestParseCatalogRejectsDuplicates(t *testing.T) {
	raw := []byte("candidates:\n  - {id: 1, title: a}\n  - {id: 1, title: b}\n")
	if _, err := ParseCatalog(raw); err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestLoadCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte("candidates:\n  - {id: 3, title: x, score: 0.1}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	catalog, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if catalog.Len() != 1 {
		t.Fatalf("expected 1 candidate, got %d", catalog.Len())
	}

	builtin, err := LoadCatalog("")
	if err != nil || builtin.Len() != 3 {
		t.Fatalf("empty path should load the seed catalog: %v", err)
	}
}
