package artifact

import (
	"context"
	"fmt"
	"strings"
	"time"
)

var defaultFeatures = []string{"Funcionalidade A", "Funcionalidade B"}

const missingSummary = "Resumo não fornecido"

// PrototypeContext carries the inputs of a prototype document.
type PrototypeContext struct {
	Summary      string   `json:"summary"`
	Features     []string `json:"features"`
	Constraints  []string `json:"constraints"`
	Integrations []string `json:"integrations"`
}

// DecodePrototypeContext converts a loose JSON object.
func DecodePrototypeContext(raw map[string]any) (PrototypeContext, error) {
	var pc PrototypeContext
	err := decodeContext(raw, &pc)
	return pc, err
}

// Document is a generated artifact. Path is nil because nothing is persisted.
type Document struct {
	Path    *string `json:"path"`
	Content string  `json:"content"`
}

// PrototypeResult is returned by Service.Prototype.
type PrototypeResult struct {
	Artifact    Document  `json:"artifact"`
	SessionID   string    `json:"session_id"`
	ChoiceID    int       `json:"choice_id"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Prototype renders the prototype markdown for a portfolio choice.
func (s *Service) Prototype(ctx context.Context, sessionID string, choiceID int, pc PrototypeContext) (*PrototypeResult, error) {
	if err := s.ensureSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return &PrototypeResult{
		Artifact:    RenderPrototype(choiceID, pc),
		SessionID:   sessionID,
		ChoiceID:    choiceID,
		GeneratedAt: s.now(),
	}, nil
}

// RenderPrototype builds the markdown document.
func RenderPrototype(choiceID int, pc PrototypeContext) Document {
	summary := strings.TrimSpace(pc.Summary)
	if summary == "" {
		summary = missingSummary
	}
	features := pc.Features
	if len(features) == 0 {
		features = defaultFeatures
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Protótipo - escolha %d\n\n", choiceID)
	b.WriteString(summary)
	b.WriteString("\n\n")
	b.WriteString("## Requisitos principais\n")
	for i, feature := range features {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, feature)
	}
	writeBullets(&b, "Restrições", pc.Constraints)
	writeBullets(&b, "Integrações", pc.Integrations)

	return Document{Content: b.String()}
}

func writeBullets(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n## %s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}
