package main

import (
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/polaris/backend/internal/service/artifact"
)

func newPrototypeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prototype",
		Short: "Preview the prototype document for a portfolio choice",
		RunE: func(cmd *cobra.Command, _ []string) error {
			choice, _ := cmd.Flags().GetInt("choice")
			summary, _ := cmd.Flags().GetString("summary")
			features, _ := cmd.Flags().GetStringSlice("feature")
			constraints, _ := cmd.Flags().GetStringSlice("constraint")
			integrations, _ := cmd.Flags().GetStringSlice("integration")
			plain, _ := cmd.Flags().GetBool("plain")

			doc := artifact.RenderPrototype(choice, artifact.PrototypeContext{
				Summary:      summary,
				Features:     features,
				Constraints:  constraints,
				Integrations: integrations,
			})

			out := doc.Content
			if !plain {
				rendered, err := renderMarkdown(doc.Content)
				if err != nil {
					return fmt.Errorf("render markdown: %w", err)
				}
				out = rendered
			}
			_, err := fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().Int("choice", 1, "Portfolio candidate id")
	cmd.Flags().String("summary", "", "Executive summary")
	cmd.Flags().StringSlice("feature", nil, "Main requirement (repeatable)")
	cmd.Flags().StringSlice("constraint", nil, "Constraint (repeatable)")
	cmd.Flags().StringSlice("integration", nil, "Integration (repeatable)")
	cmd.Flags().Bool("plain", false, "Print raw markdown")
	return cmd
}

func renderMarkdown(markdown string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return r.Render(markdown)
}
