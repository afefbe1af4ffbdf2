package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe-embeddings",
		Short: "Report which embed/upsert/search routes the embedding service answers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}

			results := a.Embeddings.Probe(cmd.Context())
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tPATH\tSTATUS\tKEYS")
			for _, r := range results {
				status := fmt.Sprint(r.Status)
				if r.Error != "" {
					status = r.Error
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Kind, r.Path, status, strings.Join(r.Keys, ","))
			}
			return w.Flush()
		},
	}
}
