package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/polaris/backend/internal/service/health"
)

var errUnhealthy = errors.New("one or more components are unhealthy")

func newHealthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Probe the model service and optionally the embedding service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			embeddings, _ := cmd.Flags().GetBool("embeddings")
			asJSON, _ := cmd.Flags().GetBool("json")

			a, err := loadApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			report := a.Health.Check(cmd.Context(), health.Options{Embeddings: embeddings})
			if err := printReport(cmd, report, asJSON); err != nil {
				return err
			}
			if !report.OK {
				return errUnhealthy
			}
			return nil
		},
	}
	cmd.Flags().Bool("embeddings", false, "Also probe the embedding service")
	cmd.Flags().Bool("json", false, "Print the raw report as JSON")
	return cmd
}

func printReport(cmd *cobra.Command, report health.Report, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		data, err := sonic.ConfigStd.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	names := make([]string, 0, len(report.Components))
	for name := range report.Components {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		c := report.Components[name]
		status := "ok"
		if !c.OK {
			status = "FAIL"
		}
		detail := c.Error
		if detail == "" && c.StatusCode != 0 {
			detail = fmt.Sprintf("status %d", c.StatusCode)
		}
		fmt.Fprintf(out, "%-12s %-4s %s\n", name, status, detail)
	}
	return nil
}
