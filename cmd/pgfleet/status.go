package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/dd0wney/pgfleet/pkg/cluster"
)

var (
	verdictStyles = map[cluster.Verdict]lipgloss.Style{
		cluster.Healthy:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FF00")),
		cluster.Degraded: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFF00")),
		cluster.Down:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF0000")),
	}
	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FFFF"))
	nodeErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
	diagStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
)

func newStatusCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query and evaluate cluster health",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime()
			if err != nil {
				return err
			}
			report, err := rt.checker.ClusterStatus(context.Background())
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				printReport(report)
			}

			if report.Status == cluster.Down {
				return fmt.Errorf("cluster status: %s", report.Status)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the raw report as JSON")
	return cmd
}

func printReport(report *cluster.Report) {
	fmt.Printf("Cluster status: %s\n\n", verdictStyles[report.Status].Render(report.Status.String()))

	header := fmt.Sprintf("%-16s %-14s %-6s %-14s %-9s %-14s %s",
		"ADDRESS", "ROLE", "ALIVE", "LOG POSITION", "TIMELINE", "ETCD", "ERRORS")
	fmt.Println(tableHeaderStyle.Render(header))

	for _, node := range report.Nodes {
		errText := strings.Join(node.Errors, ", ")
		if errText != "" {
			errText = nodeErrorStyle.Render(errText)
		}
		fmt.Printf("%-16s %-14s %-6t %-14s %-9s %-14s %s\n",
			node.Addr, node.Role, node.Alive,
			formatInt(node.LogPosition), formatInt(node.Timeline),
			node.ConsensusState, errText)
	}

	if len(report.Diagnostics) > 0 {
		fmt.Println()
		for _, d := range report.Diagnostics {
			fmt.Println(diagStyle.Render("  - " + d))
		}
	}
}

func formatInt(v *int64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}
