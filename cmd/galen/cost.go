package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/galen-ai/galen/pkg/config"
	"github.com/galen-ai/galen/pkg/models"
	"github.com/galen-ai/galen/pkg/tracker"
)

func newCostCmd() *cobra.Command {
	var (
		configPath string
		domainName string
	)

	cmd := &cobra.Command{
		Use:   "cost",
		Short: "Show estimated costs by domain and model",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(configPath)
			if err != nil {
				return err
			}

			tr, err := tracker.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = tr.Close() }()

			reports, err := tr.CostReport(cmd.Context(), domainName, cfg.Pricing)
			if err != nil {
				return err
			}

			fmt.Print(formatCostTable(reports))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "galen.yaml", "path to config file")
	cmd.Flags().StringVar(&domainName, "domain", "", "filter by domain")
	return cmd
}

func formatCostTable(reports []models.CostReport) string {
	if len(reports) == 0 {
		return "No cost data found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-15s %-25s %8s %12s %10s\n",
		"DOMAIN", "MODEL", "REQUESTS", "TOKENS", "EST. COST")
	b.WriteString(strings.Repeat("-", 73) + "\n")

	var totalCost float64
	for _, r := range reports {
		fmt.Fprintf(&b, "%-15s %-25s %8d %12d $%9.4f\n",
			r.Domain, r.Model, r.RequestCount, r.TotalTokens, r.EstimatedCost)
		totalCost += r.EstimatedCost
	}
	b.WriteString(strings.Repeat("-", 73) + "\n")
	fmt.Fprintf(&b, "%62s $%9.4f\n", "TOTAL:", totalCost)
	return b.String()
}
