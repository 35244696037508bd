package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/galen-ai/galen/pkg/budget"
	"github.com/galen-ai/galen/pkg/config"
	"github.com/galen-ai/galen/pkg/tracker"
)

func newBudgetCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Manage token budgets and policies",
	}

	var domainName string
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show budget usage vs limits",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(configPath)
			if err != nil {
				return err
			}
			if !cfg.Budget.Enabled {
				fmt.Println("Budget enforcement is disabled.")
				return nil
			}

			tr, err := tracker.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = tr.Close() }()

			enforcer := budget.New(cfg.Budget.Policies, tr)

			d := domainName
			if d == "" {
				d = "*"
			}

			statuses, err := enforcer.Status(cmd.Context(), d)
			if err != nil {
				return err
			}

			if len(statuses) == 0 {
				fmt.Println("No budget policies found for this domain.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DOMAIN\tMODEL\tPERIOD\tMAX TOKENS\tUSED\tREMAINING")
			for _, s := range statuses {
				model := s.Policy.Model
				if model == "" {
					model = "(all)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n",
					s.Policy.Domain, model, s.Policy.Period, s.Policy.MaxTokens, s.Used, s.Remaining)
			}
			return w.Flush()
		},
	}
	statusCmd.Flags().StringVar(&domainName, "domain", "", "filter by domain")

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "galen.yaml", "path to config file")
	cmd.AddCommand(statusCmd)
	return cmd
}
