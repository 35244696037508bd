package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/galen-ai/galen/pkg/config"
	"github.com/galen-ai/galen/pkg/tracker"
)

func newStatsCmd() *cobra.Command {
	var (
		configPath string
		domainName string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show token usage statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(configPath)
			if err != nil {
				return err
			}

			tr, err := tracker.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer tr.Close()

			summaries, err := tr.Summary(cmd.Context(), domainName)
			if err != nil {
				return err
			}

			if len(summaries) == 0 {
				fmt.Println("No usage data found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DOMAIN\tMODEL\tREQUESTS\tPROMPT\tCOMPLETION\tTOTAL")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\n",
					s.Domain, s.Model, s.RequestCount, s.TotalPrompt, s.TotalCompletion, s.TotalTokens)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "galen.yaml", "path to config file")
	cmd.Flags().StringVar(&domainName, "domain", "", "filter by domain")
	return cmd
}
