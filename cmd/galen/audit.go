package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/galen-ai/galen/pkg/audit"
	"github.com/galen-ai/galen/pkg/config"
	"github.com/galen-ai/galen/pkg/models"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query and manage the generation audit log",
	}

	cmd.AddCommand(
		newAuditSearchCmd(),
		newAuditShowCmd(),
		newAuditStatsCmd(),
		newAuditCleanupCmd(),
	)
	return cmd
}

func newAuditSearchCmd() *cobra.Command {
	var (
		configPath string
		domainName string
		model      string
		since      string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search audit log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openAuditLogger(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			opts := models.AuditQueryOpts{
				Domain: domainName,
				Model:  model,
				Limit:  limit,
			}
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date (use YYYY-MM-DD): %w", err)
				}
				opts.Since = t
			}

			entries, err := l.Query(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Print(formatAuditEntries(entries))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to galen config file")
	cmd.Flags().StringVar(&domainName, "domain", "", "filter by domain")
	cmd.Flags().StringVar(&model, "model", "", "filter by model")
	cmd.Flags().StringVar(&since, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 50, "max entries to return")

	return cmd
}

func newAuditShowCmd() *cobra.Command {
	var (
		configPath string
		requestID  string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a single audit entry by request ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			if requestID == "" {
				return fmt.Errorf("--request-id is required")
			}

			l, cleanup, err := openAuditLogger(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			entries, err := l.Query(cmd.Context(), models.AuditQueryOpts{
				RequestID: requestID,
				Limit:     1,
			})
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No entry found for that request ID.")
				return nil
			}

			e := entries[0]
			fmt.Printf("Request ID:    %s\n", e.RequestID)
			fmt.Printf("Domain:        %s\n", e.Domain)
			fmt.Printf("Subject:       %s... (%s)\n", e.SubjectPrefix, e.SubjectHash[:12])
			fmt.Printf("Model:         %s\n", e.Model)
			fmt.Printf("Provider:      %s\n", e.Provider)
			fmt.Printf("Cache:         %s\n", e.CacheOutcome)
			fmt.Printf("Latency:       %dms\n", e.LatencyMs)
			fmt.Printf("Tokens:        %d prompt / %d completion / %d total\n",
				e.PromptTokens, e.CompletionTokens, e.TotalTokens)
			fmt.Printf("Time:          %s\n", e.CreatedAt.Format(time.RFC3339))
			if e.RequestBody != "" {
				fmt.Printf("\n--- Request Body ---\n%s\n", e.RequestBody)
			}
			if e.ResponseBody != "" {
				fmt.Printf("\n--- Response Body ---\n%s\n", e.ResponseBody)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to galen config file")
	cmd.Flags().StringVar(&requestID, "request-id", "", "request ID to show")

	return cmd
}

func newAuditStatsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show audit log statistics by domain and day",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openAuditLogger(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := l.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Print(formatAuditStats(stats))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to galen config file")
	return cmd
}

func newAuditCleanupCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete audit entries older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openAuditLogger(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			deleted, err := l.Cleanup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d audit entries.\n", deleted)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to galen config file")
	return cmd
}

func openAuditLogger(configPath string) (*audit.Logger, func(), error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return nil, nil, err
		}
	}

	l, err := audit.New(cfg.Audit)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit db: %w", err)
	}
	return l, func() { _ = l.Close() }, nil
}

func formatAuditEntries(entries []models.AuditEntry) string {
	if len(entries) == 0 {
		return "No audit entries found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-38s %-14s %-20s %-7s %8s %8s %-20s\n",
		"REQUEST ID", "DOMAIN", "MODEL", "CACHE", "LATENCY", "TOKENS", "TIME")
	b.WriteString(strings.Repeat("-", 122) + "\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%-38s %-14s %-20s %-7s %6dms %8d %-20s\n",
			e.RequestID, e.Domain, e.Model, e.CacheOutcome,
			e.LatencyMs, e.TotalTokens,
			e.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return b.String()
}

func formatAuditStats(stats []models.AuditStat) string {
	if len(stats) == 0 {
		return "No audit stats found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-25s %-12s %8s\n", "DOMAIN", "DAY", "COUNT")
	b.WriteString(strings.Repeat("-", 48) + "\n")
	for _, s := range stats {
		fmt.Fprintf(&b, "%-25s %-12s %8d\n", s.Domain, s.Day, s.Count)
	}
	return b.String()
}
