package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/galen-ai/galen/pkg/config"
	"github.com/galen-ai/galen/pkg/refdata"
)

func newLookupCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Query the RxNorm, RxClass, and ICD-11 reference APIs",
	}

	rxcuiCmd := &cobra.Command{
		Use:   "rxcui <drug-name>",
		Short: "Resolve a drug name to its RxNorm concept identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(configPath)
			if err != nil {
				return err
			}
			c := refdata.NewRxNorm(cfg.Refdata.RxNormURL)
			rxcui, err := c.FindRxcui(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(rxcui)
			return nil
		},
	}

	interactionsCmd := &cobra.Command{
		Use:   "interactions <drug-name>",
		Short: "List known drug-drug interactions for a drug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(configPath)
			if err != nil {
				return err
			}
			c := refdata.NewRxNorm(cfg.Refdata.RxNormURL)
			rxcui, err := c.FindRxcui(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			pairs, err := c.Interactions(cmd.Context(), rxcui)
			if err != nil {
				return err
			}
			if len(pairs) == 0 {
				fmt.Println("No interactions found.")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SEVERITY\tDESCRIPTION")
			for _, p := range pairs {
				fmt.Fprintf(w, "%s\t%s\n", p.Severity, p.Description)
			}
			return w.Flush()
		},
	}

	var relaSource string
	classesCmd := &cobra.Command{
		Use:   "classes <drug-name>",
		Short: "List the drug classes a drug belongs to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(configPath)
			if err != nil {
				return err
			}
			c := refdata.NewRxClass(cfg.Refdata.RxClassURL)
			classes, err := c.ClassesByDrugName(cmd.Context(), args[0], relaSource)
			if err != nil {
				return err
			}
			if len(classes) == 0 {
				fmt.Println("No classes found.")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CLASS ID\tTYPE\tNAME")
			for _, cl := range classes {
				fmt.Fprintf(w, "%s\t%s\t%s\n", cl.ClassID, cl.ClassType, cl.ClassName)
			}
			return w.Flush()
		},
	}
	classesCmd.Flags().StringVar(&relaSource, "source", "", "classification source (e.g. ATC)")

	icdCmd := &cobra.Command{
		Use:   "icd <query>",
		Short: "Search the WHO ICD-11 foundation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(configPath)
			if err != nil {
				return err
			}
			if cfg.Refdata.ICD.ClientID == "" {
				return fmt.Errorf("ICD credentials not configured (set ICD_CLIENT_ID and ICD_CLIENT_SECRET)")
			}
			c := refdata.NewICD(cfg.Refdata.ICD)
			entities, err := c.SearchEntities(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(entities) == 0 {
				fmt.Println("No entities found.")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SCORE\tTITLE\tID")
			for _, e := range entities {
				fmt.Fprintf(w, "%.2f\t%s\t%s\n", e.Score, e.Title, e.ID)
			}
			return w.Flush()
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "galen.yaml", "path to config file")
	cmd.AddCommand(rxcuiCmd, interactionsCmd, classesCmd, icdCmd)
	return cmd
}
