package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "galen",
		Short:   "Galen — cached structured content generation for medical education",
		Version: version,
	}

	root.AddCommand(
		newGenerateCmds()...,
	)
	root.AddCommand(
		newBatchCmd(),
		newDomainsCmd(),
		newLookupCmd(),
		newCacheCmd(),
		newStatsCmd(),
		newCostCmd(),
		newAuditCmd(),
		newBudgetCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
