package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/galen-ai/galen/pkg/domain"
)

func newDomainsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "domains",
		Short: "List the available generation domains",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := domain.NewRegistry()
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DOMAIN\tSHAPE\tVERSION\tDESCRIPTION")
			for _, name := range reg.Names() {
				m, _ := reg.Lookup(name)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.Name, m.Shape.Name, m.Shape.Version, m.Short)
			}
			return w.Flush()
		},
	}
}
