package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bloodbuddy/donor-cli/internal/bloodgroup"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <raw>...",
	Short: "Show how raw blood group text is normalized",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RAW\tGROUP")
		for _, raw := range args {
			group := "(unknown)"
			if g, ok := bloodgroup.Normalize(raw); ok {
				group = string(g)
			}
			fmt.Fprintf(w, "%q\t%s\n", raw, group)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
}
