package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"clipsim/embedder"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List supported CLIP variants",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tINPUT\tDIM\tDIRECTORY")
		for _, v := range embedder.Variants() {
			marker := ""
			if v.Name == embedder.DefaultVariant {
				marker = " (default)"
			}
			fmt.Fprintf(w, "%s%s\t%d\t%d\t%s\n", v.Name, marker, v.InputSize, v.Dim, v.DirName())
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
