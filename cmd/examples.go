package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/automateda/internal/dataset"
)

var examplesDir string

var examplesCmd = &cobra.Command{
	Use:   "examples",
	Short: "List the bundled example datasets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := effectiveConfig().ExamplesDir
		if cmd.Flags().Changed("examples-dir") {
			dir = examplesDir
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tTITLE\tFILE\tSTATUS")
		for _, ex := range dataset.Examples {
			status := "available"
			if _, err := os.Stat(filepath.Join(dir, ex.File)); err != nil {
				status = "missing"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ex.Key, ex.Title, ex.File, status)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(examplesCmd)
	examplesCmd.Flags().StringVar(&examplesDir, "examples-dir", dataset.DefaultDir, "directory holding the example CSVs (overrides config)")
}
