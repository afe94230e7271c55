package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/automateda/internal/analysis"
	"github.com/KaramelBytes/automateda/internal/table"
	"github.com/KaramelBytes/automateda/internal/utils"
)

var (
	abOutDir      string
	abDelimiter   string
	abNAValues    []string
	abSampleRows  int
	abMaxRows     int
	abGroupBy     []string
	abExplorative bool
	abCorr        bool
	abOutliers    bool
	abOutlierThr  float64
	abQuiet       bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Profile multiple CSV/TSV files with progress, writing one summary per file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		topt, err := tableOptions(abDelimiter, abMaxRows, abNAValues)
		if err != nil {
			return err
		}
		opt := profileOptions(cmd, abExplorative, abSampleRows, abGroupBy, abCorr, abOutliers, abOutlierThr)
		if abOutDir != "" {
			if err := os.MkdirAll(abOutDir, 0o755); err != nil {
				return err
			}
		}

		total := len(files)
		for i, path := range files {
			if !abQuiet {
				fmt.Printf("[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			t, err := table.ReadCSVFile(path, topt)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			rep := analysis.Profile(t, opt)
			rep.Name = path
			md := rep.Markdown()

			if abOutDir == "" {
				if !abQuiet {
					fmt.Println(md)
				}
				continue
			}
			outFile := summaryPath(abOutDir, path)
			if err := utils.SafeWriteFile(outFile, []byte(md)); err != nil {
				return fmt.Errorf("write summary: %w", err)
			}
			if !abQuiet {
				fmt.Printf("✓ Wrote analysis to %s\n", outFile)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVar(&abOutDir, "out-dir", "", "directory for <name>.summary.md files (stdout if omitted)")
	addIngestFlags(analyzeBatchCmd, &abDelimiter, &abMaxRows, &abNAValues)
	analyzeBatchCmd.Flags().IntVar(&abSampleRows, "sample-rows", 5, "number of sample rows to include")
	analyzeBatchCmd.Flags().StringSliceVar(&abGroupBy, "group-by", nil, "comma-separated column names to group by (repeatable)")
	analyzeBatchCmd.Flags().BoolVar(&abExplorative, "explorative", false, "enable correlations and outlier detection")
	analyzeBatchCmd.Flags().BoolVar(&abCorr, "correlations", false, "compute Pearson correlations among numeric columns")
	analyzeBatchCmd.Flags().BoolVar(&abOutliers, "outliers", false, "compute robust outlier counts (MAD)")
	analyzeBatchCmd.Flags().Float64Var(&abOutlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers (MAD-based)")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
}

// expandInputs resolves globs, keeps literal paths that exist, and dedupes.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

// summaryPath picks <dir>/<base>.summary.md, suffixing __2, __3, ... on collision.
func summaryPath(dir, src string) string {
	base := filepath.Base(src)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	out := filepath.Join(dir, stem+".summary.md")
	if _, err := os.Stat(out); err != nil {
		return out
	}
	for idx := 2; ; idx++ {
		cand := filepath.Join(dir, fmt.Sprintf("%s__%d.summary.md", stem, idx))
		if _, err := os.Stat(cand); os.IsNotExist(err) {
			if !abQuiet {
				fmt.Printf("⚠ Detected existing summary, writing to %s to avoid overwrite.\n", filepath.Base(cand))
			}
			return cand
		}
	}
}
