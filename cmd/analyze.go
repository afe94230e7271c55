package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/automateda/internal/analysis"
	"github.com/KaramelBytes/automateda/internal/table"
	"github.com/KaramelBytes/automateda/internal/utils"
)

var (
	anaOutputPath  string
	anaDelimiter   string
	anaNAValues    []string
	anaSampleRows  int
	anaMaxRows     int
	anaGroupBy     []string
	anaExplorative bool
	anaCorr        bool
	anaOutliers    bool
	anaOutlierThr  float64
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Profile a CSV/TSV and print a Markdown report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		topt, err := tableOptions(anaDelimiter, anaMaxRows, anaNAValues)
		if err != nil {
			return err
		}
		opt := profileOptions(cmd, anaExplorative, anaSampleRows, anaGroupBy, anaCorr, anaOutliers, anaOutlierThr)

		t, err := table.ReadCSVFile(path, topt)
		if err != nil {
			return err
		}
		rep := analysis.Profile(t, opt)
		rep.Name = path
		md := rep.Markdown()

		if anaOutputPath != "" {
			if err := utils.SafeWriteFile(anaOutputPath, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Printf("✓ Wrote analysis to %s\n", anaOutputPath)
			return nil
		}
		fmt.Println(md)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write analysis (Markdown)")
	addIngestFlags(analyzeCmd, &anaDelimiter, &anaMaxRows, &anaNAValues)
	analyzeCmd.Flags().IntVar(&anaSampleRows, "sample-rows", 5, "number of sample rows to include")
	analyzeCmd.Flags().StringSliceVar(&anaGroupBy, "group-by", nil, "comma-separated column names to group by (repeatable)")
	analyzeCmd.Flags().BoolVar(&anaExplorative, "explorative", false, "enable correlations and outlier detection")
	analyzeCmd.Flags().BoolVar(&anaCorr, "correlations", false, "compute Pearson correlations among numeric columns")
	analyzeCmd.Flags().BoolVar(&anaOutliers, "outliers", false, "compute robust outlier counts (MAD)")
	analyzeCmd.Flags().Float64Var(&anaOutlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers (MAD-based)")
}

func addIngestFlags(c *cobra.Command, delim *string, maxRows *int, na *[]string) {
	c.Flags().StringVar(delim, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (sniffed if omitted)")
	c.Flags().IntVar(maxRows, "max-rows", 0, "maximum rows to process (0 = unlimited)")
	c.Flags().StringSliceVar(na, "na", nil, "extra cell values treated as missing, e.g. '?' (repeatable)")
}

// tableOptions builds ingestion options from flags plus the configured NA spellings.
func tableOptions(delim string, maxRows int, na []string) (table.Options, error) {
	opt := table.DefaultOptions()
	switch delim {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", delim)
	}
	if maxRows > 0 {
		opt.MaxRows = maxRows
	}
	opt.NAValues = append(append(opt.NAValues, effectiveConfig().NAValues...), na...)
	return opt, nil
}

func profileOptions(cmd *cobra.Command, explorative bool, sampleRows int, groupBy []string, corr, outliers bool, thr float64) analysis.Options {
	opt := analysis.DefaultOptions()
	if explorative {
		opt = analysis.ExplorativeOptions()
	}
	if sampleRows > 0 {
		opt.SampleRows = sampleRows
	}
	opt.GroupBy = groupBy
	if cmd.Flags().Changed("correlations") {
		opt.Correlations = corr
	}
	if cmd.Flags().Changed("outliers") {
		opt.Outliers = outliers
	}
	if opt.Outliers && thr > 0 {
		opt.OutlierThreshold = thr
	}
	return opt
}
