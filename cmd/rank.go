package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/automateda/internal/mi"
	"github.com/KaramelBytes/automateda/internal/score"
	"github.com/KaramelBytes/automateda/internal/table"
	"github.com/KaramelBytes/automateda/internal/utils"
)

var (
	rankTarget     string
	rankTargetType string
	rankExclude    []string
	rankFormat     string
	rankOutput     string
	rankSeed       uint64
	rankNeighbors  int
	rankDelimiter  string
	rankMaxRows    int
	rankNAValues   []string
)

const rankBarWidth = 40

var rankCmd = &cobra.Command{
	Use:   "rank <file>",
	Short: "Rank variables by mutual information with a target column",
	Long: `Rank every non-target variable of a CSV/TSV by its estimated mutual information
with --target. Rows missing the target are removed first, then rows missing any
remaining variable.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tt, err := score.ParseTargetType(rankTargetType)
		if err != nil {
			return err
		}
		switch rankFormat {
		case "text", "json", "yaml":
		default:
			return fmt.Errorf("unsupported --format: %s (use text|json|yaml)", rankFormat)
		}
		topt, err := tableOptions(rankDelimiter, rankMaxRows, rankNAValues)
		if err != nil {
			return err
		}
		t, err := table.ReadCSVFile(args[0], topt)
		if err != nil {
			return err
		}

		conf := effectiveConfig()
		est := mi.KNN{Neighbors: conf.Neighbors, Seed: conf.Seed}
		if cmd.Flags().Changed("seed") {
			est.Seed = rankSeed
		}
		if cmd.Flags().Changed("neighbors") {
			est.Neighbors = rankNeighbors
		}

		req := score.Request{Target: rankTarget, TargetType: tt, Exclude: rankExclude}
		stop := startSpinner(fmt.Sprintf(" Scoring %d variables...", max(t.Width()-1, 0)))
		start := time.Now()
		res, err := score.New(est).Score(t, req)
		stop()
		if err != nil {
			return err
		}
		log.Debug().
			Str("target", res.Target).
			Int("rows", res.Rows).
			Int("dropped_rows", res.DroppedRows).
			Dur("duration", time.Since(start)).
			Msg("Ranked features")

		var out []byte
		switch rankFormat {
		case "json":
			out, err = utils.PrettyJSON(res)
		case "yaml":
			out, err = yaml.Marshal(res)
		default:
			var b strings.Builder
			writeRankText(&b, res)
			out = []byte(b.String())
		}
		if err != nil {
			return err
		}

		if rankOutput != "" {
			if err := utils.SafeWriteFile(rankOutput, out); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Printf("✓ Wrote ranking to %s\n", rankOutput)
			return nil
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)
	rankCmd.Flags().StringVarP(&rankTarget, "target", "t", "", "prediction target column (required)")
	rankCmd.Flags().StringVar(&rankTargetType, "target-type", "numeric", "target type: numeric|categorical")
	rankCmd.Flags().StringSliceVarP(&rankExclude, "exclude", "x", nil, "columns to leave out of the ranking (repeatable)")
	rankCmd.Flags().StringVarP(&rankFormat, "format", "f", "text", "output format: text|json|yaml")
	rankCmd.Flags().StringVarP(&rankOutput, "output", "o", "", "optional path to write the ranking")
	rankCmd.Flags().Uint64Var(&rankSeed, "seed", 0, "noise seed for the estimator (overrides config)")
	rankCmd.Flags().IntVar(&rankNeighbors, "neighbors", mi.DefaultNeighbors, "nearest neighbours per sample (overrides config)")
	addIngestFlags(rankCmd, &rankDelimiter, &rankMaxRows, &rankNAValues)
	_ = rankCmd.MarkFlagRequired("target")
}

// writeRankText prints the ranking as a table with proportional bars.
func writeRankText(w io.Writer, res *score.Result) {
	bold := color.New(color.Bold).SprintFunc()
	bar := color.New(color.FgCyan).SprintFunc()

	fmt.Fprintf(w, "%s %s (%s)\n", bold("Prediction target:"), res.Target, res.TargetType)
	fmt.Fprintf(w, "Rows scored: %d\n", res.Rows)
	if res.DroppedRows > 0 {
		fmt.Fprintf(w, "%s Removed %d rows with missing values (%d missing target, %d missing variables).\n",
			color.YellowString("⚠"), res.DroppedRows, res.DroppedTarget, res.DroppedFeatures)
	}
	fmt.Fprintln(w)

	nameWidth, top := len("Variable"), 0.0
	for _, s := range res.Scores {
		nameWidth = max(nameWidth, utf8.RuneCountInString(s.Name))
		top = max(top, s.Score)
	}
	fmt.Fprintf(w, "%s  %s\n", bold(pad("Variable", nameWidth)), bold("Score"))
	for _, s := range res.Scores {
		n := 0
		if top > 0 {
			n = int(s.Score/top*rankBarWidth + 0.5)
		}
		fmt.Fprintf(w, "%s  %.4f %s\n", pad(s.Name, nameWidth), s.Score, bar(strings.Repeat("█", n)))
	}
}

func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// startSpinner shows progress on an interactive stderr and returns its stop func.
func startSpinner(suffix string) func() {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = suffix
	s.Start()
	return s.Stop
}
