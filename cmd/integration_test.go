package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	cfgpkg "github.com/KaramelBytes/automateda/internal/config"
	"github.com/KaramelBytes/automateda/internal/score"
)

const housingCSV = `rooms,age,district,price
3,12,north,210.5
4,30,south,250.0
2,,north,150.25
5,8,east,320.0
3,22,south,205.0
4,15,east,260.75
2,40,north,140.0
6,5,east,
3,18,south,199.9
5,10,east,310.0
`

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	color.NoColor = true
	os.Exit(m.Run())
}

// resetFlags clears values and Changed state that persist across Execute calls.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmd is a helper to execute the root command with args, returning its output.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execCmd(args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

func execCmd(args ...string) (string, error) {
	resetFlags(rootCmd)
	cfg = nil
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func writeHousing(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "housing.csv")
	if err := os.WriteFile(path, []byte(housingCSV), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestCLI_RankJSON(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeHousing(t)

	out := runCmd(t, "rank", path, "--target", "price", "--format", "json", "--seed", "7")
	var res score.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if res.Target != "price" || res.TargetType != score.Continuous {
		t.Fatalf("unexpected header: %+v", res)
	}
	if res.DroppedTarget != 1 || res.DroppedFeatures != 1 || res.DroppedRows != 2 || res.Rows != 8 {
		t.Fatalf("unexpected drop counts: %+v", res)
	}
	if len(res.Scores) != 3 {
		t.Fatalf("expected 3 scores, got %d", len(res.Scores))
	}
	for i := 1; i < len(res.Scores); i++ {
		if res.Scores[i-1].Score < res.Scores[i].Score {
			t.Fatalf("scores not descending: %+v", res.Scores)
		}
	}
	if got := res.Encodings["district"]; len(got) != 3 || got[0] != "north" {
		t.Fatalf("unexpected district encoding: %v", got)
	}

	// Same seed, same ranking
	again := runCmd(t, "rank", path, "--target", "price", "--format", "json", "--seed", "7")
	if again != out {
		t.Fatalf("ranking not reproducible:\n%s\n---\n%s", out, again)
	}
}

func TestCLI_RankTextAndYAMLOutputs(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeHousing(t)
	dir := t.TempDir()

	txt := filepath.Join(dir, "rank.txt")
	runCmd(t, "rank", path, "-t", "district", "--target-type", "categorical", "-x", "age", "-o", txt)
	b, err := os.ReadFile(txt)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	body := string(b)
	for _, want := range []string{"Prediction target: district (discrete)", "Removed 1 rows with missing values", "rooms", "price", "█"} {
		if !strings.Contains(body, want) {
			t.Fatalf("text output missing %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, "age ") {
		t.Fatalf("excluded column listed:\n%s", body)
	}

	out := runCmd(t, "rank", path, "-t", "rooms", "-f", "yaml")
	if !strings.Contains(out, "target_type: continuous") || !strings.Contains(out, "scores:") {
		t.Fatalf("unexpected yaml:\n%s", out)
	}
}

func TestCLI_RankErrors(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeHousing(t)

	if _, err := execCmd("rank", path, "--target", "nope"); !errors.Is(err, score.ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
	if _, err := execCmd("rank", path, "--target", "district"); !errors.Is(err, score.ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget for text target as numeric, got %v", err)
	}
	if _, err := execCmd("rank", path, "--target", "price", "-x", "rooms,age,district"); !errors.Is(err, score.ErrEmptyFeatureSet) {
		t.Fatalf("expected ErrEmptyFeatureSet, got %v", err)
	}
	if _, err := execCmd("rank", path, "--target", "price", "--target-type", "ordinal"); !errors.Is(err, score.ErrUnknownTargetType) {
		t.Fatalf("expected ErrUnknownTargetType, got %v", err)
	}
	if _, err := execCmd("rank", path, "--target", "price", "--format", "xml"); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
	if _, err := execCmd("rank", path); err == nil {
		t.Fatalf("expected error when --target is missing")
	}
}

func TestCLI_AnalyzeWritesMarkdown(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeHousing(t)
	outPath := filepath.Join(t.TempDir(), "report.md")

	runCmd(t, "analyze", path, "--explorative", "--group-by", "district", "-o", outPath)
	b, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	md := string(b)
	for _, want := range []string{"[DATASET SUMMARY]", "[SCHEMA]", "[CORRELATIONS]", "[GROUP-BY SUMMARY]", "district=east"} {
		if !strings.Contains(md, want) {
			t.Fatalf("report missing %q:\n%s", want, md)
		}
	}

	plain := filepath.Join(t.TempDir(), "plain.md")
	runCmd(t, "analyze", path, "--max-rows", "4", "-o", plain)
	b, _ = os.ReadFile(plain)
	if strings.Contains(string(b), "[CORRELATIONS]") {
		t.Fatalf("correlations should be off by default")
	}
	if !strings.Contains(string(b), "processed only 4/10 rows") {
		t.Fatalf("expected truncation note:\n%s", b)
	}
}

func TestCLI_ExamplesList(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "automobile.csv"), []byte("a\n1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := runCmd(t, "examples", "--examples-dir", dir)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header plus 3 examples, got:\n%s", out)
	}
	if !strings.Contains(lines[1], "automobile") || !strings.Contains(lines[1], "available") {
		t.Fatalf("unexpected automobile line: %q", lines[1])
	}
	if !strings.Contains(lines[2], "missing") {
		t.Fatalf("expected bank-marketing to be missing: %q", lines[2])
	}
}

func TestCLI_ConfigSetPersists(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	runCmd(t, "config", "set", "port", "9001")
	runCmd(t, "config", "set", "na_values", "?, n/a")
	if _, err := execCmd("config", "set", "port", "abc"); err == nil {
		t.Fatalf("expected error for invalid port")
	}
	if _, err := execCmd("config", "set", "colour", "blue"); err == nil {
		t.Fatalf("expected error for unknown key")
	}

	c, err := cfgpkg.Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Port != 9001 {
		t.Fatalf("expected port 9001, got %d", c.Port)
	}
	if len(c.NAValues) != 2 || c.NAValues[0] != "?" || c.NAValues[1] != "n/a" {
		t.Fatalf("unexpected na_values: %v", c.NAValues)
	}
	if _, err := os.Stat(filepath.Join(home, ".automateda", "config.yaml")); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{"", zerolog.InfoLevel, false},
		{"DEBUG", zerolog.DebugLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"off", zerolog.Disabled, false},
		{"verbose", zerolog.InfoLevel, true},
	}
	for _, tc := range cases {
		got, err := parseLogLevel(tc.in)
		if got != tc.want || (err != nil) != tc.wantErr {
			t.Errorf("parseLogLevel(%q) = %v, %v; want %v, err=%v", tc.in, got, err, tc.want, tc.wantErr)
		}
	}
}
