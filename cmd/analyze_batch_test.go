package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAnalyzeBatch_WritesSummariesWithCollisionSuffix(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	// Two CSV files with the same basename in different directories
	d1 := filepath.Join(home, "d1")
	d2 := filepath.Join(home, "d2")
	for _, d := range []string{d1, d2} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
	}
	csv := "col1,col2\nA,1\nB,2\nC,3\n"
	if err := os.WriteFile(filepath.Join(d1, "metrics.csv"), []byte(csv), 0o644); err != nil {
		t.Fatalf("write p1: %v", err)
	}
	if err := os.WriteFile(filepath.Join(d2, "metrics.csv"), []byte(csv), 0o644); err != nil {
		t.Fatalf("write p2: %v", err)
	}

	outDir := filepath.Join(home, "summaries")
	runCmd(t, "analyze-batch", filepath.Join(home, "d*", "metrics.csv"), "--out-dir", outDir, "--sample-rows", "2", "--quiet")

	b1 := filepath.Join(outDir, "metrics.summary.md")
	b2 := filepath.Join(outDir, "metrics__2.summary.md")
	for _, p := range []string{b1, b2} {
		body, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("missing summary %s: %v", p, err)
		}
		if !strings.Contains(string(body), "[HEAD AND SAMPLE ROWS]") || strings.Count(string(body), "| A |")+strings.Count(string(body), "| B |") != 2 {
			t.Fatalf("expected two sample rows in %s:\n%s", p, body)
		}
		if strings.Contains(string(body), "| C |") {
			t.Fatalf("sample rows not limited in %s", p)
		}
	}
}

func TestAnalyzeBatch_NoMatches(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	if _, err := execCmd("analyze-batch", filepath.Join(t.TempDir(), "*.csv")); err == nil {
		t.Fatalf("expected error when nothing matches")
	}
}
