package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/automateda/internal/table"
)

// Options controls profiling of an ingested table.
type Options struct {
	// SampleRows determines how many leading rows to include in the report.
	SampleRows int
	// GroupBy computes per-group numeric summaries keyed by these columns.
	GroupBy []string
	// Correlations computes pairwise-complete Pearson correlations among numeric columns.
	Correlations bool
	// Outliers counts robust Z-score (MAD) outliers with |z| > OutlierThreshold.
	Outliers         bool
	OutlierThreshold float64
	// TopValues bounds the category list per text column.
	TopValues int
}

// DefaultOptions returns a summary-only profile.
func DefaultOptions() Options {
	return Options{SampleRows: 5, TopValues: 8}
}

// ExplorativeOptions enables correlations and outlier detection.
func ExplorativeOptions() Options {
	opt := DefaultOptions()
	opt.Correlations = true
	opt.Outliers = true
	opt.OutlierThreshold = 3.5
	return opt
}

// Report is a markdown-friendly profile of a tabular dataset.
type Report struct {
	Name       string          `json:"name"`
	Rows       int             `json:"rows"`
	SourceRows int             `json:"source_rows"`
	Cols       []ColumnSummary `json:"columns"`
	Header     []string        `json:"header"`
	Samples    [][]string      `json:"samples"`
	Warnings   []string        `json:"warnings,omitempty"`
	Groups     []GroupResult   `json:"groups,omitempty"`
	Corr       *CorrMatrix     `json:"correlations,omitempty"`
}

// ColumnSummary captures statistics per column.
type ColumnSummary struct {
	Name       string  `json:"name"`
	Kind       string  `json:"kind"` // int|float|text
	NonNull    int     `json:"non_null"`
	Missing    int     `json:"missing"`
	MissingPct float64 `json:"missing_pct"`
	Unique     int     `json:"unique"`
	// Numeric stats
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	// Outliers (robust Z via MAD)
	OutliersCount    int     `json:"outliers,omitempty"`
	OutliersMaxAbsZ  float64 `json:"outliers_max_abs_z,omitempty"`
	OutlierThreshold float64 `json:"outlier_threshold,omitempty"`
	// Text top values
	TopValues []CategoryCount `json:"top_values,omitempty"`
}

// Numeric reports whether the column carries numeric statistics.
func (c ColumnSummary) Numeric() bool { return c.Kind == "int" || c.Kind == "float" }

type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// GroupResult captures aggregated metrics per group key.
type GroupResult struct {
	Key     string                `json:"key"`
	Size    int                   `json:"size"`
	Metrics map[string]NumSummary `json:"metrics"`
}

type NumSummary struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"` // row-major, Values[i][j]
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A string  `json:"a"`
	B string  `json:"b"`
	R float64 `json:"r"`
}

// TopPairs lists up to n off-diagonal pairs ordered by |r| descending.
func (m *CorrMatrix) TopPairs(n int) []PairCorr {
	if m == nil {
		return nil
	}
	var pairs []PairCorr
	for i := 0; i < len(m.Columns); i++ {
		for j := i + 1; j < len(m.Columns); j++ {
			pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: m.Values[i][j]})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	if n > 0 && len(pairs) > n {
		pairs = pairs[:n]
	}
	return pairs
}

// Profile summarizes every column of t. It never fails; degenerate inputs
// surface as warnings.
func Profile(t *table.Table, opt Options) *Report {
	rep := &Report{Rows: t.Rows(), SourceRows: t.SourceRows(), Header: t.Names()}
	sampleRows := opt.SampleRows
	if sampleRows <= 0 {
		sampleRows = 5
	}
	topN := opt.TopValues
	if topN <= 0 {
		topN = 8
	}
	for i := 0; i < t.Rows() && i < sampleRows; i++ {
		rep.Samples = append(rep.Samples, t.Record(i))
	}

	cols := t.Columns()
	var numeric []*table.Column
	for _, c := range cols {
		s := summarize(c, opt, topN)
		if s.NonNull == 0 && c.Len() > 0 {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("column %q is entirely missing", c.Name))
		}
		if c.Kind.Numeric() && s.NonNull > 0 {
			numeric = append(numeric, c)
		}
		rep.Cols = append(rep.Cols, s)
	}
	if rep.SourceRows > rep.Rows {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("processed only %d/%d rows due to MaxRows", rep.Rows, rep.SourceRows))
	}
	if len(opt.GroupBy) > 0 {
		rep.Groups = groupBy(t, opt.GroupBy, numeric, &rep.Warnings)
	}
	if opt.Correlations && len(numeric) >= 2 {
		rep.Corr = correlations(numeric)
	}
	return rep
}

func summarize(c *table.Column, opt Options, topN int) ColumnSummary {
	s := ColumnSummary{Name: c.Name, Kind: c.Kind.String()}
	s.Missing = c.MissingCount()
	s.NonNull = c.Len() - s.Missing
	if c.Len() > 0 {
		s.MissingPct = float64(s.Missing) * 100 / float64(c.Len())
	}
	counts := map[string]int{}
	for i := 0; i < c.Len(); i++ {
		if !c.IsMissing(i) {
			counts[c.String(i)]++
		}
	}
	s.Unique = len(counts)

	if !c.Kind.Numeric() {
		tops := make([]CategoryCount, 0, len(counts))
		for k, v := range counts {
			tops = append(tops, CategoryCount{Value: k, Count: v})
		}
		sort.Slice(tops, func(i, j int) bool {
			if tops[i].Count == tops[j].Count {
				return tops[i].Value < tops[j].Value
			}
			return tops[i].Count > tops[j].Count
		})
		if len(tops) > topN {
			tops = tops[:topN]
		}
		s.TopValues = tops
		return s
	}

	vals := present(c)
	if len(vals) == 0 {
		return s
	}
	s.Min, s.Max = vals[0], vals[0]
	for _, v := range vals {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	if len(vals) > 1 {
		s.Mean, s.Std = stat.MeanStdDev(vals, nil)
	} else {
		s.Mean = vals[0]
	}
	if opt.Outliers && len(vals) >= 8 {
		thr := opt.OutlierThreshold
		if thr <= 0 {
			thr = 3.5
		}
		median, mad := medianMAD(vals)
		if mad > 0 {
			for _, v := range vals {
				az := math.Abs(0.6745 * (v - median) / mad)
				if az > thr {
					s.OutliersCount++
				}
				s.OutliersMaxAbsZ = math.Max(s.OutliersMaxAbsZ, az)
			}
		}
		s.OutlierThreshold = thr
	}
	return s
}

func present(c *table.Column) []float64 {
	out := make([]float64, 0, c.Len())
	for i := 0; i < c.Len(); i++ {
		if !c.IsMissing(i) {
			out = append(out, c.Float(i))
		}
	}
	return out
}

// correlations uses, for each pair, only the rows where both values are present.
func correlations(cols []*table.Column) *CorrMatrix {
	n := len(cols)
	m := &CorrMatrix{Columns: make([]string, n), Values: make([][]float64, n)}
	for i, c := range cols {
		m.Columns[i] = c.Name
		m.Values[i] = make([]float64, n)
		m.Values[i][i] = 1
	}
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			var xs, ys []float64
			for i := 0; i < cols[a].Len(); i++ {
				if cols[a].IsMissing(i) || cols[b].IsMissing(i) {
					continue
				}
				xs = append(xs, cols[a].Float(i))
				ys = append(ys, cols[b].Float(i))
			}
			var r float64
			if len(xs) >= 2 {
				r = stat.Correlation(xs, ys, nil)
			}
			if math.IsNaN(r) || math.IsInf(r, 0) {
				r = 0
			}
			r = math.Max(-1, math.Min(1, r))
			m.Values[a][b], m.Values[b][a] = r, r
		}
	}
	return m
}

func groupBy(t *table.Table, names []string, numeric []*table.Column, warnings *[]string) []GroupResult {
	var keys []*table.Column
	for _, name := range names {
		c, ok := t.Column(strings.TrimSpace(name))
		if !ok {
			*warnings = append(*warnings, fmt.Sprintf("group-by column %q not found", name))
			continue
		}
		keys = append(keys, c)
	}
	if len(keys) == 0 {
		return nil
	}
	type acc struct {
		size int
		sum  map[int]float64
		cnt  map[int]int
		min  map[int]float64
		max  map[int]float64
	}
	groups := map[string]*acc{}
	for i := 0; i < t.Rows(); i++ {
		parts := make([]string, len(keys))
		for k, c := range keys {
			parts[k] = fmt.Sprintf("%s=%s", c.Name, safeVal(c.String(i)))
		}
		key := strings.Join(parts, " | ")
		g := groups[key]
		if g == nil {
			g = &acc{sum: map[int]float64{}, cnt: map[int]int{}, min: map[int]float64{}, max: map[int]float64{}}
			groups[key] = g
		}
		g.size++
		for j, c := range numeric {
			if c.IsMissing(i) {
				continue
			}
			x := c.Float(i)
			g.sum[j] += x
			g.cnt[j]++
			if _, ok := g.min[j]; !ok || x < g.min[j] {
				g.min[j] = x
			}
			if _, ok := g.max[j]; !ok || x > g.max[j] {
				g.max[j] = x
			}
		}
	}
	out := make([]GroupResult, 0, len(groups))
	for k, g := range groups {
		gr := GroupResult{Key: k, Size: g.size, Metrics: map[string]NumSummary{}}
		for j, c := range numeric {
			if g.cnt[j] == 0 {
				continue
			}
			gr.Metrics[c.Name] = NumSummary{Count: g.cnt[j], Min: g.min[j], Max: g.max[j], Mean: g.sum[j] / float64(g.cnt[j])}
		}
		out = append(out, gr)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Size == out[j].Size {
			return out[i].Key < out[j].Key
		}
		return out[i].Size > out[j].Size
	})
	if len(out) > 20 {
		out = out[:20]
	}
	return out
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
