// Package score ranks the columns of a table by their mutual information with
// a chosen target column.
package score

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/automateda/internal/mi"
	"github.com/KaramelBytes/automateda/internal/table"
)

var (
	// ErrInvalidTarget indicates the target column is absent or unusable.
	ErrInvalidTarget = errors.New("invalid target")
	// ErrEmptyFeatureSet indicates no feature columns remain after exclusion.
	ErrEmptyFeatureSet = errors.New("no feature columns to score")
	// ErrEmptyAfterCleaning indicates every row was dropped for missing values.
	ErrEmptyAfterCleaning = errors.New("no rows left after removing missing values")
	// ErrUnknownTargetType indicates an unrecognized target type spelling.
	ErrUnknownTargetType = errors.New("unknown target type")
)

// TargetType selects the classification or regression flavour of scoring.
type TargetType int

const (
	Discrete TargetType = iota
	Continuous
)

// ParseTargetType accepts discrete|categorical|classification and
// continuous|numeric|regression, case-insensitively.
func ParseTargetType(s string) (TargetType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "discrete", "categorical", "classification":
		return Discrete, nil
	case "continuous", "numeric", "regression":
		return Continuous, nil
	default:
		return 0, fmt.Errorf("%w: %q (use numeric|categorical)", ErrUnknownTargetType, s)
	}
}

func (t TargetType) String() string {
	if t == Continuous {
		return "continuous"
	}
	return "discrete"
}

// MarshalText renders the type by name for JSON and YAML output.
func (t TargetType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText parses any spelling accepted by ParseTargetType.
func (t *TargetType) UnmarshalText(b []byte) error {
	v, err := ParseTargetType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Request names the target and the columns to leave out of the feature set.
// Exclude entries that are not columns, or that name the target, are ignored.
type Request struct {
	Target     string     `json:"target" yaml:"target"`
	TargetType TargetType `json:"target_type" yaml:"target_type"`
	Exclude    []string   `json:"exclude,omitempty" yaml:"exclude,omitempty"`
}

// FeatureScore is one ranked feature.
type FeatureScore struct {
	Name     string  `json:"name" yaml:"name"`
	Score    float64 `json:"score" yaml:"score"`
	Discrete bool    `json:"discrete" yaml:"discrete"`
}

// Result is the ranking plus bookkeeping about the rows that were removed.
type Result struct {
	Target     string         `json:"target" yaml:"target"`
	TargetType TargetType     `json:"target_type" yaml:"target_type"`
	Scores     []FeatureScore `json:"scores" yaml:"scores"`
	// DroppedRows is DroppedTarget + DroppedFeatures, counted per pass.
	DroppedRows     int `json:"dropped_rows" yaml:"dropped_rows"`
	DroppedTarget   int `json:"dropped_target" yaml:"dropped_target"`
	DroppedFeatures int `json:"dropped_features" yaml:"dropped_features"`
	// Rows is the number of rows that were scored.
	Rows int `json:"rows" yaml:"rows"`
	// Encodings lists, per encoded text column, the category for each code.
	Encodings map[string][]string `json:"encodings,omitempty" yaml:"encodings,omitempty"`
}

// Scorer runs the cleaning, encoding and scoring pipeline.
type Scorer struct {
	Estimator mi.Estimator
}

// New returns a Scorer backed by est, or by mi.KNN{} when est is nil.
func New(est mi.Estimator) *Scorer {
	if est == nil {
		est = mi.KNN{}
	}
	return &Scorer{Estimator: est}
}

// Score ranks features with the default estimator and seed 0.
func Score(t *table.Table, req Request) (*Result, error) {
	return New(nil).Score(t, req)
}

// Prepare validates req against t and performs row cleaning without
// estimating anything. The returned Result carries the drop counts and an
// empty ranking, which is enough to warn about removed rows.
func Prepare(t *table.Table, req Request) (*Result, error) {
	c, err := prepare(t, req)
	if err != nil {
		return nil, err
	}
	return c.res, nil
}

// cleaned is the state shared between row cleaning and estimation.
type cleaned struct {
	res    *Result
	target *table.Column
	cols   []*table.Column
	kept   []int
}

func prepare(t *table.Table, req Request) (*cleaned, error) {
	target, ok := t.Column(req.Target)
	if !ok {
		return nil, fmt.Errorf("%w: column %q not found", ErrInvalidTarget, req.Target)
	}
	if req.TargetType == Continuous && !target.Kind.Numeric() {
		return nil, fmt.Errorf("%w: continuous target %q holds %s values", ErrInvalidTarget, req.Target, target.Kind)
	}

	rows := make([]int, 0, t.Rows())
	for i := 0; i < t.Rows(); i++ {
		if !target.IsMissing(i) {
			rows = append(rows, i)
		}
	}
	res := &Result{Target: req.Target, TargetType: req.TargetType}
	res.DroppedTarget = t.Rows() - len(rows)

	features := t.Drop(append([]string{req.Target}, req.Exclude...)...)
	if features.Width() == 0 {
		return nil, ErrEmptyFeatureSet
	}
	cols := features.Columns()
	kept := make([]int, 0, len(rows))
	for _, i := range rows {
		complete := true
		for _, c := range cols {
			if c.IsMissing(i) {
				complete = false
				break
			}
		}
		if complete {
			kept = append(kept, i)
		}
	}
	res.DroppedFeatures = len(rows) - len(kept)
	res.DroppedRows = res.DroppedTarget + res.DroppedFeatures
	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: %d rows removed", ErrEmptyAfterCleaning, res.DroppedRows)
	}
	res.Rows = len(kept)
	return &cleaned{res: res, target: target, cols: cols, kept: kept}, nil
}

// Score ranks every non-target, non-excluded column of t by its estimated
// mutual information with req.Target. Rows missing the target are dropped
// first, then rows missing any feature; both counts are reported.
func (s *Scorer) Score(t *table.Table, req Request) (*Result, error) {
	c, err := prepare(t, req)
	if err != nil {
		return nil, err
	}
	res, cols, kept := c.res, c.cols, c.kept

	X := make([][]float64, len(cols))
	discrete := make([]bool, len(cols))
	for j, col := range cols {
		sub := col.Take(kept)
		switch sub.Kind {
		case table.KindText:
			codes, uniques := Factorize(sub)
			X[j] = toFloats(codes)
			discrete[j] = true
			if res.Encodings == nil {
				res.Encodings = map[string][]string{}
			}
			res.Encodings[sub.Name] = uniques
		case table.KindInt:
			X[j] = toFloats(sub.Ints)
			discrete[j] = true
		default:
			X[j] = append([]float64(nil), sub.Floats...)
		}
	}
	ysub := c.target.Take(kept)
	var y []float64
	if req.TargetType == Discrete {
		codes, _ := Factorize(ysub)
		y = toFloats(codes)
	} else {
		y = make([]float64, ysub.Len())
		for i := range y {
			y[i] = ysub.Float(i)
		}
	}

	est := s.Estimator
	if est == nil {
		est = mi.KNN{}
	}
	vals, err := est.Estimate(X, discrete, y, req.TargetType == Discrete)
	if err != nil {
		return nil, fmt.Errorf("estimate mutual information: %w", err)
	}
	if len(vals) != len(cols) {
		return nil, fmt.Errorf("estimator returned %d scores for %d features", len(vals), len(cols))
	}
	res.Scores = make([]FeatureScore, len(cols))
	for j, col := range cols {
		res.Scores[j] = FeatureScore{Name: col.Name, Score: vals[j], Discrete: discrete[j]}
	}
	sort.SliceStable(res.Scores, func(a, b int) bool { return res.Scores[a].Score > res.Scores[b].Score })
	return res, nil
}

// Factorize assigns each distinct value a code in order of first appearance.
// It returns the codes and the distinct values indexed by code. Missing cells
// get code -1 and do not enter the mapping.
func Factorize(c *table.Column) ([]int64, []string) {
	codes := make([]int64, c.Len())
	seen := map[string]int64{}
	var uniques []string
	for i := range codes {
		if c.IsMissing(i) {
			codes[i] = -1
			continue
		}
		v := c.String(i)
		code, ok := seen[v]
		if !ok {
			code = int64(len(uniques))
			seen[v] = code
			uniques = append(uniques, v)
		}
		codes[i] = code
	}
	return codes, uniques
}

func toFloats(v []int64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
