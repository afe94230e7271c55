package score

import (
	"encoding/json"
	"sort"
	"testing"

	"github.com/KaramelBytes/automateda/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTable(t *testing.T, header []string, rows ...[]string) *table.Table {
	t.Helper()
	tb, err := table.FromRecords(header, rows, table.DefaultOptions())
	require.NoError(t, err)
	return tb
}

// recordingEstimator returns canned scores and remembers its inputs.
type recordingEstimator struct {
	scores         []float64
	features       [][]float64
	discrete       []bool
	target         []float64
	discreteTarget bool
}

func (r *recordingEstimator) Estimate(features [][]float64, discrete []bool, target []float64, discreteTarget bool) ([]float64, error) {
	r.features, r.discrete, r.target, r.discreteTarget = features, discrete, target, discreteTarget
	return r.scores, nil
}

func TestScore_MixedScenario(t *testing.T) {
	tb := mustTable(t, []string{"A", "B", "T"},
		[]string{"1", "x", "0"},
		[]string{"2", "y", "1"},
		[]string{"3", "x", "0"},
		[]string{"NA", "x", "1"},
	)
	res, err := Score(tb, Request{Target: "T", TargetType: Discrete})
	require.NoError(t, err)

	assert.Equal(t, 1, res.DroppedRows)
	assert.Equal(t, 0, res.DroppedTarget)
	assert.Equal(t, 1, res.DroppedFeatures)
	assert.Equal(t, tb.Rows()-res.DroppedRows, res.Rows)
	assert.Equal(t, []string{"x", "y"}, res.Encodings["B"])

	require.Len(t, res.Scores, 2)
	names := []string{res.Scores[0].Name, res.Scores[1].Name}
	sort.Strings(names)
	assert.Equal(t, []string{"A", "B"}, names)
	for _, s := range res.Scores {
		assert.GreaterOrEqual(t, s.Score, 0.0)
		assert.True(t, s.Discrete, "%s should be discrete", s.Name)
	}
	assert.GreaterOrEqual(t, res.Scores[0].Score, res.Scores[1].Score)
}

func TestScore_MissingTargetDroppedInFirstPass(t *testing.T) {
	tb := mustTable(t, []string{"f", "g", "y"},
		[]string{"1.5", "a", "10"},
		[]string{"2.5", "b", ""},
		[]string{"3.5", "a", "30"},
		[]string{"4.5", "b", "40"},
	)
	res, err := Score(tb, Request{Target: "y", TargetType: Continuous})
	require.NoError(t, err)
	assert.Equal(t, 1, res.DroppedTarget)
	assert.Equal(t, 0, res.DroppedFeatures)
	assert.Equal(t, 1, res.DroppedRows)
	assert.Equal(t, 3, res.Rows)
}

func TestScore_DroppedCountsAreAdditive(t *testing.T) {
	// Row 1 lacks the target, row 2 lacks a feature, row 3 lacks both.
	tb := mustTable(t, []string{"f", "y"},
		[]string{"1", "0"},
		[]string{"2", ""},
		[]string{"", "1"},
		[]string{"", ""},
		[]string{"5", "1"},
		[]string{"6", "0"},
	)
	res, err := Score(tb, Request{Target: "y", TargetType: Discrete})
	require.NoError(t, err)
	assert.Equal(t, 2, res.DroppedTarget)
	assert.Equal(t, 1, res.DroppedFeatures)
	assert.Equal(t, 3, res.DroppedRows)
	assert.Equal(t, 3, res.Rows)
}

func TestScore_Errors(t *testing.T) {
	tb := mustTable(t, []string{"a", "b", "label"},
		[]string{"1", "NA", "yes"},
		[]string{"2", "NA", "no"},
	)
	cases := []struct {
		name string
		req  Request
		want error
	}{
		{"unknown target", Request{Target: "nope"}, ErrInvalidTarget},
		{"text target as continuous", Request{Target: "label", TargetType: Continuous}, ErrInvalidTarget},
		{"everything excluded", Request{Target: "label", Exclude: []string{"a", "b"}}, ErrEmptyFeatureSet},
		{"all rows dropped", Request{Target: "label"}, ErrEmptyAfterCleaning},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Score(tb, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestScore_ExclusionsAndEncodingPassedToEstimator(t *testing.T) {
	tb := mustTable(t, []string{"n", "c", "r", "skip", "y"},
		[]string{"4", "red", "0.5", "1", "yes"},
		[]string{"5", "blue", "1.5", "2", "no"},
		[]string{"6", "red", "2.5", "3", "yes"},
	)
	est := &recordingEstimator{scores: []float64{0.1, 0.3, 0.2}}
	res, err := New(est).Score(tb, Request{Target: "y", TargetType: Discrete, Exclude: []string{"skip", "y", "ghost"}})
	require.NoError(t, err)

	assert.Equal(t, []bool{true, true, false}, est.discrete)
	assert.Equal(t, []float64{4, 5, 6}, est.features[0])
	assert.Equal(t, []float64{0, 1, 0}, est.features[1])
	assert.Equal(t, []float64{0.5, 1.5, 2.5}, est.features[2])
	assert.Equal(t, []float64{0, 1, 0}, est.target)
	assert.True(t, est.discreteTarget)

	got := make([]string, len(res.Scores))
	for i, s := range res.Scores {
		got[i] = s.Name
	}
	assert.Equal(t, []string{"c", "r", "n"}, got)
}

func TestScore_TiesKeepColumnOrder(t *testing.T) {
	tb := mustTable(t, []string{"p", "q", "r", "s", "y"},
		[]string{"1", "1", "1", "1", "1.0"},
		[]string{"2", "2", "2", "2", "2.0"},
	)
	est := &recordingEstimator{scores: []float64{0.2, 0.5, 0.2, 0.5}}
	res, err := New(est).Score(tb, Request{Target: "y", TargetType: Continuous})
	require.NoError(t, err)
	got := make([]string, len(res.Scores))
	for i, s := range res.Scores {
		got[i] = s.Name
	}
	assert.Equal(t, []string{"q", "s", "p", "r"}, got)
	assert.False(t, est.discreteTarget)
	assert.Equal(t, []float64{1, 2}, est.target)
}

func TestScore_Deterministic(t *testing.T) {
	rows := [][]string{}
	for i := 0; i < 40; i++ {
		x := float64(i) * 0.37
		cat := []string{"a", "b", "c"}[i%3]
		rows = append(rows, []string{
			jsonNum(x), cat, jsonNum(float64(i % 5)), jsonNum(x*2 + float64(i%3)),
		})
	}
	tb := mustTable(t, []string{"x", "cat", "k", "y"}, rows...)
	a, err := Score(tb, Request{Target: "y", TargetType: Continuous})
	require.NoError(t, err)
	b, err := Score(tb, Request{Target: "y", TargetType: Continuous})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	for i := 1; i < len(a.Scores); i++ {
		assert.GreaterOrEqual(t, a.Scores[i-1].Score, a.Scores[i].Score)
	}
}

func TestFactorize_FirstOccurrence(t *testing.T) {
	c := table.NewTextColumn("c", []string{"z", "a", "z", "", "m"}, []bool{false, false, false, true, false})
	codes, uniq := Factorize(c)
	assert.Equal(t, []int64{0, 1, 0, -1, 2}, codes)
	assert.Equal(t, []string{"z", "a", "m"}, uniq)

	again, uniq2 := Factorize(c)
	assert.Equal(t, codes, again)
	assert.Equal(t, uniq, uniq2)
}

func TestParseTargetType(t *testing.T) {
	for in, want := range map[string]TargetType{
		"Numeric": Continuous, "continuous": Continuous, "regression": Continuous,
		"Categorical": Discrete, "discrete": Discrete, " classification ": Discrete,
	} {
		got, err := ParseTargetType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseTargetType("ordinal")
	assert.ErrorIs(t, err, ErrUnknownTargetType)
}

func TestRequest_JSONTargetType(t *testing.T) {
	var req Request
	require.NoError(t, json.Unmarshal([]byte(`{"target":"y","target_type":"numeric","exclude":["a"]}`), &req))
	assert.Equal(t, Request{Target: "y", TargetType: Continuous, Exclude: []string{"a"}}, req)
}

func jsonNum(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}

func TestPrepare_CountsWithoutScoring(t *testing.T) {
	tb := mustTable(t, []string{"f", "y"},
		[]string{"1", ""},
		[]string{"", "2"},
		[]string{"3", "4"},
	)
	res, err := Prepare(tb, Request{Target: "y", TargetType: Continuous})
	require.NoError(t, err)
	assert.Equal(t, 2, res.DroppedRows)
	assert.Equal(t, 1, res.Rows)
	assert.Empty(t, res.Scores)

	_, err = Prepare(tb, Request{Target: "y", Exclude: []string{"f"}})
	assert.ErrorIs(t, err, ErrEmptyFeatureSet)
}

func TestScore_SingleSurvivingRowScoresZero(t *testing.T) {
	tb := mustTable(t, []string{"A", "B", "T"},
		[]string{"1", "x", "0"},
		[]string{"NA", "y", "1"},
	)
	res, err := Score(tb, Request{Target: "T", TargetType: Discrete})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rows)
	assert.Equal(t, 1, res.DroppedRows)
	require.Len(t, res.Scores, 2)
	for _, s := range res.Scores {
		assert.Equal(t, 0.0, s.Score, s.Name)
	}
	assert.Equal(t, "A", res.Scores[0].Name)
}

func TestScore_InfiniteCellsDoNotPanic(t *testing.T) {
	tb := mustTable(t, []string{"f", "T"},
		[]string{"1.5", "1"},
		[]string{"inf", "2"},
		[]string{"2.5", "3"},
		[]string{"3.5", "4"},
	)
	var res *Result
	var err error
	require.NotPanics(t, func() {
		res, err = Score(tb, Request{Target: "T", TargetType: Continuous})
	})
	require.NoError(t, err)
	require.Len(t, res.Scores, 1)
	assert.True(t, res.Scores[0].Discrete, "inf makes the column text, encoded as discrete")
	assert.Equal(t, []string{"1.5", "inf", "2.5", "3.5"}, res.Encodings["f"])
}
