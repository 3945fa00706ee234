package aucell

import (
	"math"
	"math/rand/v2"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clampRow(x []float64) []float64 {
	for i, v := range x {
		x[i] = math.Min(math.Max(v, 0), 1)
	}
	return x
}

// checkPartition verifies that every threshold's assignment is exactly the
// set of cells scoring at or above it.
func checkPartition(t *testing.T, s *ScoreMatrix, ts *ThresholdSet) {
	t.Helper()
	for i, th := range ts.Thresholds {
		row := s.Row(i)
		var want []int
		for c, v := range row {
			if v >= th.Value {
				want = append(want, c)
			}
		}
		if !slices.Equal(want, th.Assignment) {
			t.Errorf("set %q: assignment %v does not match scan %v", th.Set, th.Assignment, want)
		}
		if got := th.Recompute(row); !slices.Equal(got, th.Assignment) {
			t.Errorf("set %q: Recompute = %v, want %v", th.Set, got, th.Assignment)
		}
	}
}

func TestSelectThresholds_BimodalRow(t *testing.T) {
	row := clampRow(twoModes(80, 20, 0.1, 0.9, 0.01, 42))
	s := mustScores(t, [][]float64{row})

	ts := SelectThresholds(s, DefaultThresholdConfig())
	require.Len(t, ts.Thresholds, 1)
	th := ts.Thresholds[0]

	assert.Equal(t, "s1", th.Set)
	assert.Greater(t, th.Value, 0.1)
	assert.Less(t, th.Value, 0.9)
	assert.False(t, th.Fallback)
	assert.Equal(t, ConfidenceHigh, th.Confidence)
	assert.GreaterOrEqual(t, th.Components, 2)

	want := make([]int, 0, 20)
	for c := 80; c < 100; c++ {
		want = append(want, c)
	}
	assert.Equal(t, want, th.Assignment)
	checkPartition(t, s, ts)
}

func TestSelectThresholds_ConstantRow(t *testing.T) {
	s := mustScores(t, [][]float64{{0.3, 0.3, 0.3, 0.3}})
	ts := SelectThresholds(s, DefaultThresholdConfig())

	th := ts.Thresholds[0]
	assert.Equal(t, ConfidenceNone, th.Confidence)
	assert.Empty(t, th.Assignment)
	assert.Greater(t, th.Value, 0.3)
	checkPartition(t, s, ts)
}

func TestSelectThresholds_UnimodalFallsBack(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 5))
	row := make([]float64, 200)
	for i := range row {
		row[i] = 0.3 + 0.05*rng.NormFloat64()
	}
	s := mustScores(t, [][]float64{clampRow(row)})

	cfg := DefaultThresholdConfig()
	cfg.MaxComponents = 1
	cfg.FallbackQuantile = 0.9
	ts := SelectThresholds(s, cfg)

	th := ts.Thresholds[0]
	assert.True(t, th.Fallback)
	assert.Equal(t, ConfidenceLow, th.Confidence)
	assert.True(t, strings.HasPrefix(th.Comment, "no clear threshold"), th.Comment)
	assert.Contains(t, th.Comment, "unimodal")
	// The 0.9 empirical quantile leaves the top ~10% active.
	assert.InDelta(t, 20, len(th.Assignment), 1)
	checkPartition(t, s, ts)
}

func TestSelectThresholds_SmallMinorityFallsBack(t *testing.T) {
	row := clampRow(twoModes(98, 2, 0.1, 0.9, 0.01, 8))
	s := mustScores(t, [][]float64{row})

	cfg := DefaultThresholdConfig()
	cfg.MaxComponents = 2
	cfg.MinPopulationFraction = 0.05
	ts := SelectThresholds(s, cfg)

	th := ts.Thresholds[0]
	assert.True(t, th.Fallback)
	assert.Contains(t, th.Comment, "minority group smaller than 5 cells")
	checkPartition(t, s, ts)
}

func TestSelectThresholds_NonConvergenceFallsBack(t *testing.T) {
	row := clampRow(twoModes(80, 20, 0.1, 0.9, 0.01, 42))
	s := mustScores(t, [][]float64{row})

	cfg := DefaultThresholdConfig()
	cfg.MaxIterations = 1
	ts := SelectThresholds(s, cfg)

	th := ts.Thresholds[0]
	assert.True(t, th.Fallback)
	assert.Equal(t, ConfidenceLow, th.Confidence)
	assert.Equal(t, 0, th.Components)
	assert.Contains(t, th.Comment, "mixture fit did not converge")
	assert.Contains(t, th.Comment, "0.95 quantile")
	checkPartition(t, s, ts)
}

func TestThreshold_Recompute(t *testing.T) {
	th := Threshold{Value: 0.5}
	assert.Equal(t, []int{1, 3}, th.Recompute([]float64{0.1, 0.5, 0.49, 0.9}))
	assert.Empty(t, th.Recompute([]float64{0.1, 0.2}))
}

func TestSelectThresholds_NeverFailsAndPartitionHolds(t *testing.T) {
	rows := [][]float64{
		clampRow(twoModes(30, 30, 0.2, 0.7, 0.05, 1)),
		clampRow(twoModes(60, 0, 0.5, 0, 0.2, 2)),
		clampRow(twoModes(55, 5, 0.05, 0.6, 0.02, 3)),
		make([]float64, 60),
	}
	s := mustScores(t, rows)

	ts := SelectThresholds(s, DefaultThresholdConfig())
	require.Len(t, ts.Thresholds, len(rows))
	for i, th := range ts.Thresholds {
		assert.Equal(t, s.Sets()[i], th.Set)
		assert.False(t, math.IsNaN(th.Value), "set %d threshold is NaN", i)
		assert.NotEmpty(t, th.Comment)
	}
	checkPartition(t, s, ts)
}

func TestSelectThresholds_ReproducibleAcrossWorkers(t *testing.T) {
	var rows [][]float64
	for i := range 12 {
		rows = append(rows, clampRow(twoModes(70, 30, 0.15, 0.6, 0.04, uint64(i))))
	}
	s := mustScores(t, rows)

	cfg := DefaultThresholdConfig()
	cfg.Seed = 123
	cfg.Workers = 1
	reference := SelectThresholds(s, cfg)

	for _, workers := range []int{2, 4, 7} {
		cfg.Workers = workers
		got := SelectThresholds(s, cfg)
		if !reflect.DeepEqual(reference, got) {
			t.Errorf("workers=%d: thresholds differ from sequential run", workers)
		}
	}
}

func TestSelectThresholds_InvalidConfigUsesDefaults(t *testing.T) {
	row := clampRow(twoModes(80, 20, 0.1, 0.9, 0.01, 42))
	s := mustScores(t, [][]float64{row})

	bad := ThresholdConfig{MinPopulationFraction: 2, MaxComponents: 9, MaxIterations: -1, Tolerance: -1, FallbackQuantile: 3}
	got := SelectThresholds(s, bad)
	want := SelectThresholds(s, DefaultThresholdConfig())
	assert.Equal(t, want.Thresholds, got.Thresholds)
}

func TestThresholdSet_BinaryMatrixAndLookup(t *testing.T) {
	row := clampRow(twoModes(80, 20, 0.1, 0.9, 0.01, 42))
	s := mustScores(t, [][]float64{row, make([]float64, 100)})
	ts := SelectThresholds(s, DefaultThresholdConfig())

	b := ts.BinaryMatrix()
	require.NotNil(t, b)
	r, c := b.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 100, c)
	for cell := range 100 {
		want := 0.0
		if cell >= 80 {
			want = 1
		}
		assert.Equal(t, want, b.At(0, cell), "cell %d", cell)
		assert.Equal(t, 0.0, b.At(1, cell))
	}

	th, ok := ts.Lookup("s1")
	require.True(t, ok)
	assert.Equal(t, ts.Thresholds[0], th)
	_, ok = ts.Lookup("missing")
	assert.False(t, ok)

	active := ts.ActiveCells(0)
	assert.Len(t, active, 20)
	assert.Equal(t, "c81", active[0])
}

func TestThresholdConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ThresholdConfig)
	}{
		{"negative population", func(c *ThresholdConfig) { c.MinPopulationFraction = -0.1 }},
		{"population above half", func(c *ThresholdConfig) { c.MinPopulationFraction = 0.6 }},
		{"zero components", func(c *ThresholdConfig) { c.MaxComponents = 0 }},
		{"four components", func(c *ThresholdConfig) { c.MaxComponents = 4 }},
		{"zero iterations", func(c *ThresholdConfig) { c.MaxIterations = 0 }},
		{"zero tolerance", func(c *ThresholdConfig) { c.Tolerance = 0 }},
		{"quantile above one", func(c *ThresholdConfig) { c.FallbackQuantile = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultThresholdConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.validate())
		})
	}
	assert.NoError(t, DefaultThresholdConfig().validate())
}
