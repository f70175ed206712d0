package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() *Request {
	return &Request{
		CHID:       "run42",
		StartT:     0,
		EndT:       200,
		VarCount:   9,
		Groups:     []int{1},
		ToolPath:   "/opt/fds/fds2ascii",
		InputDir:   "/data/run42",
		OutputRoot: "/data/run42-csv",
	}
}

func TestRequestValidate(t *testing.T) {
	require.NoError(t, validRequest().Validate())

	cases := []struct {
		name   string
		mutate func(*Request)
	}{
		{"empty CHID", func(r *Request) { r.CHID = "" }},
		{"inverted range", func(r *Request) { r.StartT = 10; r.EndT = 5 }},
		{"zero var count", func(r *Request) { r.VarCount = 0 }},
		{"no groups", func(r *Request) { r.Groups = nil }},
		{"group below one", func(r *Request) { r.Groups = []int{1, 0} }},
		{"missing tool", func(r *Request) { r.ToolPath = "" }},
		{"missing input dir", func(r *Request) { r.InputDir = "" }},
		{"missing output root", func(r *Request) { r.OutputRoot = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := validRequest()
			tc.mutate(r)
			assert.Error(t, r.Validate())
		})
	}
}

func TestTimePointsAndTotalRuns(t *testing.T) {
	r := validRequest()
	r.StartT, r.EndT = 3, 7
	r.Groups = []int{1, 4}

	assert.Equal(t, []int{3, 4, 5, 6, 7}, r.TimePoints())
	assert.Equal(t, 10, r.TotalRuns())

	r.StartT, r.EndT = 5, 5
	assert.Equal(t, []int{5}, r.TimePoints())
	assert.Equal(t, 2, r.TotalRuns())
}

func TestWindowFor(t *testing.T) {
	// Group 1 with 9 vars covers 1..9.
	w := WindowFor(1, 9)
	assert.Equal(t, GroupWindow{Group: 1, First: 1, Last: 9}, w)

	// Groups 1 and 2 with 5 vars cover 1..5 and 6..10.
	assert.Equal(t, GroupWindow{Group: 1, First: 1, Last: 5}, WindowFor(1, 5))
	assert.Equal(t, GroupWindow{Group: 2, First: 6, Last: 10}, WindowFor(2, 5))
}

// Windows for consecutive groups must be disjoint and each next window
// must start exactly one past the previous end.
func TestWindowForDisjointAndIncreasing(t *testing.T) {
	for _, varCount := range []int{1, 3, 9, 17} {
		prev := WindowFor(1, varCount)
		assert.Equal(t, varCount, prev.Last-prev.First+1)
		for g := 2; g <= 20; g++ {
			w := WindowFor(g, varCount)
			assert.Equal(t, prev.Last+1, w.First, "varCount=%d group=%d", varCount, g)
			assert.Equal(t, varCount, w.Last-w.First+1)
			prev = w
		}
	}
}

func TestGroupWindowIndices(t *testing.T) {
	assert.Equal(t, []int{6, 7, 8, 9, 10}, WindowFor(2, 5).Indices())
	assert.Equal(t, []int{1}, WindowFor(1, 1).Indices())
}

func TestAverageWindow(t *testing.T) {
	// Interior point: full three-sample window.
	assert.Equal(t, AveragingWindow{TMin: 99, TMax: 101}, AverageWindow(100, 0, 200))

	// Clamped at both boundaries.
	assert.Equal(t, AveragingWindow{TMin: 0, TMax: 1}, AverageWindow(0, 0, 200))
	assert.Equal(t, AveragingWindow{TMin: 199, TMax: 200}, AverageWindow(200, 0, 200))

	// Degenerate single-point range.
	assert.Equal(t, AveragingWindow{TMin: 5, TMax: 5}, AverageWindow(5, 5, 5))
}

func TestAverageWindowStaysInRange(t *testing.T) {
	start, end := 0, 200
	for tp := start; tp <= end; tp++ {
		w := AverageWindow(tp, start, end)
		assert.LessOrEqual(t, start, w.TMin)
		assert.LessOrEqual(t, w.TMin, tp)
		assert.LessOrEqual(t, tp, w.TMax)
		assert.LessOrEqual(t, w.TMax, end)
		assert.LessOrEqual(t, w.TMax-w.TMin+1, 3)
	}
}
