package rights

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var paris = mustLoad("Europe/Paris")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("CET", 3600)
	}
	return loc
}

func newEvaluator(now time.Time) *Evaluator {
	return &Evaluator{
		Location: paris,
		Now:      func() time.Time { return now },
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
		want  time.Time
	}{
		{"15/03/2024", true, time.Date(2024, 3, 15, 0, 0, 0, 0, paris)},
		{"1/2/2024", true, time.Date(2024, 2, 1, 0, 0, 0, 0, paris)},
		{"01/02/2024", true, time.Date(2024, 2, 1, 0, 0, 0, 0, paris)},
		{"29/02/2024", true, time.Date(2024, 2, 29, 0, 0, 0, 0, paris)},
		{"2024-03-15", true, time.Date(2024, 3, 15, 0, 0, 0, 0, paris)},
		{"2024-03-15T10:30:00", true, time.Date(2024, 3, 15, 10, 30, 0, 0, paris)},
		{"2024-03-15T10:30:00Z", true, time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)},
		{"2024-03-15T10:30:00.250+02:00", true, time.Date(2024, 3, 15, 8, 30, 0, 250e6, time.UTC)},
		{"  15/03/2024  ", true, time.Date(2024, 3, 15, 0, 0, 0, 0, paris)},
		{"31/02/2024", false, time.Time{}},
		{"29/02/2023", false, time.Time{}},
		{"32/01/2024", false, time.Time{}},
		{"15/13/2024", false, time.Time{}},
		{"00/01/2024", false, time.Time{}},
		{"2024-02-31", false, time.Time{}},
		{"not a date", false, time.Time{}},
		{"", false, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseDate(tt.input, paris)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestActiveDecisionTable(t *testing.T) {
	now := time.Date(2024, 4, 1, 12, 0, 0, 0, paris)
	e := newEvaluator(now)

	tests := []struct {
		name string
		win  Window
		want bool
	}{
		{"no dates", Window{}, true},
		{"blank dates", Window{Start: " ", End: ""}, true},
		{"start only", Window{Start: "15/03/2024"}, false},
		{"end only", Window{End: "15/04/2024"}, false},
		{"inside", Window{Start: "15/03/2024", End: "15/04/2024"}, true},
		{"before", Window{Start: "02/04/2024", End: "15/04/2024"}, false},
		{"after", Window{Start: "01/01/2024", End: "31/03/2024"}, false},
		{"invalid start", Window{Start: "31/02/2024"}, false},
		{"invalid start with end", Window{Start: "31/02/2024", End: "15/04/2024"}, false},
		{"mixed formats", Window{Start: "2024-03-15", End: "15/04/2024"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Active(tt.win))
		})
	}
}

func TestActiveBoundariesInclusive(t *testing.T) {
	e := newEvaluator(time.Time{})
	w := Window{Start: "15/03/2024", End: "15/04/2024"}

	start := time.Date(2024, 3, 15, 0, 0, 0, 0, paris)
	end := time.Date(2024, 4, 15, 0, 0, 0, 0, paris)

	assert.True(t, e.ActiveAt(w, start))
	assert.True(t, e.ActiveAt(w, end))
	assert.False(t, e.ActiveAt(w, start.Add(-time.Nanosecond)))
	assert.False(t, e.ActiveAt(w, end.Add(time.Nanosecond)))
}

func TestNoDatesAlwaysActive(t *testing.T) {
	e := newEvaluator(time.Time{})
	for _, now := range []time.Time{
		{},
		time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2099, 12, 31, 23, 59, 59, 0, time.UTC),
	} {
		assert.True(t, e.ActiveAt(Window{}, now))
	}
}

func TestStartOnlyNeverActive(t *testing.T) {
	e := newEvaluator(time.Time{})
	w := Window{Start: "15/03/2024"}
	for _, now := range []time.Time{
		time.Date(2024, 3, 14, 0, 0, 0, 0, paris),
		time.Date(2024, 3, 15, 0, 0, 0, 0, paris),
		time.Date(2030, 1, 1, 0, 0, 0, 0, paris),
	} {
		assert.False(t, e.ActiveAt(w, now))
	}
}

func TestUnparseableBoundsNeverActive(t *testing.T) {
	e := newEvaluator(time.Time{})
	now := time.Date(2024, 4, 1, 12, 0, 0, 0, paris)

	for _, w := range []Window{
		{Start: "garbage", End: "garbage"},
		{Start: "garbage", End: ""},
		{Start: "  ", End: "soon"},
		{Start: "15/03/2024", End: "31/02/2024"},
	} {
		assert.False(t, e.ActiveAt(w, now), "%+v", w)
	}
	assert.True(t, e.ActiveAt(Window{Start: " ", End: ""}, now))
}

func TestIsActiveUsesLocalTime(t *testing.T) {
	now := time.Date(2024, 4, 1, 0, 0, 0, 0, time.Local)
	assert.True(t, IsActive("2024-03-15", "15/04/2024", now))
	assert.True(t, IsActive("", "", now))
	assert.False(t, IsActive("31/02/2024", "", now))
}

func TestEvaluatorDefaults(t *testing.T) {
	var e Evaluator
	assert.True(t, e.Active(Window{Start: "01/01/2000", End: "31/12/2999"}))
	assert.False(t, e.Active(Window{Start: "01/01/2000", End: "31/12/2000"}))
}
