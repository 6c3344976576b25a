package timeline

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sec = time.Second

func TestBuildDailyComfortFixedSplit(t *testing.T) {
	specs := []Spec{Fixed("intro", 15*sec), Fixed("main", 130*sec), Fixed("outro", 35*sec)}

	tl, err := Build(180*sec, specs)
	require.NoError(t, err)

	assert.Equal(t, []Segment{
		{Name: "intro", Start: 0, Length: 15 * sec},
		{Name: "main", Start: 15 * sec, Length: 130 * sec},
		{Name: "outro", Start: 145 * sec, Length: 35 * sec},
	}, tl.Segments)
	assert.NoError(t, tl.Validate())
}

func TestBuildIsDeterministic(t *testing.T) {
	specs := []Spec{Fixed("intro", 15*sec), Fixed("main", 130*sec), Fixed("outro", 35*sec)}

	first, err := Build(180*sec, specs)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Build(180*sec, specs)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	weighted := []Spec{Weighted("a", 1), Weighted("b", 1), Weighted("c", 1)}
	w1, err := Build(100*sec, weighted)
	require.NoError(t, err)
	w2, err := Build(100*sec, weighted)
	require.NoError(t, err)
	assert.Equal(t, w1, w2)
}

func TestBuildWeightedMainTakesRemainder(t *testing.T) {
	tl, err := Build(180*sec, []Spec{Fixed("intro", 15*sec), Weighted("main", 1), Fixed("outro", 10*sec)})
	require.NoError(t, err)

	main, ok := tl.Segment("main")
	require.True(t, ok)
	assert.Equal(t, 155*sec, main.Length)
	assert.Equal(t, 15*sec, main.Start)

	outro, _ := tl.Segment("outro")
	assert.Equal(t, 170*sec, outro.Start)
	assert.NoError(t, tl.Validate())
}

func TestBuildSumsToTotal(t *testing.T) {
	cases := []struct {
		name  string
		total time.Duration
		specs []Spec
	}{
		{"thirds", 100 * sec, []Spec{Weighted("a", 1), Weighted("b", 1), Weighted("c", 1)}},
		{"uneven weights", 181 * sec, []Spec{Fixed("intro", 7 * sec), Weighted("a", 0.3), Weighted("b", 2.7), Fixed("outro", 11 * sec)}},
		{"sub-millisecond total", 1000*sec + 7, []Spec{Weighted("a", 1), Weighted("b", 2)}},
		{"fixed fills everything", 60 * sec, []Spec{Fixed("a", 60 * sec), Weighted("b", 3)}},
		{"many paragraphs", 130 * sec, []Spec{Weighted("p1", 37), Weighted("p2", 52), Weighted("p3", 18), Weighted("p4", 91), Weighted("p5", 44), Weighted("p6", 63)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tl, err := Build(tc.total, tc.specs)
			require.NoError(t, err)

			var sum time.Duration
			for i, seg := range tl.Segments {
				assert.Equal(t, tc.specs[i].Name, seg.Name)
				assert.GreaterOrEqual(t, seg.Length, time.Duration(0))
				sum += seg.Length
			}
			assert.Equal(t, tc.total, sum)
			assert.NoError(t, tl.Validate())
		})
	}
}

func TestBuildLargestRemainderTiesGoToEarlierSegment(t *testing.T) {
	tl, err := Build(100*time.Millisecond, []Spec{Weighted("a", 1), Weighted("b", 1), Weighted("c", 1)})
	require.NoError(t, err)

	assert.Equal(t, 34*time.Millisecond, tl.Segments[0].Length)
	assert.Equal(t, 33*time.Millisecond, tl.Segments[1].Length)
	assert.Equal(t, 33*time.Millisecond, tl.Segments[2].Length)
}

func TestBuildZeroWeightSegmentGetsNothing(t *testing.T) {
	tl, err := Build(10*sec, []Spec{Weighted("a", 0), Weighted("b", 1)})
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), tl.Segments[0].Length)
	assert.Equal(t, 10*sec, tl.Segments[1].Length)
}

func TestBuildErrors(t *testing.T) {
	cases := []struct {
		name  string
		total time.Duration
		specs []Spec
		want  error
	}{
		{"zero total", 0, []Spec{Weighted("a", 1)}, ErrInvalidTotal},
		{"negative total", -sec, []Spec{Weighted("a", 1)}, ErrInvalidTotal},
		{"no segments", 10 * sec, nil, ErrNoSegments},
		{"empty name", 10 * sec, []Spec{Weighted("", 1)}, ErrInvalidSegment},
		{"duplicate name", 10 * sec, []Spec{Fixed("a", 5 * sec), Fixed("a", 5 * sec)}, ErrInvalidSegment},
		{"zero fixed", 10 * sec, []Spec{Fixed("a", 0), Weighted("b", 1)}, ErrInvalidSegment},
		{"negative weight", 10 * sec, []Spec{Weighted("a", -1)}, ErrInvalidSegment},
		{"fixed exceeds total", 180 * sec, []Spec{Fixed("intro", 15 * sec), Fixed("main", 155 * sec), Fixed("outro", 35 * sec)}, ErrOverallocated},
		{"fixed exceeds total with weights", 20 * sec, []Spec{Fixed("intro", 15 * sec), Weighted("main", 1), Fixed("outro", 10 * sec)}, ErrOverallocated},
		{"fixed short of total", 180 * sec, []Spec{Fixed("intro", 15 * sec), Fixed("main", 130 * sec), Fixed("outro", 10 * sec)}, ErrFixedMismatch},
		{"zero weights with time left", 180 * sec, []Spec{Fixed("intro", 15 * sec), Weighted("main", 0)}, ErrZeroWeight},
		{"fixed sum overflows", 180 * sec, []Spec{Fixed("a", math.MaxInt64), Fixed("b", math.MaxInt64), Weighted("main", 1)}, ErrOverallocated},
		{"single fixed far above total", 180 * sec, []Spec{Fixed("intro", 15 * sec), Fixed("main", math.MaxInt64)}, ErrOverallocated},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tl, err := Build(tc.total, tc.specs)
			require.ErrorIs(t, err, tc.want)
			assert.Empty(t, tl.Segments)
		})
	}
}

func TestBuildZeroWeightsAllowedWhenNothingRemains(t *testing.T) {
	tl, err := Build(30*sec, []Spec{Fixed("intro", 30*sec), Weighted("main", 0)})
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), tl.Segments[1].Length)
	assert.Equal(t, 30*sec, tl.Segments[1].Start)
}

func TestSubdivideKeepsAbsoluteOffsets(t *testing.T) {
	main := Segment{Name: "main", Start: 15 * sec, Length: 130 * sec}

	parts, err := main.Subdivide([]Spec{Weighted("p1", 1), Weighted("p2", 1)})
	require.NoError(t, err)

	require.Len(t, parts, 2)
	assert.Equal(t, Segment{Name: "p1", Start: 15 * sec, Length: 65 * sec}, parts[0])
	assert.Equal(t, Segment{Name: "p2", Start: 80 * sec, Length: 65 * sec}, parts[1])
	assert.Equal(t, main.End(), parts[1].End())
}

func TestValidateRejectsGaps(t *testing.T) {
	tl := Timeline{Total: 20 * sec, Segments: []Segment{
		{Name: "a", Start: 0, Length: 5 * sec},
		{Name: "b", Start: 6 * sec, Length: 14 * sec},
	}}
	assert.ErrorIs(t, tl.Validate(), ErrInvalidSegment)

	short := Timeline{Total: 20 * sec, Segments: []Segment{{Name: "a", Start: 0, Length: 5 * sec}}}
	assert.ErrorIs(t, short.Validate(), ErrFixedMismatch)

	wrapped := Timeline{Total: 180 * sec, Segments: []Segment{
		{Name: "intro", Start: 0, Length: math.MaxInt64},
		{Name: "main", Start: math.MaxInt64, Length: math.MaxInt64},
		{Name: "outro", Start: -2, Length: 180*sec + 2},
	}}
	assert.ErrorIs(t, wrapped.Validate(), ErrOverallocated)

	past := Timeline{Total: 20 * sec, Segments: []Segment{
		{Name: "a", Start: 0, Length: 15 * sec},
		{Name: "b", Start: 15 * sec, Length: 10 * sec},
	}}
	assert.ErrorIs(t, past.Validate(), ErrOverallocated)
}
