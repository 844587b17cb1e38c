package stats

import (
	"math"
	"math/rand"
	"sort"
	"strconv"
	"testing"

	"github.com/verte-zerg/rollstats/internal/histogram"
	"github.com/verte-zerg/rollstats/internal/model"
)

func d(counts ...int) histogram.Die {
	return histogram.Die{Faces: len(counts), Counts: counts}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSummarizeSingleRoll(t *testing.T) {
	row := SummarizeDie(d(0, 0, 1, 0, 0, 0), model.MedianOrder)
	if row.TotalRolls != 1 {
		t.Fatalf("expected 1 roll, got %d", row.TotalRolls)
	}
	if FormatMean(row.Mean) != "3.00" {
		t.Fatalf("expected mean 3.00, got %s", FormatMean(row.Mean))
	}
	if row.Median != "3" {
		t.Fatalf("expected median 3, got %s", row.Median)
	}
	if !equalInts(row.MostRolled, []int{3}) {
		t.Fatalf("unexpected most rolled: %v", row.MostRolled)
	}
	if !equalInts(row.LeastRolled, []int{1, 2, 4, 5, 6}) {
		t.Fatalf("unexpected least rolled: %v", row.LeastRolled)
	}
	got := Collapse(row.LeastRolled)
	if len(got) != 3 || got[0] != "1" || got[1] != "2" || got[2] != "4-6" {
		t.Fatalf("unexpected collapsed least rolled: %v", got)
	}
}

func TestSummarizeUniformSix(t *testing.T) {
	row := SummarizeDie(d(1, 1, 1, 1, 1, 1), model.MedianOrder)
	if row.TotalRolls != 6 {
		t.Fatalf("expected 6 rolls, got %d", row.TotalRolls)
	}
	if FormatMean(row.Mean) != "3.50" {
		t.Fatalf("expected mean 3.50, got %s", FormatMean(row.Mean))
	}
	// Sorted multiset 1..6: positions 3 and 4 hold 3 and 4.
	if row.Median != "3.5" {
		t.Fatalf("expected median 3.5, got %s", row.Median)
	}
	if c := Collapse(row.MostRolled); len(c) != 1 || c[0] != "1-6" {
		t.Fatalf("unexpected most rolled: %v", c)
	}
	if c := Collapse(row.LeastRolled); len(c) != 1 || c[0] != "1-6" {
		t.Fatalf("unexpected least rolled: %v", c)
	}
}

func TestLegacyMedianWalk(t *testing.T) {
	tests := []struct {
		name string
		die  histogram.Die
		want string
	}{
		// half=3: running count reaches 2 at face 2 and 3 at face 3.
		{name: "uniform d6", die: d(1, 1, 1, 1, 1, 1), want: "2.5"},
		// half=0: face 1 already satisfies running >= 0.
		{name: "single roll", die: d(0, 0, 1, 0, 0, 0), want: "1"},
		// half=1: face 1 reaches half-1 before any roll is counted.
		{name: "pair of fours", die: d(0, 0, 0, 2), want: "2.5"},
		{name: "empty", die: d(0, 0, 0, 0), want: NoMedian},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LegacyMedian(tt.die); got != tt.want {
				t.Fatalf("LegacyMedian() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMedianCases(t *testing.T) {
	tests := []struct {
		name string
		die  histogram.Die
		want string
	}{
		{name: "empty", die: d(0, 0, 0, 0, 0, 0), want: NoMedian},
		{name: "two equal", die: d(0, 2, 0, 0), want: "2"},
		{name: "two apart", die: d(1, 0, 0, 1), want: "2.5"},
		{name: "odd skewed", die: d(3, 0, 0, 0, 0, 2), want: "1"},
		{name: "even integer average", die: d(1, 0, 1, 0, 1, 1), want: "4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Median(tt.die); got != tt.want {
				t.Fatalf("Median() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMedianMatchesSortedSample(t *testing.T) {
	rnd := rand.New(rand.NewSource(11))
	for trial := 0; trial < 200; trial++ {
		faces := 2 + rnd.Intn(19)
		n := 1 + rnd.Intn(40)
		counts := make([]int, faces)
		sample := make([]int, n)
		for i := range sample {
			v := rnd.Intn(faces) + 1
			sample[i] = v
			counts[v-1]++
		}
		sort.Ints(sample)
		var want string
		if n%2 == 1 {
			want = strconv.Itoa(sample[n/2])
		} else {
			want = formatHalf(sample[n/2-1], sample[n/2])
		}
		if got := Median(histogram.Die{Faces: faces, Counts: counts}); got != want {
			t.Fatalf("trial %d: Median() = %s, want %s (sample %v)", trial, got, want, sample)
		}
	}
}

func TestMedianIgnoresRecordingOrder(t *testing.T) {
	outcomes := []int{5, 1, 1, 6, 3, 3, 3, 2}
	rnd := rand.New(rand.NewSource(5))
	var first string
	for i := 0; i < 20; i++ {
		rnd.Shuffle(len(outcomes), func(a, b int) { outcomes[a], outcomes[b] = outcomes[b], outcomes[a] })
		s := histogram.New([]string{"amy"})
		if err := s.EnsureDie("amy", 6); err != nil {
			t.Fatalf("ensure: %v", err)
		}
		for _, o := range outcomes {
			if err := s.Increment("amy", 6, o); err != nil {
				t.Fatalf("increment: %v", err)
			}
		}
		h, _ := s.HistogramFor("amy")
		got := Median(h.Dice[0])
		if i == 0 {
			first = got
			continue
		}
		if got != first {
			t.Fatalf("median changed with order: %s vs %s", got, first)
		}
	}
	if first != "3" {
		t.Fatalf("expected median 3, got %s", first)
	}
}

func TestEmptyDieIsWellDefined(t *testing.T) {
	row := SummarizeDie(d(0, 0, 0, 0), model.MedianOrder)
	if !math.IsNaN(row.Mean) || FormatMean(row.Mean) != "NaN" {
		t.Fatalf("expected NaN mean, got %v", row.Mean)
	}
	if row.Median != NoMedian {
		t.Fatalf("expected no-data median, got %s", row.Median)
	}
	if !equalInts(row.MostRolled, []int{1, 2, 3, 4}) || !equalInts(row.LeastRolled, []int{1, 2, 3, 4}) {
		t.Fatalf("expected every face tied, got %v / %v", row.MostRolled, row.LeastRolled)
	}
}

func TestSummarizeOrder(t *testing.T) {
	h := histogram.Histogram{Player: "amy", Dice: []histogram.Die{
		d(make([]int, 20)...),
		d(1, 0, 0, 0, 0, 0),
		d(0, 1, 0, 0),
	}}
	discovery := Summarize(h, Options{})
	if discovery[0].Faces != 20 || discovery[1].Faces != 6 || discovery[2].Faces != 4 {
		t.Fatalf("expected discovery order, got %d %d %d", discovery[0].Faces, discovery[1].Faces, discovery[2].Faces)
	}
	numeric := Summarize(h, Options{DieOrder: model.DieOrderNumeric})
	if numeric[0].Faces != 4 || numeric[1].Faces != 6 || numeric[2].Faces != 20 {
		t.Fatalf("expected numeric order, got %d %d %d", numeric[0].Faces, numeric[1].Faces, numeric[2].Faces)
	}
	for _, row := range discovery {
		var sum int
		die, _ := h.Die(row.Faces)
		for _, c := range die.Counts {
			sum += c
		}
		if sum != row.TotalRolls {
			t.Fatalf("d%d: total %d != histogram sum %d", row.Faces, row.TotalRolls, sum)
		}
	}
}

func TestCollapse(t *testing.T) {
	tests := []struct {
		in   []int
		want []string
	}{
		{in: []int{1, 2, 3, 4, 5}, want: []string{"1-5"}},
		{in: []int{1, 2}, want: []string{"1", "2"}},
		{in: []int{1, 3, 4, 5, 7}, want: []string{"1", "3-5", "7"}},
		{in: []int{2, 3, 5, 6, 7, 8, 10, 11}, want: []string{"2", "3", "5-8", "10", "11"}},
		{in: nil, want: []string{}},
	}
	for _, tt := range tests {
		got := Collapse(tt.in)
		if len(got) != len(tt.want) {
			t.Fatalf("Collapse(%v) = %v, want %v", tt.in, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("Collapse(%v) = %v, want %v", tt.in, got, tt.want)
			}
		}
	}
}
