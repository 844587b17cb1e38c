// Package stats contains dice statistics and text reporting.
package stats

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/verte-zerg/rollstats/internal/histogram"
	"github.com/verte-zerg/rollstats/internal/model"
)

// NoMedian is the median shown for a die with no recorded outcomes.
const NoMedian = "-1"

// Options selects row ordering and the median convention.
type Options struct {
	DieOrder string
	Median   string
}

// OptionsFromConfig extracts summary options from the stats config.
func OptionsFromConfig(cfg model.StatsConfig) Options {
	return Options{DieOrder: cfg.DieOrder, Median: cfg.Median}
}

// SummaryRow describes one die of one player's histogram.
type SummaryRow struct {
	Faces       int
	TotalRolls  int
	Mean        float64
	Median      string
	MostRolled  []int
	LeastRolled []int
}

// Summarize returns one row per die. Rows follow the order in which the
// dice were first rolled unless opts.DieOrder is model.DieOrderNumeric.
func Summarize(h histogram.Histogram, opts Options) []SummaryRow {
	rows := make([]SummaryRow, 0, len(h.Dice))
	for _, d := range h.Dice {
		rows = append(rows, SummarizeDie(d, opts.Median))
	}
	if opts.DieOrder == model.DieOrderNumeric {
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].Faces < rows[j].Faces
		})
	}
	return rows
}

// SummarizeDie computes the descriptive statistics of one die.
func SummarizeDie(d histogram.Die, medianMode string) SummaryRow {
	row := SummaryRow{
		Faces:      d.Faces,
		TotalRolls: d.Total(),
		Mean:       Mean(d),
	}
	if medianMode == model.MedianLegacy {
		row.Median = LegacyMedian(d)
	} else {
		row.Median = Median(d)
	}
	row.MostRolled, row.LeastRolled = Extremes(d)
	return row
}

// Mean returns the average outcome, or NaN when nothing was rolled.
func Mean(d histogram.Die) float64 {
	total := 0
	sum := 0
	for i, c := range d.Counts {
		total += c
		sum += (i + 1) * c
	}
	if total == 0 {
		return math.NaN()
	}
	return float64(sum) / float64(total)
}

// FormatMean renders a mean with two decimals.
func FormatMean(mean float64) string {
	if math.IsNaN(mean) {
		return "NaN"
	}
	return fmt.Sprintf("%.2f", mean)
}

// Median returns the middle outcome of the recorded multiset. For an even
// number of rolls it averages the two middle outcomes and drops a trailing
// ".0". An empty die yields NoMedian.
func Median(d histogram.Die) string {
	total := d.Total()
	if total == 0 {
		return NoMedian
	}
	half := total / 2
	if total%2 == 1 {
		return strconv.Itoa(nthOutcome(d, half+1))
	}
	lo := nthOutcome(d, half)
	hi := nthOutcome(d, half+1)
	return formatHalf(lo, hi)
}

// LegacyMedian reproduces the older cumulative walk. The even case averages
// the first outcomes whose running count reaches half-1 and half; the odd
// case takes the first outcome reaching half.
func LegacyMedian(d histogram.Die) string {
	total := d.Total()
	if total == 0 {
		return NoMedian
	}
	half := total / 2
	running := 0
	if total%2 == 0 {
		first, second := -1, -1
		for i, c := range d.Counts {
			running += c
			if running >= half-1 && first == -1 {
				first = i + 1
			}
			if running >= half {
				second = i + 1
				break
			}
		}
		return formatHalf(first, second)
	}
	for i, c := range d.Counts {
		running += c
		if running >= half {
			return strconv.Itoa(i + 1)
		}
	}
	return NoMedian
}

// nthOutcome returns the outcome at 1-based position n of the sorted
// multiset described by d.
func nthOutcome(d histogram.Die, n int) int {
	running := 0
	for i, c := range d.Counts {
		running += c
		if running >= n {
			return i + 1
		}
	}
	return len(d.Counts)
}

func formatHalf(a, b int) string {
	s := strconv.FormatFloat(float64(a+b)/2, 'f', 1, 64)
	return strings.TrimSuffix(s, ".0")
}

// Extremes returns the outcomes with the highest and the lowest count, in
// ascending order. Ties keep every tied outcome.
func Extremes(d histogram.Die) (most, least []int) {
	if len(d.Counts) == 0 {
		return nil, nil
	}
	maxCount, minCount := d.Counts[0], d.Counts[0]
	for _, c := range d.Counts[1:] {
		if c > maxCount {
			maxCount = c
		}
		if c < minCount {
			minCount = c
		}
	}
	for i, c := range d.Counts {
		if c == maxCount {
			most = append(most, i+1)
		}
		if c == minCount {
			least = append(least, i+1)
		}
	}
	return most, least
}
