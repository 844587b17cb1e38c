// Package present converts summary rows into localized display tables.
package present

import (
	"strconv"
	"strings"

	"github.com/verte-zerg/rollstats/internal/i18n"
	"github.com/verte-zerg/rollstats/internal/stats"
)

// Header keys in column order.
var headerKeys = []string{
	"headers.die",
	"headers.totalRolls",
	"headers.average",
	"headers.median",
	"headers.mostRolled",
	"headers.leastRolled",
}

// Column indexes.
const (
	ColDie = iota
	ColTotalRolls
	ColAverage
	ColMedian
	ColMostRolled
	ColLeastRolled
)

// Table is one player's display-ready statistics.
type Table struct {
	Player  string
	Headers []string
	Rows    [][]string
	// Faces holds the face count of each row.
	Faces []int
}

// Build renders rows with localized headers and die labels. When collapse
// is set, runs of three or more consecutive values become ranges.
func Build(player string, rows []stats.SummaryRow, loc *i18n.Localizer, collapse bool) Table {
	t := Table{
		Player:  player,
		Headers: Headers(loc),
		Rows:    make([][]string, 0, len(rows)),
		Faces:   make([]int, 0, len(rows)),
	}
	for _, row := range rows {
		t.Rows = append(t.Rows, []string{
			DieLabel(loc, row.Faces),
			strconv.Itoa(row.TotalRolls),
			stats.FormatMean(row.Mean),
			row.Median,
			formatList(row.MostRolled, collapse),
			formatList(row.LeastRolled, collapse),
		})
		t.Faces = append(t.Faces, row.Faces)
	}
	return t
}

// Headers returns the localized column titles.
func Headers(loc *i18n.Localizer) []string {
	out := make([]string, len(headerKeys))
	for i, key := range headerKeys {
		out[i] = loc.T(key)
	}
	return out
}

// DieLabel returns the localized die name, "d20" in English.
func DieLabel(loc *i18n.Localizer, faces int) string {
	return loc.Tf("die.label", faces)
}

func formatList(values []int, collapse bool) string {
	if collapse {
		return strings.Join(stats.Collapse(values), ", ")
	}
	return strings.Join(stats.FormatValues(values), ", ")
}
