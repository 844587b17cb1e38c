package stats

import (
	"github.com/verte-zerg/rollstats/internal/histogram"
)

// Report contains precomputed data for one player's stats rendering.
type Report struct {
	Player     string
	Histogram  histogram.Histogram
	Rows       []SummaryRow
	TotalRolls int
	// FavoriteDie is the face count rolled most often, 0 when nothing was rolled.
	FavoriteDie int
}

// BuildReport summarizes one player's histogram.
func BuildReport(st *histogram.Store, player string, opts Options) (Report, error) {
	h, err := st.HistogramFor(player)
	if err != nil {
		return Report{}, err
	}
	rows := Summarize(h, opts)
	report := Report{
		Player:    player,
		Histogram: h,
		Rows:      rows,
	}
	best := 0
	for _, row := range rows {
		report.TotalRolls += row.TotalRolls
		if row.TotalRolls > best {
			best = row.TotalRolls
			report.FavoriteDie = row.Faces
		}
	}
	return report, nil
}

// BuildReports summarizes every registered player in registration order.
// A failure for one player is kept on that player's entry.
func BuildReports(st *histogram.Store, opts Options) ([]Report, []error) {
	players := st.Players()
	reports := make([]Report, len(players))
	errs := make([]error, len(players))
	for i, p := range players {
		reports[i], errs[i] = BuildReport(st, p, opts)
		reports[i].Player = p
	}
	return reports, errs
}
