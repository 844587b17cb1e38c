package stats

import (
	"errors"
	"testing"

	"github.com/verte-zerg/rollstats/internal/histogram"
	"github.com/verte-zerg/rollstats/internal/model"
)

func TestBuildReport(t *testing.T) {
	st := histogram.New([]string{"amy", "bob"})
	record := func(player string, faces int, outcomes ...int) {
		for _, o := range outcomes {
			for _, p := range []string{histogram.AllPlayers, player} {
				if err := st.EnsureDie(p, faces); err != nil {
					t.Fatalf("ensure: %v", err)
				}
				if err := st.Increment(p, faces, o); err != nil {
					t.Fatalf("increment: %v", err)
				}
			}
		}
	}
	record("amy", 20, 1, 20)
	record("amy", 6, 3, 3, 4)
	record("bob", 6, 6)

	report, err := BuildReport(st, "amy", Options{DieOrder: model.DieOrderNumeric})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Rows) != 2 || report.Rows[0].Faces != 6 {
		t.Fatalf("unexpected rows: %+v", report.Rows)
	}
	if report.TotalRolls != 5 {
		t.Fatalf("expected 5 rolls, got %d", report.TotalRolls)
	}
	if report.FavoriteDie != 6 {
		t.Fatalf("expected favorite d6, got d%d", report.FavoriteDie)
	}

	all, err := BuildReport(st, histogram.AllPlayers, Options{})
	if err != nil {
		t.Fatalf("build aggregate report: %v", err)
	}
	if all.TotalRolls != 6 || all.Rows[0].Faces != 20 {
		t.Fatalf("unexpected aggregate report: %+v", all)
	}

	reports, errs := BuildReports(st, Options{})
	if len(reports) != 3 || reports[2].Player != "bob" {
		t.Fatalf("unexpected reports: %+v", reports)
	}
	for i, err := range errs {
		if err != nil {
			t.Fatalf("report %d: %v", i, err)
		}
	}

	_, err = BuildReport(st, "carl", Options{})
	var unknown *histogram.UnknownPlayerError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected unknown player error, got %v", err)
	}
}
