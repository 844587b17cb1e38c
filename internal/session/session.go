// Package session rebuilds dice statistics from the roll log and answers
// queries for one session lifetime.
package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/rollstats/internal/aggregate"
	"github.com/verte-zerg/rollstats/internal/dice"
	"github.com/verte-zerg/rollstats/internal/histogram"
	"github.com/verte-zerg/rollstats/internal/i18n"
	"github.com/verte-zerg/rollstats/internal/model"
	"github.com/verte-zerg/rollstats/internal/present"
	"github.com/verte-zerg/rollstats/internal/stats"
)

// selfTarget selects the requesting player.
const selfTarget = "me"

// RollLog is the durable source of players and rolls.
type RollLog interface {
	ListPlayers(ctx context.Context) ([]string, error)
	ListRolls(ctx context.Context) ([]model.RollRecord, error)
	InsertRoll(ctx context.Context, player string, rolledAt time.Time, roll dice.Roll) (int64, error)
}

// Session owns the histograms of one session. It is not safe for
// concurrent mutation.
type Session struct {
	log        RollLog
	logger     logrus.FieldLogger
	store      *histogram.Store
	aggregator *aggregate.Aggregator
	now        func() time.Time
}

// PlayerTable is one player's rendered statistics. Err is set when that
// player's table could not be built.
type PlayerTable struct {
	Report stats.Report
	Table  present.Table
	Err    error
}

// Start initializes the histograms from the roster and replays the log.
func Start(ctx context.Context, rollLog RollLog, logger logrus.FieldLogger) (*Session, error) {
	players, err := rollLog.ListPlayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load players: %w", err)
	}
	records, err := rollLog.ListRolls(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rolls: %w", err)
	}
	store := histogram.New(players)
	s := &Session{
		log:        rollLog,
		logger:     logger,
		store:      store,
		aggregator: aggregate.New(store, aggregate.WithLogger(logger)),
		now:        time.Now,
	}
	res := s.aggregator.ReplayHistory(records)
	logger.WithFields(logrus.Fields{
		"players":  len(store.Players()) - 1,
		"rolls":    res.Rolls,
		"recorded": res.Recorded,
		"skipped":  res.Skipped,
	}).Info("session started")
	return s, nil
}

// Record appends roll to the log and counts it.
func (s *Session) Record(ctx context.Context, player string, roll dice.Roll) (aggregate.Result, error) {
	if _, err := s.log.InsertRoll(ctx, player, s.now(), roll); err != nil {
		return aggregate.Result{}, fmt.Errorf("failed to store roll: %w", err)
	}
	return s.aggregator.RecordRoll(player, roll), nil
}

// Store exposes the histograms for read-only queries.
func (s *Session) Store() *histogram.Store {
	return s.store
}

// Players returns every identifier in registration order, All first.
func (s *Session) Players() []string {
	return s.store.Players()
}

// Resolve maps a query target to a player. An empty target or "me" (any
// case) selects requester, or All when requester is empty.
func (s *Session) Resolve(requester, target string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" || strings.EqualFold(target, selfTarget) {
		target = strings.TrimSpace(requester)
		if target == "" {
			return histogram.AllPlayers, nil
		}
	}
	if !s.store.Has(target) {
		return "", &histogram.UnknownPlayerError{Player: target, Known: s.store.Players()}
	}
	return target, nil
}

// Report summarizes one player.
func (s *Session) Report(player string, opts stats.Options) (stats.Report, error) {
	return stats.BuildReport(s.store, player, opts)
}

// Tables builds display tables for every player in registration order.
// Summaries are computed first; tables are then built in parallel.
func (s *Session) Tables(ctx context.Context, loc *i18n.Localizer, cfg model.StatsConfig) []PlayerTable {
	reports, errs := stats.BuildReports(s.store, stats.OptionsFromConfig(cfg))
	out := make([]PlayerTable, len(reports))
	g, gctx := errgroup.WithContext(ctx)
	for i := range reports {
		i := i
		out[i].Report = reports[i]
		if errs[i] != nil {
			out[i].Err = errs[i]
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				out[i].Err = err
				return nil
			}
			out[i].Table = present.Build(reports[i].Player, reports[i].Rows, loc, cfg.Collapse)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.WithError(err).Warn("table building stopped")
	}
	return out
}
