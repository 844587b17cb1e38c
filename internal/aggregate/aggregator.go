// Package aggregate feeds evaluated rolls into a histogram store.
package aggregate

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/verte-zerg/rollstats/internal/dice"
	"github.com/verte-zerg/rollstats/internal/histogram"
	"github.com/verte-zerg/rollstats/internal/model"
)

// DiePredicate reports whether a term rolled dice and exposes its faces and
// outcomes.
type DiePredicate func(dice.Term) (dice.DieTerm, bool)

// IsDie accepts terms implementing dice.DieTerm that report IsDie.
func IsDie(term dice.Term) (dice.DieTerm, bool) {
	d, ok := term.(dice.DieTerm)
	if !ok || !d.IsDie() {
		return nil, false
	}
	return d, true
}

// Result counts outcomes handled by a record or replay call.
type Result struct {
	Rolls    int
	Recorded int
	Skipped  int
}

func (r *Result) add(other Result) {
	r.Rolls += other.Rolls
	r.Recorded += other.Recorded
	r.Skipped += other.Skipped
}

// Aggregator records die outcomes for a player and for histogram.AllPlayers.
type Aggregator struct {
	store *histogram.Store
	isDie DiePredicate
	log   logrus.FieldLogger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger used for skipped outcomes.
func WithLogger(log logrus.FieldLogger) Option {
	return func(a *Aggregator) {
		if log != nil {
			a.log = log
		}
	}
}

// WithDiePredicate replaces IsDie.
func WithDiePredicate(pred DiePredicate) Option {
	return func(a *Aggregator) {
		if pred != nil {
			a.isDie = pred
		}
	}
}

// New returns an Aggregator writing to store.
func New(store *histogram.Store, opts ...Option) *Aggregator {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	a := &Aggregator{
		store: store,
		isDie: IsDie,
		log:   discard,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RecordRoll counts every outcome of every die term in roll. Players that
// are not registered yet are added to the store. An outcome outside its
// die's range is logged and skipped on its own; the rest of the roll is
// still counted.
func (a *Aggregator) RecordRoll(player string, roll dice.Roll) Result {
	res := Result{Rolls: 1}
	player = strings.TrimSpace(player)
	if player == "" || player == histogram.AllPlayers {
		n := countOutcomes(roll, a.isDie)
		a.log.WithFields(logrus.Fields{
			"player":  player,
			"formula": roll.Formula,
		}).Warn("skipping roll without a real player")
		res.Skipped = n
		return res
	}
	if a.store.Register(player) {
		a.log.WithField("player", player).Debug("registered player from roll")
	}

	for _, term := range roll.Terms {
		die, ok := a.isDie(term)
		if !ok {
			continue
		}
		faces := die.Faces()
		outcomes := die.Outcomes()
		if !histogram.ValidFaces(faces) {
			a.log.WithFields(logrus.Fields{
				"player": player,
				"faces":  faces,
			}).WithError(histogram.ErrInvalidFaces).Warn("skipping die term")
			res.Skipped += len(outcomes)
			continue
		}
		for _, outcome := range outcomes {
			if outcome < 1 || outcome > faces {
				a.log.WithFields(logrus.Fields{
					"player":  player,
					"faces":   faces,
					"outcome": outcome,
				}).WithError(&histogram.InvalidOutcomeError{Faces: faces, Outcome: outcome}).Warn("skipping outcome")
				res.Skipped++
				continue
			}
			if err := a.record(player, faces, outcome); err != nil {
				a.log.WithFields(logrus.Fields{
					"player":  player,
					"faces":   faces,
					"outcome": outcome,
				}).WithError(err).Error("failed to record outcome")
				res.Skipped++
				continue
			}
			res.Recorded++
		}
	}
	return res
}

// ReplayHistory records rolls in order. It is not idempotent: the store
// must be freshly initialized to avoid double counting.
func (a *Aggregator) ReplayHistory(records []model.RollRecord) Result {
	var total Result
	for _, rec := range records {
		total.add(a.RecordRoll(rec.Player, rec.Roll))
	}
	a.log.WithFields(logrus.Fields{
		"rolls":    total.Rolls,
		"recorded": total.Recorded,
		"skipped":  total.Skipped,
	}).Debug("replayed roll history")
	return total
}

// record updates the aggregate and the player back to back. Both dice are
// ensured before either counter moves so a failure cannot split them.
func (a *Aggregator) record(player string, faces, outcome int) error {
	if err := a.store.EnsureDie(histogram.AllPlayers, faces); err != nil {
		return err
	}
	if err := a.store.EnsureDie(player, faces); err != nil {
		return err
	}
	if err := a.store.Increment(histogram.AllPlayers, faces, outcome); err != nil {
		return err
	}
	return a.store.Increment(player, faces, outcome)
}

func countOutcomes(roll dice.Roll, isDie DiePredicate) int {
	n := 0
	for _, term := range roll.Terms {
		if die, ok := isDie(term); ok {
			n += len(die.Outcomes())
		}
	}
	return n
}
