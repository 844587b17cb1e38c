// Package histogram keeps per-player dice outcome counters.
package histogram

import (
	"errors"
	"fmt"
	"strings"
)

// AllPlayers is the aggregate pseudo-player holding the sum of every
// real player's counters.
const AllPlayers = "All"

// MaxFaces is the largest die a histogram is allocated for.
const MaxFaces = 10000

var (
	// ErrInvalidFaces is returned for dice with fewer than two or more than
	// MaxFaces faces.
	ErrInvalidFaces = fmt.Errorf("a die needs between 2 and %d faces", MaxFaces)
	// ErrDieNotFound is returned when incrementing a die that was never ensured.
	ErrDieNotFound = errors.New("die histogram not allocated")
)

// UnknownPlayerError reports a player identifier that is not registered.
// Known lists every valid identifier in registration order.
type UnknownPlayerError struct {
	Player string
	Known  []string
}

func (e *UnknownPlayerError) Error() string {
	return fmt.Sprintf("unknown player %q (valid players: %s)", e.Player, strings.Join(e.Known, ", "))
}

// InvalidOutcomeError reports an outcome outside [1, Faces].
type InvalidOutcomeError struct {
	Faces   int
	Outcome int
}

func (e *InvalidOutcomeError) Error() string {
	return fmt.Sprintf("outcome %d is outside [1, %d]", e.Outcome, e.Faces)
}

// ValidFaces reports whether a die with faces sides can be counted.
func ValidFaces(faces int) bool {
	return faces >= 2 && faces <= MaxFaces
}

// Die is a dense frequency table. Counts[i] is the number of times outcome
// i+1 was rolled.
type Die struct {
	Faces  int
	Counts []int
}

// Count returns how often outcome was rolled, or 0 when out of range.
func (d Die) Count(outcome int) int {
	if outcome < 1 || outcome > len(d.Counts) {
		return 0
	}
	return d.Counts[outcome-1]
}

// Total returns the number of recorded outcomes.
func (d Die) Total() int {
	total := 0
	for _, c := range d.Counts {
		total += c
	}
	return total
}

// Histogram is a snapshot of one player's dice in discovery order.
type Histogram struct {
	Player string
	Dice   []Die
}

// Die returns the table for faces.
func (h Histogram) Die(faces int) (Die, bool) {
	for _, d := range h.Dice {
		if d.Faces == faces {
			return d, true
		}
	}
	return Die{}, false
}

type playerDice struct {
	order  []int
	counts map[int][]int
}

func newPlayerDice() *playerDice {
	return &playerDice{counts: map[int][]int{}}
}

// Store maps players to their dice histograms. The zero value is not
// usable; create one with New.
type Store struct {
	order   []string
	players map[string]*playerDice
}

// New returns a Store initialized with players.
func New(players []string) *Store {
	s := &Store{}
	s.Init(players)
	return s
}

// Init discards all counters and registers AllPlayers followed by players.
// Blank and duplicate names are ignored.
func (s *Store) Init(players []string) {
	s.order = []string{AllPlayers}
	s.players = map[string]*playerDice{AllPlayers: newPlayerDice()}
	for _, p := range players {
		s.Register(p)
	}
}

// Register adds a player with no dice. It reports whether the player was
// added.
func (s *Store) Register(player string) bool {
	player = strings.TrimSpace(player)
	if player == "" {
		return false
	}
	if _, ok := s.players[player]; ok {
		return false
	}
	s.order = append(s.order, player)
	s.players[player] = newPlayerDice()
	return true
}

// Has reports whether player is registered.
func (s *Store) Has(player string) bool {
	_, ok := s.players[player]
	return ok
}

// Players returns registered players in registration order, AllPlayers first.
func (s *Store) Players() []string {
	return append([]string(nil), s.order...)
}

// EnsureDie allocates a zeroed table for (player, faces) if missing.
func (s *Store) EnsureDie(player string, faces int) error {
	if !ValidFaces(faces) {
		return fmt.Errorf("%w: d%d", ErrInvalidFaces, faces)
	}
	pd, ok := s.players[player]
	if !ok {
		return s.unknown(player)
	}
	if _, ok := pd.counts[faces]; ok {
		return nil
	}
	pd.counts[faces] = make([]int, faces)
	pd.order = append(pd.order, faces)
	return nil
}

// Increment adds one occurrence of outcome to (player, faces).
func (s *Store) Increment(player string, faces, outcome int) error {
	pd, ok := s.players[player]
	if !ok {
		return s.unknown(player)
	}
	counts, ok := pd.counts[faces]
	if !ok {
		return fmt.Errorf("%w: %s d%d", ErrDieNotFound, player, faces)
	}
	if outcome < 1 || outcome > faces {
		return &InvalidOutcomeError{Faces: faces, Outcome: outcome}
	}
	counts[outcome-1]++
	return nil
}

// HistogramFor returns a copy of the player's tables.
func (s *Store) HistogramFor(player string) (Histogram, error) {
	pd, ok := s.players[player]
	if !ok {
		return Histogram{}, s.unknown(player)
	}
	h := Histogram{Player: player, Dice: make([]Die, 0, len(pd.order))}
	for _, faces := range pd.order {
		h.Dice = append(h.Dice, Die{
			Faces:  faces,
			Counts: append([]int(nil), pd.counts[faces]...),
		})
	}
	return h, nil
}

func (s *Store) unknown(player string) error {
	return &UnknownPlayerError{Player: player, Known: s.Players()}
}
