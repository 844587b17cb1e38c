package dice

import (
	"errors"
	"math/rand"
	"time"
)

var (
	// ErrMissingDice is returned when no dice specs are provided.
	ErrMissingDice = errors.New("at least one die is required")
	// ErrInvalidDiceSpec is returned for specs with fewer than two sides or no dice.
	ErrInvalidDiceSpec = errors.New("dice spec needs at least 2 sides and 1 die")
)

// Spec asks for Count dice with Sides faces.
type Spec struct {
	Sides int
	Count int
}

// Roller produces evaluated rolls.
type Roller struct {
	rnd *rand.Rand
}

// NewRoller returns a Roller seeded with the current time.
func NewRoller() *Roller {
	return NewSeededRoller(time.Now().UnixNano())
}

// NewSeededRoller returns a deterministic Roller. The same seed and specs
// always produce the same roll.
func NewSeededRoller(seed int64) *Roller {
	return &Roller{rnd: rand.New(rand.NewSource(seed))}
}

// Roll rolls the specs in order and appends modifier as a numeric term
// when it is non-zero.
func (r *Roller) Roll(specs []Spec, modifier int) (Roll, error) {
	if len(specs) == 0 {
		return Roll{}, ErrMissingDice
	}
	terms := make([]Term, 0, len(specs)*2+1)
	for i, spec := range specs {
		if spec.Sides < 2 || spec.Count <= 0 {
			return Roll{}, ErrInvalidDiceSpec
		}
		if i > 0 {
			terms = append(terms, Operator{Symbol: "+"})
		}
		results := make([]Result, spec.Count)
		for j := range results {
			results[j] = Result{Value: r.rnd.Intn(spec.Sides) + 1, Active: true}
		}
		terms = append(terms, Die{Sides: spec.Sides, Results: results})
	}
	switch {
	case modifier > 0:
		terms = append(terms, Operator{Symbol: "+"}, Numeric{Value: float64(modifier)})
	case modifier < 0:
		terms = append(terms, Operator{Symbol: "-"}, Numeric{Value: float64(-modifier)})
	}
	return Roll{Formula: BuildFormula(terms), Terms: terms}, nil
}

// SpecsFromFaces groups consecutive equal face counts, so 6,6,20 becomes
// 2d6 and 1d20.
func SpecsFromFaces(faces []int) []Spec {
	var specs []Spec
	for _, f := range faces {
		if n := len(specs); n > 0 && specs[n-1].Sides == f {
			specs[n-1].Count++
			continue
		}
		specs = append(specs, Spec{Sides: f, Count: 1})
	}
	return specs
}
