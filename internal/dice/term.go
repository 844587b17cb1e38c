// Package dice models already-evaluated roll expressions.
package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// Term kinds as named by the host's serialized rolls.
const (
	KindRoll     = "Roll"
	KindDie      = "Die"
	KindNumeric  = "NumericTerm"
	KindOperator = "OperatorTerm"
)

// Term is one node of a roll expression.
type Term interface {
	Kind() string
}

// DieTerm is the capability of a term that rolled physical dice.
type DieTerm interface {
	Term
	IsDie() bool
	Faces() int
	Outcomes() []int
}

// Result is a single die result.
type Result struct {
	Value  int
	Active bool
}

// Die is a group of dice with the same number of faces.
type Die struct {
	Sides   int
	Results []Result
}

// Kind implements Term.
func (d Die) Kind() string { return KindDie }

// IsDie implements DieTerm.
func (d Die) IsDie() bool { return true }

// Faces implements DieTerm.
func (d Die) Faces() int { return d.Sides }

// Outcomes returns every rolled value, including results the host
// discarded through keep/drop modifiers.
func (d Die) Outcomes() []int {
	out := make([]int, len(d.Results))
	for i, r := range d.Results {
		out[i] = r.Value
	}
	return out
}

// Numeric is a fixed modifier.
type Numeric struct {
	Value float64
}

// Kind implements Term.
func (n Numeric) Kind() string { return KindNumeric }

// Operator joins two terms.
type Operator struct {
	Symbol string
}

// Kind implements Term.
func (o Operator) Kind() string { return KindOperator }

// Unknown is any host term class this package does not model.
type Unknown struct {
	Class string
}

// Kind implements Term.
func (u Unknown) Kind() string { return u.Class }

// Roll is an evaluated roll expression.
type Roll struct {
	Formula string
	Terms   []Term
}

// Total sums die results and numeric terms, honoring +/- operators.
func (r Roll) Total() float64 {
	total := 0.0
	sign := 1.0
	for _, term := range r.Terms {
		switch t := term.(type) {
		case Operator:
			if t.Symbol == "-" {
				sign = -1
			} else {
				sign = 1
			}
		case Numeric:
			total += sign * t.Value
		case Die:
			for _, res := range t.Results {
				if res.Active {
					total += sign * float64(res.Value)
				}
			}
		}
	}
	return total
}

// BuildFormula renders a formula such as "3d6 + 1d20 + 2" from terms.
func BuildFormula(terms []Term) string {
	parts := make([]string, 0, len(terms))
	for _, term := range terms {
		switch t := term.(type) {
		case Die:
			parts = append(parts, fmt.Sprintf("%dd%d", len(t.Results), t.Sides))
		case Numeric:
			parts = append(parts, strconv.FormatFloat(t.Value, 'f', -1, 64))
		case Operator:
			parts = append(parts, t.Symbol)
		}
	}
	return strings.Join(parts, " ")
}
