package dice

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// ErrNotARoll is returned when serialized data does not describe a roll.
var ErrNotARoll = errors.New("serialized data is not a roll")

type rollJSON struct {
	Class     string     `json:"class"`
	Formula   string     `json:"formula"`
	Terms     []termJSON `json:"terms"`
	Total     *float64   `json:"total,omitempty"`
	Evaluated bool       `json:"evaluated"`
}

type termJSON struct {
	Class    string       `json:"class"`
	Faces    int          `json:"faces,omitempty"`
	Number   *float64     `json:"number,omitempty"`
	Operator string       `json:"operator,omitempty"`
	Results  []resultJSON `json:"results,omitempty"`
}

type resultJSON struct {
	Result int   `json:"result"`
	Active *bool `json:"active,omitempty"`
}

// Decode parses a host-serialized roll. Term classes other than dice,
// numbers and operators are kept as Unknown so they can be skipped.
func Decode(data []byte) (Roll, error) {
	var raw rollJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return Roll{}, fmt.Errorf("failed to decode roll: %w", err)
	}
	if raw.Class != "" && raw.Class != KindRoll {
		return Roll{}, fmt.Errorf("%w: class %q", ErrNotARoll, raw.Class)
	}
	if raw.Terms == nil {
		return Roll{}, fmt.Errorf("%w: missing terms", ErrNotARoll)
	}
	roll := Roll{
		Formula: raw.Formula,
		Terms:   make([]Term, 0, len(raw.Terms)),
	}
	for _, t := range raw.Terms {
		roll.Terms = append(roll.Terms, decodeTerm(t))
	}
	return roll, nil
}

func decodeTerm(t termJSON) Term {
	switch t.Class {
	case KindDie:
		results := make([]Result, 0, len(t.Results))
		for _, r := range t.Results {
			active := true
			if r.Active != nil {
				active = *r.Active
			}
			results = append(results, Result{Value: r.Result, Active: active})
		}
		return Die{Sides: t.Faces, Results: results}
	case KindNumeric:
		value := 0.0
		if t.Number != nil {
			value = *t.Number
		}
		return Numeric{Value: value}
	case KindOperator:
		return Operator{Symbol: t.Operator}
	default:
		return Unknown{Class: t.Class}
	}
}

// Encode serializes a roll in the host's shape.
func Encode(roll Roll) ([]byte, error) {
	total := roll.Total()
	raw := rollJSON{
		Class:     KindRoll,
		Formula:   roll.Formula,
		Terms:     make([]termJSON, 0, len(roll.Terms)),
		Total:     &total,
		Evaluated: true,
	}
	if raw.Formula == "" {
		raw.Formula = BuildFormula(roll.Terms)
	}
	for _, term := range roll.Terms {
		raw.Terms = append(raw.Terms, encodeTerm(term))
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to encode roll: %w", err)
	}
	return data, nil
}

func encodeTerm(term Term) termJSON {
	switch t := term.(type) {
	case Die:
		number := float64(len(t.Results))
		results := make([]resultJSON, 0, len(t.Results))
		for _, r := range t.Results {
			active := r.Active
			results = append(results, resultJSON{Result: r.Value, Active: &active})
		}
		return termJSON{Class: KindDie, Faces: t.Sides, Number: &number, Results: results}
	case Numeric:
		value := t.Value
		return termJSON{Class: KindNumeric, Number: &value}
	case Operator:
		return termJSON{Class: KindOperator, Operator: t.Symbol}
	default:
		return termJSON{Class: term.Kind()}
	}
}
