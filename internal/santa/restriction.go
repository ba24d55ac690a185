package santa

import (
	"github.com/shopspring/decimal"
)

type RestrictionKind string

const (
	KindScore        RestrictionKind = "score"
	KindEpisodes     RestrictionKind = "episodes"
	KindDuration     RestrictionKind = "duration"
	KindFullDuration RestrictionKind = "fullDuration"
)

func (k RestrictionKind) Valid() bool {
	switch k {
	case KindScore, KindEpisodes, KindDuration, KindFullDuration:
		return true
	}
	return false
}

type Operator string

const (
	GreaterThan Operator = ">"
	LessThan    Operator = "<"
)

func (o Operator) Valid() bool {
	return o == GreaterThan || o == LessThan
}

// Restriction is a numeric predicate over title metadata.
type Restriction struct {
	Kind     RestrictionKind `json:"kind"`
	Operator Operator        `json:"operator"`
	Value    decimal.Decimal `json:"value"`
}

func (r Restriction) String() string {
	return string(r.Kind) + string(r.Operator) + r.Value.String()
}

// Holds compares actual against the restriction. Equality never holds.
func (r Restriction) Holds(actual decimal.Decimal) bool {
	switch r.Operator {
	case GreaterThan:
		return actual.GreaterThan(r.Value)
	case LessThan:
		return actual.LessThan(r.Value)
	}
	return false
}
