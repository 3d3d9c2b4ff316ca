package entities

import (
	"fmt"
	"strings"
)

// DefaultMeanTolerance is the accepted distance from a preferred mean bloom
const DefaultMeanTolerance = 2.0

// SelectionMode represents the bloom selection strategy of an optimization
type SelectionMode int

const (
	TargetRange SelectionMode = iota
	HighLow
	RandomAverage
)

// String method for SelectionMode enum
func (m SelectionMode) String() string {
	switch m {
	case TargetRange:
		return "target-range"
	case HighLow:
		return "high-low"
	case RandomAverage:
		return "random-average"
	default:
		return "unknown"
	}
}

// ParseSelectionMode converts the wire name of a mode. An empty name selects target-range.
func ParseSelectionMode(s string) (SelectionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "target-range":
		return TargetRange, nil
	case "high-low":
		return HighLow, nil
	case "random-average":
		return RandomAverage, nil
	default:
		return TargetRange, fmt.Errorf("unknown bloom selection mode %q", s)
	}
}

// TargetKind discriminates the AttributeTarget union
type TargetKind int

const (
	NumericRange TargetKind = iota
	CategoricalMatch
)

// AttributeTarget is a per-attribute hard filter. NumericRange targets use
// Min and Max (inclusive); CategoricalMatch targets use Value.
type AttributeTarget struct {
	Attribute Attribute
	Kind      TargetKind
	Enabled   bool
	Min       float64
	Max       float64
	Value     string
}

// NewRangeTarget creates an enabled numeric range target
func NewRangeTarget(attr Attribute, min, max float64) AttributeTarget {
	return AttributeTarget{Attribute: attr, Kind: NumericRange, Enabled: true, Min: min, Max: max}
}

// NewMatchTarget creates an enabled categorical match target
func NewMatchTarget(attr Attribute, value string) AttributeTarget {
	return AttributeTarget{Attribute: attr, Kind: CategoricalMatch, Enabled: true, Value: value}
}

// Matches reports whether the quality attributes satisfy the target.
// Disabled targets match everything; a missing attribute never matches.
func (t AttributeTarget) Matches(q QualityAttributes) bool {
	if !t.Enabled {
		return true
	}
	switch t.Kind {
	case NumericRange:
		v, ok := q.Numeric(t.Attribute)
		return ok && v >= t.Min && v <= t.Max
	case CategoricalMatch:
		v, ok := q.Categorical(t.Attribute)
		return ok && strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(t.Value))
	default:
		return false
	}
}

// TargetSpecification describes what a blend must achieve. It is treated as
// immutable for the duration of an optimization.
type TargetSpecification struct {
	BloomMin            float64
	BloomMax            float64
	MeanBloom           *float64
	Mode                SelectionMode
	TargetBags          int
	IncludeOutsource    bool
	OnlyOutsource       bool
	AdditionalTargets   []AttributeTarget
	PreSelectedBatchIDs []BatchID
	FiscalYear          int
}

// RequiredBatches returns the number of batches that fill TargetBags exactly
func (s TargetSpecification) RequiredBatches() int {
	return s.TargetBags / BagsPerBatch
}

// MeanTarget returns the bloom the cumulative mean should converge to:
// the preferred mean when given, otherwise the midpoint of the range.
func (s TargetSpecification) MeanTarget() float64 {
	if s.MeanBloom != nil {
		return *s.MeanBloom
	}
	return (s.BloomMin + s.BloomMax) / 2
}

// InRange reports whether a bloom value lies inside [BloomMin, BloomMax]
func (s TargetSpecification) InRange(bloom float64) bool {
	return bloom >= s.BloomMin && bloom <= s.BloomMax
}
