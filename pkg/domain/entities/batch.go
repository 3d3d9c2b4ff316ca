package entities

import (
	"fmt"
	"time"
)

const (
	// BagsPerBatch is the fixed yield of every production batch
	BagsPerBatch = 10
	// DefaultBagWeight is the per-bag weight used for display totals
	DefaultBagWeight = 250
)

// BatchID is an opaque batch identifier
type BatchID string

// Attribute names a quality attribute measured on a batch
type Attribute string

const (
	AttrBloom        Attribute = "bloom"
	AttrViscosity    Attribute = "viscosity"
	AttrPercentage   Attribute = "percentage"
	AttrPH           Attribute = "ph"
	AttrConductivity Attribute = "conductivity"
	AttrMoisture     Attribute = "moisture"
	AttrH2O2         Attribute = "h2o2"
	AttrSO2          Attribute = "so2"
	AttrColor        Attribute = "color"
	AttrClarity      Attribute = "clarity"
	AttrOdour        Attribute = "odour"
)

// IsCategorical reports whether the attribute carries a string value
func (a Attribute) IsCategorical() bool {
	switch a {
	case AttrColor, AttrClarity, AttrOdour:
		return true
	default:
		return false
	}
}

// IsKnown reports whether the attribute is one the lab measures
func (a Attribute) IsKnown() bool {
	switch a {
	case AttrBloom, AttrViscosity, AttrPercentage, AttrPH, AttrConductivity,
		AttrMoisture, AttrH2O2, AttrSO2, AttrColor, AttrClarity, AttrOdour:
		return true
	default:
		return false
	}
}

// QualityAttributes holds the lab results of a batch. Nil numbers and empty
// strings mean the attribute was not measured.
type QualityAttributes struct {
	Bloom        *float64
	Viscosity    *float64
	Percentage   *float64
	PH           *float64
	Conductivity *float64
	Moisture     *float64
	H2O2         *float64
	SO2          *float64
	Color        string
	Clarity      string
	Odour        string
}

// Numeric returns the value of a numeric attribute and whether it is present
func (q QualityAttributes) Numeric(attr Attribute) (float64, bool) {
	var v *float64
	switch attr {
	case AttrBloom:
		v = q.Bloom
	case AttrViscosity:
		v = q.Viscosity
	case AttrPercentage:
		v = q.Percentage
	case AttrPH:
		v = q.PH
	case AttrConductivity:
		v = q.Conductivity
	case AttrMoisture:
		v = q.Moisture
	case AttrH2O2:
		v = q.H2O2
	case AttrSO2:
		v = q.SO2
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// Categorical returns the value of a categorical attribute and whether it is present
func (q QualityAttributes) Categorical(attr Attribute) (string, bool) {
	var v string
	switch attr {
	case AttrColor:
		v = q.Color
	case AttrClarity:
		v = q.Clarity
	case AttrOdour:
		v = q.Odour
	}
	return v, v != ""
}

// Batch is a quality-tested production batch and the unit of blending
type Batch struct {
	ID          BatchID
	BatchNumber int
	FiscalYear  int
	IsOutsource bool
	Quality     QualityAttributes
	IsUsed      bool
	IsOnHold    bool
	UsedInOrder string
	UsedDate    *time.Time
}

// NewBatch creates a validated Batch
func NewBatch(id BatchID, batchNumber, fiscalYear int, isOutsource bool, quality QualityAttributes) (*Batch, error) {
	if string(id) == "" {
		return nil, fmt.Errorf("batch id cannot be empty")
	}
	if batchNumber <= 0 {
		return nil, fmt.Errorf("batch number must be positive, got %d", batchNumber)
	}
	if fiscalYear <= 0 {
		return nil, fmt.Errorf("fiscal year must be positive, got %d", fiscalYear)
	}

	return &Batch{
		ID:          id,
		BatchNumber: batchNumber,
		FiscalYear:  fiscalYear,
		IsOutsource: isOutsource,
		Quality:     quality,
	}, nil
}

// Bloom returns the bloom value and whether the batch carries one
func (b Batch) Bloom() (float64, bool) {
	return b.Quality.Numeric(AttrBloom)
}

// IsAvailable reports whether the batch can be offered to a blend
func (b Batch) IsAvailable() bool {
	return !b.IsUsed && !b.IsOnHold
}

// Consume marks the batch as used by the given order
func (b *Batch) Consume(order string, at time.Time) error {
	if b.IsUsed {
		return fmt.Errorf("batch %d already used in %s: %w", b.BatchNumber, b.UsedInOrder, ErrBatchUnavailable)
	}
	b.IsUsed = true
	b.UsedInOrder = order
	usedAt := at
	b.UsedDate = &usedAt
	return nil
}

// Release returns the batch to the available pool
func (b *Batch) Release() {
	b.IsUsed = false
	b.UsedInOrder = ""
	b.UsedDate = nil
}

// Float returns a pointer to v, for building QualityAttributes literals
func Float(v float64) *float64 {
	return &v
}
