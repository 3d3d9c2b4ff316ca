// Package optimizer selects production batches for a blend so that the
// blend meets a bag count and a bloom range.
//
// Optimize is a pure function of its inputs: it never mutates the pool, and
// for the target-range and high-low modes the same pool order and target
// always yield the same selection. Random-average mode randomizes only the
// order in which equally eligible candidates are tried.
package optimizer

import (
	"fmt"
	"math/rand/v2"

	"github.com/vsinha/blend/pkg/application/dto"
	"github.com/vsinha/blend/pkg/domain/entities"
)

// DefaultMaxAttempts caps the random draws of random-average mode
const DefaultMaxAttempts = 1000

// Optimizer runs blend selections. It holds configuration only and is safe
// for concurrent use.
type Optimizer struct {
	maxAttempts   int
	bagWeight     float64
	meanTolerance float64
	seed          *uint64
}

// Option configures an Optimizer
type Option func(*Optimizer)

// WithMaxAttempts sets the random-average draw cap
func WithMaxAttempts(n int) Option {
	return func(o *Optimizer) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// WithBagWeight sets the per-bag weight used for TotalWeight
func WithBagWeight(w float64) Option {
	return func(o *Optimizer) {
		if w > 0 {
			o.bagWeight = w
		}
	}
}

// WithMeanTolerance sets the accepted distance from a preferred mean bloom
func WithMeanTolerance(t float64) Option {
	return func(o *Optimizer) {
		if t >= 0 {
			o.meanTolerance = t
		}
	}
}

// WithSeed makes random-average runs reproducible
func WithSeed(seed uint64) Option {
	return func(o *Optimizer) {
		o.seed = &seed
	}
}

// New creates an optimizer with default settings
func New(opts ...Option) *Optimizer {
	o := &Optimizer{
		maxAttempts:   DefaultMaxAttempts,
		bagWeight:     entities.DefaultBagWeight,
		meanTolerance: entities.DefaultMeanTolerance,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Optimize selects batches from pool to satisfy spec.
//
// spec is assumed to have passed caller-side validation. Shortfalls are
// reported through Warning and relaxed strategies through
// OptimizationStatus; Optimize never fails.
func (o *Optimizer) Optimize(pool []entities.Batch, spec entities.TargetSpecification) dto.OptimizationResult {
	eligible := Prefilter(pool, spec)
	if len(eligible) == 0 {
		result := dto.Empty(
			"No batches selected",
			fmt.Sprintf("No eligible batches found for fiscal year %d with the requested filters", spec.FiscalYear),
		)
		result.Message += pinNote(distinctPins(spec.PreSelectedBatchIDs))
		return result
	}

	sel := newSelection(spec)
	candidates, missingPins := sel.pin(eligible)

	remaining := spec.RequiredBatches() - len(sel.batches)
	if remaining > 0 {
		switch spec.Mode {
		case entities.HighLow:
			selectHighLow(sel, candidates, remaining)
		case entities.RandomAverage:
			selectRandomAverage(sel, candidates, remaining, o.meanTolerance, o.maxAttempts, o.rng())
		default:
			selectTargetRange(sel, candidates, remaining)
		}
	}

	result := buildResult(sel, o.bagWeight)
	o.finalize(&result, sel, remaining, missingPins)
	return result
}

// finalize adds the warnings that depend on the aggregate outcome
func (o *Optimizer) finalize(result *dto.OptimizationResult, sel *selection, remaining, missingPins int) {
	spec := sel.spec

	result.Message += pinNote(missingPins)

	if len(result.SelectedBatches) == 0 {
		if result.Warning == "" {
			result.Warning = "No batches could be selected for the requested bloom targets"
		}
		return
	}

	if result.AverageBloom == nil || result.Warning != "" || result.OptimizationStatus != "" {
		return
	}

	avg := *result.AverageBloom
	if remaining <= 0 {
		if !spec.InRange(avg) {
			result.Warning = fmt.Sprintf(
				"Manually selected batches average bloom %s, outside target range %g-%g",
				formatBloom(avg), spec.BloomMin, spec.BloomMax,
			)
		}
		return
	}

	if spec.Mode == entities.RandomAverage && spec.MeanBloom != nil {
		if !withinTolerance(avg, *spec.MeanBloom, o.meanTolerance) {
			result.Warning = fmt.Sprintf(
				"Average bloom %s is outside preferred mean %g ± %g",
				formatBloom(avg), *spec.MeanBloom, o.meanTolerance,
			)
		}
		return
	}

	if !spec.InRange(avg) {
		result.Warning = fmt.Sprintf(
			"Average bloom %s is outside target range %g-%g",
			formatBloom(avg), spec.BloomMin, spec.BloomMax,
		)
	}
}

// rng returns a fresh generator per call so concurrent runs never share state
func (o *Optimizer) rng() *rand.Rand {
	if o.seed != nil {
		return rand.New(rand.NewPCG(*o.seed, *o.seed^0x9e3779b97f4a7c15))
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// pinNote reports pinned ids that did not survive pre-filtering
func pinNote(missing int) string {
	if missing == 0 {
		return ""
	}
	return fmt.Sprintf("; %d pinned %s not eligible", missing, plural(missing, "batch was", "batches were"))
}

func distinctPins(ids []entities.BatchID) int {
	seen := make(map[entities.BatchID]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	return len(seen)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
