package optimizer

import (
	"github.com/vsinha/blend/pkg/domain/entities"
)

// Prefilter returns the batches of pool that may take part in the blend, in
// pool order: available (not used, not on hold), matching the outsource
// composition switches and every enabled additional target. Batches without
// bloom are kept here; only pinning can select them.
func Prefilter(pool []entities.Batch, spec entities.TargetSpecification) []entities.Batch {
	eligible := make([]entities.Batch, 0, len(pool))
	for _, batch := range pool {
		if !batch.IsAvailable() {
			continue
		}
		if !admitsComposition(batch, spec) {
			continue
		}
		if !matchesAdditionalTargets(batch, spec.AdditionalTargets) {
			continue
		}
		eligible = append(eligible, batch)
	}
	return eligible
}

func admitsComposition(batch entities.Batch, spec entities.TargetSpecification) bool {
	switch {
	case spec.OnlyOutsource:
		return batch.IsOutsource
	case spec.IncludeOutsource:
		return true
	default:
		return !batch.IsOutsource
	}
}

func matchesAdditionalTargets(batch entities.Batch, targets []entities.AttributeTarget) bool {
	for _, target := range targets {
		if !target.Matches(batch.Quality) {
			return false
		}
	}
	return true
}
