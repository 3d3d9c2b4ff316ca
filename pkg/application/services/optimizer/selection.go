package optimizer

import (
	"math"
	"sort"

	"github.com/vsinha/blend/pkg/application/dto"
	"github.com/vsinha/blend/pkg/domain/entities"
)

// candidate is an eligible, unpinned batch that carries a bloom value
type candidate struct {
	batch entities.Batch
	bloom float64
}

// selection accumulates the chosen batches and the running bloom mean
type selection struct {
	spec       entities.TargetSpecification
	batches    []dto.SelectedBatch
	bloomSum   float64
	bloomCount int
	warning    string
	status     string
}

func newSelection(spec entities.TargetSpecification) *selection {
	return &selection{
		spec:    spec,
		batches: make([]dto.SelectedBatch, 0, spec.RequiredBatches()),
	}
}

// pin adds every eligible pinned batch and returns the remaining bloom-bearing
// candidates ordered by batch number, plus the number of pinned ids that were
// not eligible.
func (s *selection) pin(eligible []entities.Batch) ([]candidate, int) {
	byID := make(map[entities.BatchID]entities.Batch, len(eligible))
	for _, batch := range eligible {
		byID[batch.ID] = batch
	}

	pinned := make(map[entities.BatchID]bool, len(s.spec.PreSelectedBatchIDs))
	missing := make(map[entities.BatchID]bool)
	for _, id := range s.spec.PreSelectedBatchIDs {
		if pinned[id] {
			continue
		}
		batch, ok := byID[id]
		if !ok {
			missing[id] = true
			continue
		}
		pinned[id] = true
		s.add(batch, true)
	}

	candidates := make([]candidate, 0, len(eligible)-len(pinned))
	for _, batch := range eligible {
		if pinned[batch.ID] {
			continue
		}
		bloom, ok := batch.Bloom()
		if !ok {
			continue
		}
		candidates = append(candidates, candidate{batch: batch, bloom: bloom})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].batch.BatchNumber != candidates[j].batch.BatchNumber {
			return candidates[i].batch.BatchNumber < candidates[j].batch.BatchNumber
		}
		return candidates[i].batch.ID < candidates[j].batch.ID
	})

	return candidates, len(missing)
}

func (s *selection) add(batch entities.Batch, pinned bool) {
	s.batches = append(s.batches, dto.SelectedBatch{
		Batch:       batch,
		Bags:        entities.BagsPerBatch,
		IsOutsource: batch.IsOutsource,
		Pinned:      pinned,
	})
	if bloom, ok := batch.Bloom(); ok {
		s.bloomSum += bloom
		s.bloomCount++
	}
}

// mean returns the current bloom mean and whether any selected batch has bloom
func (s *selection) mean() (float64, bool) {
	if s.bloomCount == 0 {
		return 0, false
	}
	return s.bloomSum / float64(s.bloomCount), true
}

// meanWith returns the bloom mean after adding a batch with the given bloom
func (s *selection) meanWith(bloom float64) float64 {
	return (s.bloomSum + bloom) / float64(s.bloomCount+1)
}

// distanceWith is how far the mean would be from target after adding bloom
func (s *selection) distanceWith(bloom, target float64) float64 {
	return math.Abs(s.meanWith(bloom) - target)
}

// bestMove returns the index of the candidate whose inclusion brings the mean
// closest to target. Ties go to the bloom closest to target, then to the
// earlier candidate.
func bestMove(s *selection, candidates []candidate, target float64) (int, float64) {
	best := -1
	bestDist := math.Inf(1)
	for i, c := range candidates {
		dist := s.distanceWith(c.bloom, target)
		if dist < bestDist {
			best, bestDist = i, dist
			continue
		}
		if dist == bestDist && math.Abs(c.bloom-target) < math.Abs(candidates[best].bloom-target) {
			best = i
		}
	}
	return best, bestDist
}

// fillBestFit greedily adds up to n candidates, each time taking the one that
// keeps the mean closest to target. It returns how many were added.
func fillBestFit(s *selection, pool []candidate, n int) int {
	target := s.spec.MeanTarget()
	rest := append([]candidate(nil), pool...)
	added := 0
	for added < n && len(rest) > 0 {
		idx, _ := bestMove(s, rest, target)
		s.add(rest[idx].batch, false)
		rest = removeAt(rest, idx)
		added++
	}
	return added
}

func removeAt(candidates []candidate, idx int) []candidate {
	return append(candidates[:idx], candidates[idx+1:]...)
}

func withinTolerance(v, target, tolerance float64) bool {
	return math.Abs(v-target) <= tolerance+1e-9
}
