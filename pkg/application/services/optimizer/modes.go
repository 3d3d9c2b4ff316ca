package optimizer

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/vsinha/blend/pkg/application/dto"
)

// selectTargetRange takes in-range candidates, closest to the preferred mean
// first when one is given, otherwise in batch-number order.
func selectTargetRange(s *selection, candidates []candidate, remaining int) {
	inRange := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if s.spec.InRange(c.bloom) {
			inRange = append(inRange, c)
		}
	}

	if s.spec.MeanBloom != nil {
		mean := *s.spec.MeanBloom
		sort.SliceStable(inRange, func(i, j int) bool {
			return math.Abs(inRange[i].bloom-mean) < math.Abs(inRange[j].bloom-mean)
		})
	}

	take := min(remaining, len(inRange))
	for _, c := range inRange[:take] {
		s.add(c.batch, false)
	}

	if take < remaining {
		s.warning = fmt.Sprintf(
			"Only %d of %d batches available in bloom range %g-%g",
			take, remaining, s.spec.BloomMin, s.spec.BloomMax,
		)
	}
}

// selectHighLow blends batches below and above the range so the running mean
// converges on the target. While both groups have candidates, each step takes
// the candidate from either group that leaves the cumulative mean closest to
// the target; on equal distance the group on the far side of the current mean
// wins. When a group is empty or runs out, the remaining slots are filled by
// best fit over everything left, in-range batches included; the optimization
// status names the relaxation and where the filled batches lie.
func selectHighLow(s *selection, candidates []candidate, remaining int) {
	target := s.spec.MeanTarget()

	var low, high, inRange []candidate
	for _, c := range candidates {
		switch {
		case c.bloom < s.spec.BloomMin:
			low = append(low, c)
		case c.bloom > s.spec.BloomMax:
			high = append(high, c)
		default:
			inRange = append(inRange, c)
		}
	}

	lowEmpty, highEmpty := len(low) == 0, len(high) == 0

	picked := 0
	for picked < remaining && len(low) > 0 && len(high) > 0 {
		li, lowDist := bestMove(s, low, target)
		hi, highDist := bestMove(s, high, target)

		takeHigh := highDist < lowDist
		if highDist == lowDist {
			mean, ok := s.mean()
			takeHigh = !ok || mean <= target
		}

		if takeHigh {
			s.add(high[hi].batch, false)
			high = removeAt(high, hi)
		} else {
			s.add(low[li].batch, false)
			low = removeAt(low, li)
		}
		picked++
	}

	if picked == remaining {
		return
	}

	var reason string
	switch {
	case lowEmpty && highEmpty:
		reason = "No batches outside the target range"
	case lowEmpty:
		reason = "No low-bloom batches available"
	case highEmpty:
		reason = "No high-bloom batches available"
	case len(low) == 0:
		reason = fmt.Sprintf("Low-bloom batches exhausted after %d picks", picked)
	default:
		reason = fmt.Sprintf("High-bloom batches exhausted after %d picks", picked)
	}

	rest := make([]candidate, 0, len(low)+len(high)+len(inRange))
	rest = append(rest, low...)
	rest = append(rest, high...)
	rest = append(rest, inRange...)
	before := len(s.batches)
	added := fillBestFit(s, rest, remaining-picked)
	picked += added

	s.status = reason
	if added > 0 {
		s.status += "; " + describeFill(s, s.batches[before:])
	}

	if picked < remaining {
		s.warning = fmt.Sprintf("Only %d of %d batches available for high-low blending", picked, remaining)
	}
}

// describeFill states where the best-fit batches of a relaxed high-low
// selection lie relative to the target range
func describeFill(s *selection, filled []dto.SelectedBatch) string {
	var below, within, above int
	for _, sb := range filled {
		bloom, _ := sb.Batch.Bloom()
		switch {
		case bloom < s.spec.BloomMin:
			below++
		case bloom > s.spec.BloomMax:
			above++
		default:
			within++
		}
	}

	parts := make([]string, 0, 3)
	if below > 0 {
		parts = append(parts, fmt.Sprintf("%d below range", below))
	}
	if within > 0 {
		parts = append(parts, fmt.Sprintf("%d in range", within))
	}
	if above > 0 {
		parts = append(parts, fmt.Sprintf("%d above range", above))
	}
	return fmt.Sprintf("%d %s filled by best fit: %s",
		len(filled), plural(len(filled), "slot", "slots"), strings.Join(parts, ", "))
}

// selectRandomAverage draws candidates in random order and keeps a draw only
// if the cumulative mean stays inside the band: the target range, or the
// preferred mean ± tolerance when one is given. Rejected candidates stay in
// the pool for later rounds. A round in which every remaining candidate is
// rejected, or hitting maxAttempts draws, ends the random phase; any slots
// left are then filled by best fit and a warning is set.
func selectRandomAverage(s *selection, candidates []candidate, remaining int, tolerance float64, maxAttempts int, rng *rand.Rand) {
	accept := func(mean float64) bool {
		if s.spec.MeanBloom != nil {
			return withinTolerance(mean, *s.spec.MeanBloom, tolerance)
		}
		return s.spec.InRange(mean)
	}

	pool := append([]candidate(nil), candidates...)
	picked, attempts := 0, 0

draw:
	for picked < remaining && len(pool) > 0 {
		for _, idx := range rng.Perm(len(pool)) {
			if attempts >= maxAttempts {
				break draw
			}
			attempts++
			if accept(s.meanWith(pool[idx].bloom)) {
				s.add(pool[idx].batch, false)
				pool = removeAt(pool, idx)
				picked++
				continue draw
			}
		}
		break
	}

	if picked == remaining {
		return
	}

	if len(pool) == 0 {
		s.warning = fmt.Sprintf("Only %d of %d batches available for random-average selection", picked, remaining)
		return
	}

	band := fmt.Sprintf("%g-%g", s.spec.BloomMin, s.spec.BloomMax)
	if s.spec.MeanBloom != nil {
		band = fmt.Sprintf("%g ± %g", *s.spec.MeanBloom, tolerance)
	}
	added := fillBestFit(s, pool, remaining-picked)
	s.warning = fmt.Sprintf(
		"Random-average could not keep the average bloom within %s after %d attempts; %d %s added by best fit",
		band, attempts, added, plural(added, "batch", "batches"),
	)
	if picked+added < remaining {
		s.warning += fmt.Sprintf("; only %d of %d batches available", picked+added, remaining)
	}
}
