package sampling

import (
	"fmt"
	"math"
	"sort"

	"github.com/ledgerlens/forensic-audit-engine/internal/domain/errors"
	"github.com/ledgerlens/forensic-audit-engine/internal/domain/population"
	"github.com/ledgerlens/forensic-audit-engine/internal/domain/values"
)

// stratum is one partition of the population
type stratum struct {
	name       string
	rowIndexes []int
	totalValue float64
	stdDev     float64
}

// buildStrata partitions the population by category or by monetary
// band. Amount bands are equal-count quantile bands over absolute
// amounts, which keeps band sizes balanced on skewed populations.
func buildStrata(pop population.Population, mapping population.FieldMapping, params Parameters) []stratum {
	if params.StratifyBy == StratifyByCategory && mapping.HasCategory() {
		byName := make(map[string]*stratum)
		var order []string
		for i, row := range pop {
			name := mapping.Category(row)
			s, ok := byName[name]
			if !ok {
				s = &stratum{name: name}
				byName[name] = s
				order = append(order, name)
			}
			s.rowIndexes = append(s.rowIndexes, i)
			s.totalValue += math.Abs(mapping.Amount(row))
		}
		sort.Strings(order)
		strata := make([]stratum, 0, len(order))
		for _, name := range order {
			s := *byName[name]
			s.stdDev = stratumStdDev(pop, mapping, s.rowIndexes)
			strata = append(strata, s)
		}
		return strata
	}

	// Monetary bands: sort row indexes by absolute amount and cut into
	// equal-count bands.
	idx := make([]int, pop.Size())
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return math.Abs(mapping.Amount(pop[idx[a]])) < math.Abs(mapping.Amount(pop[idx[b]]))
	})

	bands := params.Strata
	if bands > len(idx) {
		bands = len(idx)
	}
	strata := make([]stratum, 0, bands)
	per := len(idx) / bands
	for b := 0; b < bands; b++ {
		lo := b * per
		hi := lo + per
		if b == bands-1 {
			hi = len(idx)
		}
		s := stratum{name: fmt.Sprintf("band_%d", b+1)}
		for _, rowIdx := range idx[lo:hi] {
			s.rowIndexes = append(s.rowIndexes, rowIdx)
			s.totalValue += math.Abs(mapping.Amount(pop[rowIdx]))
		}
		sort.Ints(s.rowIndexes)
		s.stdDev = stratumStdDev(pop, mapping, s.rowIndexes)
		strata = append(strata, s)
	}
	return strata
}

func stratumStdDev(pop population.Population, mapping population.FieldMapping, rows []int) float64 {
	if len(rows) < 2 {
		return 0
	}
	var sum float64
	for _, i := range rows {
		sum += mapping.Amount(pop[i])
	}
	mean := sum / float64(len(rows))
	var ss float64
	for _, i := range rows {
		d := mapping.Amount(pop[i]) - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(rows)-1))
}

// stratifiedSize sizes the overall sample from whichever basis the
// caller supplied: monetary precision (variables formula) or deviation
// rates (attribute formula).
func stratifiedSize(pop population.Population, mapping population.FieldMapping, cl values.ConfidenceLevel, params Parameters) (int, []string, error) {
	if params.Precision > 0 {
		size, notes := variablesSize(pop, mapping, cl, params)
		return size, notes, nil
	}
	if params.TolerableRate > 0 {
		size, notes := attributeSize(pop.Size(), cl, params)
		return size, notes, nil
	}
	return 0, nil, errors.NewConfigurationError("MISSING_SIZE_BASIS",
		"stratified sampling requires a precision target or tolerable rate")
}

// stratifiedSelect allocates the target size across strata and samples
// each stratum by simple random selection. Proportional allocation
// follows stratum book value; Neyman allocation follows Nh x sigma_h.
// Every non-empty stratum receives at least one selection.
func stratifiedSelect(pop population.Population, mapping population.FieldMapping, params Parameters, target int) ([]int, []string, error) {
	strata := buildStrata(pop, mapping, params)
	if len(strata) == 0 {
		return nil, nil, errors.NewEmptyPopulationError()
	}

	weights := make([]float64, len(strata))
	var totalWeight float64
	for i, s := range strata {
		switch params.Allocation {
		case AllocationNeyman:
			weights[i] = float64(len(s.rowIndexes)) * s.stdDev
		default:
			weights[i] = s.totalValue
		}
		totalWeight += weights[i]
	}
	if totalWeight == 0 {
		// Degenerate weights (all-zero amounts or zero spread): fall
		// back to equal allocation rather than dividing by zero.
		for i := range weights {
			weights[i] = 1
		}
		totalWeight = float64(len(weights))
	}

	var (
		selected []int
		notes    []string
	)
	for i, s := range strata {
		share := int(math.Round(float64(target) * weights[i] / totalWeight))
		if share < 1 {
			share = 1
		}
		if share > len(s.rowIndexes) {
			share = len(s.rowIndexes)
		}

		// Derive the stratum generator from the plan seed and the
		// stratum position so allocation stays reproducible.
		rng := newRNG(params.Seed + int64(i)*1000)
		for _, pick := range simpleRandom(rng, len(s.rowIndexes), share) {
			selected = append(selected, s.rowIndexes[pick])
		}
		notes = append(notes, fmt.Sprintf(
			"stratum %q: %d row(s), value %.2f, allocated %d", s.name, len(s.rowIndexes), s.totalValue, share))
	}

	sort.Ints(selected)
	notes = append(notes, fmt.Sprintf(
		"%s allocation across %d strata (%s basis)", params.Allocation, len(strata), params.StratifyBy))
	return selected, notes, nil
}
