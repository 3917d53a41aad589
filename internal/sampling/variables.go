package sampling

import (
	"fmt"
	"math"

	"github.com/ledgerlens/forensic-audit-engine/internal/domain/population"
	"github.com/ledgerlens/forensic-audit-engine/internal/domain/values"
)

// minVariablesSize is the floor applied when estimated variance is
// degenerate; a zero variance must not zero out (or blow up) the size.
const minVariablesSize = 30

// amountStdDev estimates the population standard deviation of the
// amount column (n-1 denominator).
func amountStdDev(pop population.Population, mapping population.FieldMapping) float64 {
	n := pop.Size()
	if n < 2 {
		return 0
	}
	var sum float64
	for _, row := range pop {
		sum += mapping.Amount(row)
	}
	mean := sum / float64(n)

	var ss float64
	for _, row := range pop {
		d := mapping.Amount(row) - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// variablesSize computes the mean-per-unit classical variables size
// n0 = (N x z x sd / A)^2 with finite population correction, where A
// is the monetary precision target.
func variablesSize(pop population.Population, mapping population.FieldMapping, cl values.ConfidenceLevel, params Parameters) (int, []string) {
	var notes []string
	n := float64(pop.Size())

	sd := params.StdDev
	if sd == 0 {
		sd = amountStdDev(pop, mapping)
		notes = append(notes, fmt.Sprintf("standard deviation estimated from population: %.4f", sd))
	}

	if sd < 1e-9 {
		size := minVariablesSize
		if size > pop.Size() {
			size = pop.Size()
		}
		notes = append(notes, fmt.Sprintf(
			"estimated variance is degenerate (zero spread); floor size %d applied", size))
		return size, notes
	}

	z := cl.ZScore()
	n0 := math.Pow(n*z*sd/params.Precision, 2)
	size := int(math.Ceil(n0 / (1 + n0/n)))
	if size < minVariablesSize {
		notes = append(notes, fmt.Sprintf(
			"computed size %d raised to methodology floor %d", size, minVariablesSize))
		size = minVariablesSize
	}
	if size > pop.Size() {
		size = pop.Size()
	}

	notes = append(notes, fmt.Sprintf(
		"variables sizing: z=%.3f sd=%.4f precision=%.2f", z, sd, params.Precision))
	return size, notes
}
