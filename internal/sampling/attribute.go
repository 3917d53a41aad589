package sampling

import (
	"fmt"
	"math"

	"github.com/ledgerlens/forensic-audit-engine/internal/domain/values"
)

// attributeSize computes the attribute-sampling size from the binomial
// approximation n0 = z^2 p(1-p) / (TDR - EDR)^2 with the finite
// population correction n = n0 / (1 + (n0-1)/N).
func attributeSize(populationSize int, cl values.ConfidenceLevel, params Parameters) (int, []string) {
	var notes []string

	p := params.ExpectedRate
	if p == 0 {
		// A zero expected rate degenerates the binomial variance; plan
		// on half the tolerable rate instead and say so.
		p = params.TolerableRate / 2
		notes = append(notes, fmt.Sprintf(
			"expected deviation rate of zero replaced with planning assumption %.4f", p))
	}

	z := cl.ZScore()
	spread := params.TolerableRate - params.ExpectedRate
	n0 := z * z * p * (1 - p) / (spread * spread)

	n := n0 / (1 + (n0-1)/float64(populationSize))
	size := int(math.Ceil(n))
	if size < 1 {
		size = 1
	}

	notes = append(notes, fmt.Sprintf(
		"attribute sizing: z=%.3f tolerable=%.4f expected=%.4f unadjusted=%.1f",
		z, params.TolerableRate, params.ExpectedRate, n0))
	return size, notes
}
