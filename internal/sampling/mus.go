package sampling

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ledgerlens/forensic-audit-engine/internal/domain/errors"
	"github.com/ledgerlens/forensic-audit-engine/internal/domain/population"
	"github.com/ledgerlens/forensic-audit-engine/internal/domain/values"
)

// expansionFactor converts the expected error into the denominator
// adjustment of the MUS sizing formula (AICPA expansion factor at the
// usual confidence levels).
const expansionFactor = 1.6

// musUnit is one selectable item in monetary-unit terms
type musUnit struct {
	rowIndex int
	value    decimal.Decimal
}

// musUnits resolves each row's monetary selection value under the
// configured zero/negative treatment. Excluded rows are reported so
// the plan can note the separate stratum.
func musUnits(pop population.Population, mapping population.FieldMapping, treatment string) (units []musUnit, excluded int) {
	for i, row := range pop {
		amount := decimal.NewFromFloat(mapping.Amount(row))
		if amount.IsZero() || amount.IsNegative() {
			if treatment == ZeroNegativeSeparate {
				excluded++
				continue
			}
			amount = amount.Abs()
			if amount.IsZero() {
				// A zero book value carries no monetary units either way.
				excluded++
				continue
			}
		}
		units = append(units, musUnit{rowIndex: i, value: amount})
	}
	return units, excluded
}

func musBookValue(units []musUnit) decimal.Decimal {
	total := decimal.Zero
	for _, u := range units {
		total = total.Add(u.value)
	}
	return total
}

// musSize computes ceil(RF x BV / (TE - 1.6 x EE)). The cap against
// degenerate parameter combinations is applied by the planner.
func musSize(pop population.Population, mapping population.FieldMapping, cl values.ConfidenceLevel, params Parameters) (int, []string, error) {
	var notes []string

	units, excluded := musUnits(pop, mapping, params.ZeroNegative)
	if excluded > 0 {
		notes = append(notes, fmt.Sprintf(
			"%d zero/negative-amount record(s) handled under %q treatment", excluded, params.ZeroNegative))
	}
	if len(units) == 0 {
		return 0, nil, errors.NewConfigurationError("NO_MONETARY_UNITS",
			"population carries no positive monetary units to sample")
	}

	denominator := params.TolerableError - expansionFactor*params.ExpectedError
	if denominator <= 0 {
		return 0, nil, errors.NewConfigurationError("EXPECTED_ERROR_TOO_LARGE",
			fmt.Sprintf("tolerable error %.2f must exceed the expected-error adjustment %.2f",
				params.TolerableError, expansionFactor*params.ExpectedError))
	}

	bookValue := musBookValue(units)
	rf := decimal.NewFromFloat(cl.ReliabilityFactor())
	numerator := rf.Mul(bookValue)
	size := int(numerator.Div(decimal.NewFromFloat(denominator)).Ceil().IntPart())
	if size < 1 {
		size = 1
	}

	notes = append(notes, fmt.Sprintf(
		"MUS sizing: RF=%.2f book_value=%s tolerable=%.2f expected=%.2f computed=%d",
		cl.ReliabilityFactor(), bookValue.StringFixed(2), params.TolerableError, params.ExpectedError, size))
	return size, notes, nil
}

// musSelect performs probability-proportional-to-size selection over
// cumulative monetary intervals: the book value splits into equal
// intervals, one sampling point lands in each, and the row covering a
// point is selected. Rows large enough to cover multiple points are
// selected once; with the top stratum enabled they are carved out and
// examined 100% instead.
func musSelect(pop population.Population, mapping population.FieldMapping, params Parameters, size int) ([]int, []string) {
	var notes []string

	units, _ := musUnits(pop, mapping, params.ZeroNegative)
	if len(units) == 0 || size <= 0 {
		return nil, notes
	}

	selected := make([]int, 0, size)
	remaining := units

	if params.TopStratum {
		bookValue := musBookValue(units)
		interval := bookValue.Div(decimal.NewFromInt(int64(size)))

		var sampled []musUnit
		for _, u := range units {
			if u.value.GreaterThanOrEqual(interval) {
				selected = append(selected, u.rowIndex)
			} else {
				sampled = append(sampled, u)
			}
		}
		if top := len(selected); top > 0 {
			notes = append(notes, fmt.Sprintf(
				"%d individually significant item(s) >= interval %s carved into the top stratum for 100%% examination",
				top, interval.StringFixed(2)))
			size -= top
			remaining = sampled
		}
	}

	if size <= 0 || len(remaining) == 0 {
		return selected, notes
	}

	bookValue := musBookValue(remaining)
	if bookValue.IsZero() {
		return selected, notes
	}
	interval := bookValue.Div(decimal.NewFromInt(int64(size)))

	rng := newRNG(params.Seed)
	start := interval.Mul(decimal.NewFromFloat(rng.Float64()))

	cumulative := decimal.Zero
	point := start
	unitIdx := 0
	picked := make(map[int]struct{})

	for hits := 0; hits < size && unitIdx < len(remaining); {
		upper := cumulative.Add(remaining[unitIdx].value)
		if point.LessThan(upper) {
			row := remaining[unitIdx].rowIndex
			if _, dup := picked[row]; !dup {
				picked[row] = struct{}{}
				selected = append(selected, row)
			}
			point = point.Add(interval)
			hits++
			continue
		}
		cumulative = upper
		unitIdx++
	}

	notes = append(notes, fmt.Sprintf(
		"PPS selection over %s of book value, sampling interval %s",
		bookValue.StringFixed(2), interval.StringFixed(2)))
	return selected, notes
}
