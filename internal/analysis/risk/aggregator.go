package risk

import (
	"math"
	"sort"

	"github.com/ledgerlens/forensic-audit-engine/internal/analysis/actor"
	"github.com/ledgerlens/forensic-audit-engine/internal/analysis/benford"
	"github.com/ledgerlens/forensic-audit-engine/internal/analysis/entropy"
	"github.com/ledgerlens/forensic-audit-engine/internal/analysis/isoforest"
	"github.com/ledgerlens/forensic-audit-engine/internal/domain/population"
	"github.com/ledgerlens/forensic-audit-engine/internal/domain/values"
)

// Signal source names on per-row contributions
const (
	SourceDigit   = "digit_pattern"
	SourceEntropy = "category_rarity"
	SourceForest  = "isolation_forest"
	SourceActor   = "actor_profile"
)

// Fixed contribution weights of each signal to the composite [0,100]
// row score. The qualitative level is taken as the maximum across
// signals; the numeric score only breaks ranking ties.
const (
	weightForest  = 35.0
	weightActor   = 25.0
	weightEntropy = 25.0
	weightDigit   = 15.0
)

// Signal is one analyzer's contribution to a row's composite risk
type Signal struct {
	Source    string           `json:"source"`
	Score     float64          `json:"score"`
	RiskLevel values.RiskLevel `json:"risk_level"`
	Detail    string           `json:"detail,omitempty"`
}

// RowRisk is the merged per-row risk verdict
type RowRisk struct {
	RowIndex  int              `json:"row_index"`
	RowID     string           `json:"row_id"`
	Score     float64          `json:"score"`
	RiskLevel values.RiskLevel `json:"risk_level"`
	Signals   []Signal         `json:"signals,omitempty"`
}

// Result holds the per-row composites in population order
type Result struct {
	Rows []RowRisk `json:"rows"`
}

// Inputs collects the independent analyzer outputs the aggregator
// merges. Any member may be zero-valued; missing signals contribute
// nothing rather than failing.
type Inputs struct {
	Benford benford.Result
	Entropy entropy.Result
	Forest  isoforest.Result
	Actors  actor.Result
}

// Aggregate merges the analyzer signals into one composite score and
// ordered risk level per row.
func Aggregate(pop population.Population, mapping population.FieldMapping, in Inputs) Result {
	result := Result{Rows: make([]RowRisk, pop.Size())}

	rareByPair := make(map[[2]string]entropy.Combination, len(in.Entropy.Anomalies))
	for _, combo := range in.Entropy.Anomalies {
		rareByPair[[2]string{combo.Category, combo.Subcategory}] = combo
	}

	forestByRow := make(map[int]isoforest.Score, len(in.Forest.Scores))
	for _, s := range in.Forest.Scores {
		forestByRow[s.RowIndex] = s
	}

	actorByRow := make(map[int]actor.Profile)
	for _, p := range in.Actors.Profiles {
		for _, idx := range p.RowIndexes {
			actorByRow[idx] = p
		}
	}

	hotDigits := overrepresentedDigits(in.Benford)

	for i, row := range pop {
		rr := RowRisk{RowIndex: i, RowID: row.ID, RiskLevel: values.RiskLow}

		if sig, ok := digitSignal(mapping.Amount(row), in.Benford, hotDigits); ok {
			rr.Signals = append(rr.Signals, sig)
		}
		if combo, ok := rareByPair[[2]string{mapping.Category(row), mapping.Subcategory(row)}]; ok {
			rr.Signals = append(rr.Signals, Signal{
				Source:    SourceEntropy,
				Score:     1 - combo.Frequency,
				RiskLevel: combo.RiskLevel,
				Detail:    combo.Category + "/" + combo.Subcategory,
			})
		}
		if fs, ok := forestByRow[i]; ok && fs.IsAnomaly {
			rr.Signals = append(rr.Signals, Signal{
				Source:    SourceForest,
				Score:     fs.Value,
				RiskLevel: fs.RiskLevel,
			})
		}
		if p, ok := actorByRow[i]; ok && p.RiskLevel > values.RiskLow {
			rr.Signals = append(rr.Signals, Signal{
				Source:    SourceActor,
				Score:     p.RiskScore / 100,
				RiskLevel: p.RiskLevel,
				Detail:    p.ActorID,
			})
		}

		for _, sig := range rr.Signals {
			rr.RiskLevel = rr.RiskLevel.Max(sig.RiskLevel)
			rr.Score += signalWeight(sig.Source) * sig.Score
		}
		rr.Score = math.Min(rr.Score, 100)
		result.Rows[i] = rr
	}
	return result
}

// Ranked returns row indexes ordered by descending risk: level first,
// composite score second, original row order as the final tiebreaker.
func (r Result) Ranked() []int {
	idx := make([]int, len(r.Rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ra, rb := r.Rows[idx[a]], r.Rows[idx[b]]
		if ra.RiskLevel != rb.RiskLevel {
			return ra.RiskLevel > rb.RiskLevel
		}
		return ra.Score > rb.Score
	})
	return idx
}

func signalWeight(source string) float64 {
	switch source {
	case SourceForest:
		return weightForest
	case SourceActor:
		return weightActor
	case SourceEntropy:
		return weightEntropy
	case SourceDigit:
		return weightDigit
	default:
		return 0
	}
}

// overrepresentedDigits finds leading digits whose observed frequency
// exceeds the Benford expectation by more than the distribution's MAD.
// Rows leading with those digits carry the digit-pattern signal when
// the column as a whole deviates.
func overrepresentedDigits(b benford.Result) map[int]float64 {
	hot := make(map[int]float64)
	if b.RiskLevel <= values.RiskLow || len(b.FirstDigit.Observed) != 9 {
		return hot
	}
	for i := 0; i < 9; i++ {
		excess := b.FirstDigit.Observed[i] - b.FirstDigit.Expected[i]
		if excess > b.FirstDigit.MAD {
			hot[i+1] = excess
		}
	}
	return hot
}

func digitSignal(amount float64, b benford.Result, hot map[int]float64) (Signal, bool) {
	if len(hot) == 0 {
		return Signal{}, false
	}
	abs := math.Abs(amount)
	if abs == 0 {
		return Signal{}, false
	}
	for abs >= 10 {
		abs /= 10
	}
	for abs < 1 {
		abs *= 10
	}
	digit := int(abs)
	excess, ok := hot[digit]
	if !ok {
		return Signal{}, false
	}
	return Signal{
		Source:    SourceDigit,
		Score:     math.Min(excess/b.FirstDigit.MAD/3, 1),
		RiskLevel: b.RiskLevel,
	}, true
}
