package sequence

import (
	"fmt"
	"sort"

	"github.com/ledgerlens/forensic-audit-engine/internal/domain/population"
	"github.com/ledgerlens/forensic-audit-engine/internal/domain/values"
)

// Config holds the sequential-integrity analyzer tunables. The risk
// cutoffs are configuration, not contract; defaults are the ones the
// audit methodology team signed off on.
type Config struct {
	// LowMax is the largest gap size still classified LOW.
	LowMax int64 `json:"low_max"`
	// MediumMax is the largest gap size still classified MEDIUM.
	MediumMax int64 `json:"medium_max"`
	// MissingIDSampleCap bounds how many missing ids are materialized
	// per gap; huge gaps report their count plus this bounded sample.
	MissingIDSampleCap int `json:"missing_id_sample_cap"`
}

// DefaultConfig returns the documented analyzer defaults
func DefaultConfig() Config {
	return Config{LowMax: 1, MediumMax: 5, MissingIDSampleCap: 50}
}

// Gap is one detected break in the document sequence
type Gap struct {
	Start      int64            `json:"start"`
	End        int64            `json:"end"`
	Size       int64            `json:"size"`
	MissingIDs []int64          `json:"missing_ids"`
	Truncated  bool             `json:"truncated"`
	RiskLevel  values.RiskLevel `json:"risk_level"`
}

// Result is the sequential-integrity analysis output
type Result struct {
	TotalIDs     int              `json:"total_ids"`
	ParsedIDs    int              `json:"parsed_ids"`
	MinSequence  int64            `json:"min_sequence"`
	MaxSequence  int64            `json:"max_sequence"`
	Gaps         []Gap            `json:"gaps"`
	TotalGaps    int              `json:"total_gaps"`
	TotalMissing int64            `json:"total_missing"`
	LargestGap   int64            `json:"largest_gap"`
	RiskLevel    values.RiskLevel `json:"risk_level"`
	PatternNotes []string         `json:"pattern_notes,omitempty"`
}

// Analyze walks the present document sequence numbers in ascending
// order and records every break. IDs that carry no usable sequence are
// counted but otherwise ignored, never fatal.
func Analyze(pop population.Population, mapping population.FieldMapping, cfg Config) Result {
	if cfg.LowMax <= 0 {
		cfg = DefaultConfig()
	}
	if cfg.MissingIDSampleCap <= 0 {
		cfg.MissingIDSampleCap = DefaultConfig().MissingIDSampleCap
	}

	result := Result{TotalIDs: pop.Size(), RiskLevel: values.RiskLow}

	seen := make(map[int64]struct{})
	var present []int64
	for _, row := range pop {
		seq, ok := mapping.Sequence(row)
		if !ok {
			continue
		}
		result.ParsedIDs++
		v := seq.Value()
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		present = append(present, v)
	}

	if len(present) < 2 {
		return result
	}

	sort.Slice(present, func(i, j int) bool { return present[i] < present[j] })
	result.MinSequence = present[0]
	result.MaxSequence = present[len(present)-1]

	for i := 0; i+1 < len(present); i++ {
		current, next := present[i], present[i+1]
		size := next - current - 1
		if size <= 0 {
			continue
		}
		gap := Gap{
			Start:     current + 1,
			End:       next - 1,
			Size:      size,
			RiskLevel: classifyGap(size, cfg),
		}
		sample := size
		if sample > int64(cfg.MissingIDSampleCap) {
			sample = int64(cfg.MissingIDSampleCap)
			gap.Truncated = true
		}
		gap.MissingIDs = make([]int64, 0, sample)
		for id := gap.Start; id < gap.Start+sample; id++ {
			gap.MissingIDs = append(gap.MissingIDs, id)
		}

		result.Gaps = append(result.Gaps, gap)
		result.TotalMissing += size
		if size > result.LargestGap {
			result.LargestGap = size
		}
		result.RiskLevel = result.RiskLevel.Max(gap.RiskLevel)
	}
	result.TotalGaps = len(result.Gaps)

	result.PatternNotes = describePatterns(result, len(present))
	return result
}

func classifyGap(size int64, cfg Config) values.RiskLevel {
	switch {
	case size <= cfg.LowMax:
		return values.RiskLow
	case size <= cfg.MediumMax:
		return values.RiskMedium
	default:
		return values.RiskHigh
	}
}

// describePatterns emits qualitative notes about how the gaps lie in
// the sequence range, for the methodology section of the report.
func describePatterns(r Result, presentCount int) []string {
	var notes []string
	if r.TotalGaps == 0 {
		return notes
	}

	notes = append(notes, fmt.Sprintf(
		"%d gap(s) detected, %d document(s) missing out of range %d-%d",
		r.TotalGaps, r.TotalMissing, r.MinSequence, r.MaxSequence))

	span := r.MaxSequence - r.MinSequence + 1
	if span > 0 {
		missingRate := float64(r.TotalMissing) / float64(span)
		if missingRate > 0.10 {
			notes = append(notes, fmt.Sprintf(
				"missing rate %.1f%% of the sequence range exceeds 10%%", missingRate*100))
		}

		// Gaps bunched in the last tenth of the range suggest
		// period-end document suppression.
		cutoff := r.MaxSequence - span/10
		tail := 0
		for _, g := range r.Gaps {
			if g.Start >= cutoff {
				tail++
			}
		}
		if tail > 0 && tail == r.TotalGaps && r.TotalGaps > 1 {
			notes = append(notes, "gaps cluster near the end of the sequence range")
		}
	}

	if r.TotalGaps > presentCount/10 && presentCount >= 20 {
		notes = append(notes, "gap frequency is high relative to population size")
	}
	return notes
}
