package actor

import (
	"math"
	"sort"
	"time"

	"github.com/ledgerlens/forensic-audit-engine/internal/domain/population"
	"github.com/ledgerlens/forensic-audit-engine/internal/domain/values"
)

// Behavior pattern names used in the cross-actor summary
const (
	PatternWeekendActivity  = "excessive_weekend_activity"
	PatternOffHoursActivity = "off_hours_activity"
	PatternRoundAmounts     = "round_amount_concentration"
	PatternDuplicateAmounts = "duplicate_amounts"
	PatternHighValue        = "high_value_concentration"
	PatternConsecutiveDays  = "long_consecutive_day_streak"
)

// Weights is the fixed, documented contribution of each normalized
// sub-signal to the composite actor risk score. The defaults sum to
// 100 so the clipped score reads directly as a percentage.
type Weights struct {
	Weekend        float64 `json:"weekend"`
	OffHours       float64 `json:"off_hours"`
	RoundAmount    float64 `json:"round_amount"`
	DuplicateAmt   float64 `json:"duplicate_amount"`
	HighValue      float64 `json:"high_value"`
	ConsecutiveRun float64 `json:"consecutive_run"`
}

// Config holds the actor profiler tunables
type Config struct {
	// OffHoursStart/OffHoursEnd bound the off-hours window; the window
	// wraps midnight when start > end (22 -> 6).
	OffHoursStart int `json:"off_hours_start"`
	OffHoursEnd   int `json:"off_hours_end"`
	// RoundAmountUnit flags amounts divisible by this unit.
	RoundAmountUnit float64 `json:"round_amount_unit"`
	// HighValueThreshold flags transactions at or above this absolute amount.
	HighValueThreshold float64 `json:"high_value_threshold"`
	// SuspiciousCutoff is the composite score above which an actor is
	// reported suspicious.
	SuspiciousCutoff float64 `json:"suspicious_cutoff"`
	// MediumScore/HighScore partition [0,100] into risk levels.
	MediumScore float64 `json:"medium_score"`
	HighScore   float64 `json:"high_score"`

	Weights Weights `json:"weights"`
}

// DefaultConfig returns the documented profiler defaults
func DefaultConfig() Config {
	return Config{
		OffHoursStart:      22,
		OffHoursEnd:        6,
		RoundAmountUnit:    100,
		HighValueThreshold: 10_000,
		SuspiciousCutoff:   70,
		MediumScore:        40,
		HighScore:          70,
		Weights: Weights{
			Weekend:        20,
			OffHours:       20,
			RoundAmount:    15,
			DuplicateAmt:   15,
			HighValue:      15,
			ConsecutiveRun: 15,
		},
	}
}

// Profile is the per-actor aggregate. Rows are referenced by index
// into the analyzed population, never copied or mutated.
type Profile struct {
	ActorID       string  `json:"actor_id"`
	ActorName     string  `json:"actor_name,omitempty"`
	RowIndexes    []int   `json:"row_indexes"`
	Count         int     `json:"count"`
	TotalAmount   float64 `json:"total_amount"`
	AverageAmount float64 `json:"average_amount"`

	WeekendCount     int `json:"weekend_count"`
	OffHoursCount    int `json:"off_hours_count"`
	RoundAmountCount int `json:"round_amount_count"`
	DuplicateCount   int `json:"duplicate_count"`
	HighValueCount   int `json:"high_value_count"`
	ConsecutiveDays  int `json:"consecutive_days"`

	RiskScore  float64          `json:"risk_score"`
	RiskLevel  values.RiskLevel `json:"risk_level"`
	Suspicious bool             `json:"suspicious"`
}

// Result is the actor profiling output
type Result struct {
	TotalActors      int            `json:"total_actors"`
	UnattributedRows int            `json:"unattributed_rows"`
	Profiles         []Profile      `json:"profiles"`
	Suspicious       []string       `json:"suspicious_actors"`
	PatternSummary   map[string]int `json:"pattern_summary"`
}

// Analyze groups rows by actor and derives behavioral risk profiles.
// With no actor field configured it returns an empty result. Profiles
// come back sorted by descending risk score, actor id breaking ties.
func Analyze(pop population.Population, mapping population.FieldMapping, cfg Config) Result {
	result := Result{PatternSummary: make(map[string]int)}
	if pop.IsEmpty() || !mapping.HasActor() {
		result.UnattributedRows = pop.Size()
		return result
	}
	if cfg.RoundAmountUnit <= 0 {
		cfg = DefaultConfig()
	}

	groups := make(map[string][]int)
	var order []string
	for i, row := range pop {
		id, ok := mapping.ActorID(row)
		if !ok {
			result.UnattributedRows++
			continue
		}
		if _, seen := groups[id]; !seen {
			order = append(order, id)
		}
		groups[id] = append(groups[id], i)
	}

	for _, id := range order {
		profile := buildProfile(id, groups[id], pop, mapping, cfg)
		result.Profiles = append(result.Profiles, profile)
		if profile.Suspicious {
			result.Suspicious = append(result.Suspicious, profile.ActorID)
		}
		recordPatterns(result.PatternSummary, profile, cfg)
	}
	result.TotalActors = len(result.Profiles)

	sort.SliceStable(result.Profiles, func(i, j int) bool {
		if result.Profiles[i].RiskScore != result.Profiles[j].RiskScore {
			return result.Profiles[i].RiskScore > result.Profiles[j].RiskScore
		}
		return result.Profiles[i].ActorID < result.Profiles[j].ActorID
	})
	sort.Strings(result.Suspicious)
	return result
}

func buildProfile(id string, rows []int, pop population.Population, mapping population.FieldMapping, cfg Config) Profile {
	profile := Profile{ActorID: id, RowIndexes: rows, Count: len(rows)}

	amountSeen := make(map[float64]int)
	daySeen := make(map[string]struct{})

	for _, idx := range rows {
		row := pop[idx]
		if profile.ActorName == "" {
			profile.ActorName = mapping.ActorName(row)
		}
		amount := mapping.Amount(row)
		profile.TotalAmount += amount
		amountSeen[amount]++

		abs := math.Abs(amount)
		if abs >= cfg.HighValueThreshold {
			profile.HighValueCount++
		}
		if abs > 0 && isRound(abs, cfg.RoundAmountUnit) {
			profile.RoundAmountCount++
		}

		ts, ok := mapping.Timestamp(row)
		if !ok {
			continue
		}
		if wd := ts.Weekday(); wd == time.Saturday || wd == time.Sunday {
			profile.WeekendCount++
		}
		if inOffHours(ts.Hour(), cfg.OffHoursStart, cfg.OffHoursEnd) {
			profile.OffHoursCount++
		}
		daySeen[ts.Format("2006-01-02")] = struct{}{}
	}

	if profile.Count > 0 {
		profile.AverageAmount = profile.TotalAmount / float64(profile.Count)
	}
	for _, c := range amountSeen {
		if c >= 2 {
			profile.DuplicateCount += c
		}
	}
	profile.ConsecutiveDays = longestDayRun(daySeen)

	profile.RiskScore = compositeScore(profile, cfg)
	profile.RiskLevel = classifyScore(profile.RiskScore, cfg)
	profile.Suspicious = profile.RiskScore > cfg.SuspiciousCutoff
	return profile
}

// compositeScore is the weighted sum of normalized sub-signals clipped
// to [0, 100]. Ratios normalize by transaction count; the day streak
// normalizes against a full week.
func compositeScore(p Profile, cfg Config) float64 {
	if p.Count == 0 {
		return 0
	}
	n := float64(p.Count)
	w := cfg.Weights

	score := w.Weekend*float64(p.WeekendCount)/n +
		w.OffHours*float64(p.OffHoursCount)/n +
		w.RoundAmount*float64(p.RoundAmountCount)/n +
		w.DuplicateAmt*float64(p.DuplicateCount)/n +
		w.HighValue*float64(p.HighValueCount)/n +
		w.ConsecutiveRun*math.Min(float64(p.ConsecutiveDays)/7, 1)

	return math.Min(math.Max(score, 0), 100)
}

func classifyScore(score float64, cfg Config) values.RiskLevel {
	switch {
	case score >= cfg.HighScore:
		return values.RiskHigh
	case score >= cfg.MediumScore:
		return values.RiskMedium
	default:
		return values.RiskLow
	}
}

func recordPatterns(summary map[string]int, p Profile, cfg Config) {
	if p.Count == 0 {
		return
	}
	n := float64(p.Count)
	if float64(p.WeekendCount)/n > 0.5 {
		summary[PatternWeekendActivity]++
	}
	if float64(p.OffHoursCount)/n > 0.5 {
		summary[PatternOffHoursActivity]++
	}
	if float64(p.RoundAmountCount)/n > 0.5 {
		summary[PatternRoundAmounts]++
	}
	if p.DuplicateCount > 0 {
		summary[PatternDuplicateAmounts]++
	}
	if p.HighValueCount > 0 {
		summary[PatternHighValue]++
	}
	if p.ConsecutiveDays >= 5 {
		summary[PatternConsecutiveDays]++
	}
}

func isRound(abs, unit float64) bool {
	q := abs / unit
	return math.Abs(q-math.Round(q)) < 1e-9
}

func inOffHours(hour, start, end int) bool {
	if start == end {
		return false
	}
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

// longestDayRun finds the longest streak of consecutive calendar days
// with at least one transaction.
func longestDayRun(days map[string]struct{}) int {
	if len(days) == 0 {
		return 0
	}
	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	best, run := 1, 1
	for i := 1; i < len(keys); i++ {
		prev, _ := time.Parse("2006-01-02", keys[i-1])
		curr, _ := time.Parse("2006-01-02", keys[i])
		if curr.Sub(prev) == 24*time.Hour {
			run++
			if run > best {
				best = run
			}
		} else {
			run = 1
		}
	}
	return best
}
