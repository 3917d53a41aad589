package entropy

import (
	"math"
	"sort"

	"github.com/ledgerlens/forensic-audit-engine/internal/domain/population"
	"github.com/ledgerlens/forensic-audit-engine/internal/domain/values"
)

// Config holds the entropy analyzer tunables
type Config struct {
	// RarityThreshold is the fraction of total rows at or below which
	// a (category, subcategory) pair counts as anomalous.
	RarityThreshold float64 `json:"rarity_threshold"`
}

// DefaultConfig returns the documented analyzer defaults
func DefaultConfig() Config {
	return Config{RarityThreshold: 0.02}
}

// Combination is a flagged rare (category, subcategory) pair
type Combination struct {
	Category    string           `json:"category"`
	Subcategory string           `json:"subcategory"`
	Count       int              `json:"count"`
	Frequency   float64          `json:"frequency"`
	RiskLevel   values.RiskLevel `json:"risk_level"`
}

// Result is the categorical-entropy analysis output
type Result struct {
	TotalRows          int           `json:"total_rows"`
	CategoryCount      int           `json:"category_count"`
	SubcategoryCount   int           `json:"subcategory_count"`
	CategoryEntropy    float64       `json:"category_entropy"`
	SubcategoryEntropy float64       `json:"subcategory_entropy"`
	ConditionalEntropy float64       `json:"conditional_entropy"`
	MutualInformation  float64       `json:"mutual_information"`
	InformationGain    float64       `json:"information_gain"`
	RareThreshold      int           `json:"rare_threshold"`
	Anomalies          []Combination `json:"anomalies"`
}

// Shannon computes H(X) = -sum p_i log2 p_i over a frequency map.
func Shannon(counts map[string]int, total int) float64 {
	if total == 0 {
		return 0
	}
	var h float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / float64(total)
		h -= p * math.Log2(p)
	}
	return h
}

// Analyze computes entropy statistics over the category and subcategory
// columns and flags anomalously rare combinations. Missing values map
// to the explicit NULL category; absence is itself a signal. With no
// categorical fields configured, it returns a zero result.
func Analyze(pop population.Population, mapping population.FieldMapping, cfg Config) Result {
	result := Result{TotalRows: pop.Size()}
	if cfg.RarityThreshold <= 0 {
		cfg.RarityThreshold = DefaultConfig().RarityThreshold
	}
	if pop.IsEmpty() || !mapping.HasCategory() {
		return result
	}

	catCounts := make(map[string]int)
	subCounts := make(map[string]int)
	pairCounts := make(map[[2]string]int)
	// pairOrder preserves first-seen order for stable tie-breaking
	var pairOrder [][2]string
	byCategory := make(map[string]map[string]int)

	for _, row := range pop {
		cat := mapping.Category(row)
		sub := mapping.Subcategory(row)

		catCounts[cat]++
		subCounts[sub]++

		pair := [2]string{cat, sub}
		if pairCounts[pair] == 0 {
			pairOrder = append(pairOrder, pair)
		}
		pairCounts[pair]++

		if byCategory[cat] == nil {
			byCategory[cat] = make(map[string]int)
		}
		byCategory[cat][sub]++
	}

	total := pop.Size()
	result.CategoryCount = len(catCounts)
	result.SubcategoryCount = len(subCounts)
	result.CategoryEntropy = Shannon(catCounts, total)
	result.SubcategoryEntropy = Shannon(subCounts, total)

	// H(Y|X) = sum_x P(x) H(Y | X = x)
	var conditional float64
	for cat, subs := range byCategory {
		px := float64(catCounts[cat]) / float64(total)
		conditional += px * Shannon(subs, catCounts[cat])
	}
	result.ConditionalEntropy = conditional
	result.MutualInformation = result.SubcategoryEntropy - conditional
	result.InformationGain = result.MutualInformation

	threshold := int(math.Floor(cfg.RarityThreshold * float64(total)))
	if threshold < 1 {
		threshold = 1
	}
	result.RareThreshold = threshold

	for _, pair := range pairOrder {
		count := pairCounts[pair]
		if count > threshold {
			continue
		}
		level := values.RiskLow
		switch {
		case count == 1:
			level = values.RiskHigh
		case count <= threshold/2:
			level = values.RiskMedium
		}
		result.Anomalies = append(result.Anomalies, Combination{
			Category:    pair[0],
			Subcategory: pair[1],
			Count:       count,
			Frequency:   float64(count) / float64(total),
			RiskLevel:   level,
		})
	}

	// Rarest first; first-seen order breaks ties so output is stable.
	sort.SliceStable(result.Anomalies, func(i, j int) bool {
		return result.Anomalies[i].Count < result.Anomalies[j].Count
	})

	return result
}
