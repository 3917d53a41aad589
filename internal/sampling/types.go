package sampling

import (
	"time"

	"github.com/google/uuid"
)

// Sampling method names
const (
	MethodAttribute    = "attribute"
	MethodMUS          = "monetary_unit"
	MethodVariables    = "classical_variables"
	MethodStratified   = "stratified"
	MethodRiskDirected = "risk_directed"
)

// Selection techniques for the statistical methods
const (
	SelectionRandom     = "random"
	SelectionSystematic = "systematic"
)

// Zero/negative amount treatments for monetary-unit sampling
const (
	ZeroNegativeAbsolute = "absolute"
	ZeroNegativeSeparate = "separate"
)

// Stratum allocation schemes
const (
	AllocationProportional = "proportional"
	AllocationNeyman       = "neyman"
)

// Stratification bases
const (
	StratifyByCategory = "category"
	StratifyByAmount   = "amount"
)

// Hard ceiling on any computed sample, applied as min(MaxSampleFraction
// x N, MaxSampleCap). Degenerate parameter combinations otherwise size
// samples approaching the full population.
const (
	MaxSampleFraction = 0.8
	MaxSampleCap      = 2000
)

// Parameters is the caller-supplied sampling configuration. Rates and
// errors follow the method: attribute sampling reads the deviation
// rates, MUS reads the monetary errors, classical variables reads the
// precision target.
type Parameters struct {
	Method string `json:"method" validate:"required,oneof=attribute monetary_unit classical_variables stratified risk_directed"`

	ConfidenceLevel float64 `json:"confidence_level" validate:"omitempty,gt=0,lt=100"`

	// Attribute sampling: deviation rates as fractions.
	TolerableRate float64 `json:"tolerable_rate" validate:"omitempty,gt=0,lt=1"`
	ExpectedRate  float64 `json:"expected_rate" validate:"omitempty,gte=0,lt=1"`

	// Monetary-unit sampling: monetary amounts.
	TolerableError float64 `json:"tolerable_error" validate:"omitempty,gt=0"`
	ExpectedError  float64 `json:"expected_error" validate:"omitempty,gte=0"`

	// Classical variables sampling.
	Precision float64 `json:"precision" validate:"omitempty,gt=0"`
	StdDev    float64 `json:"std_dev" validate:"omitempty,gte=0"`

	// Stratified sampling.
	Strata     int    `json:"strata" validate:"omitempty,gte=2,lte=20"`
	Allocation string `json:"allocation" validate:"omitempty,oneof=proportional neyman"`
	StratifyBy string `json:"stratify_by" validate:"omitempty,oneof=category amount"`

	// Risk-directed sampling.
	FixedSize     int    `json:"fixed_size" validate:"omitempty,gt=0"`
	Justification string `json:"justification"`

	// CapFraction/CapSize override the oversize guard's defaults of
	// MaxSampleFraction and MaxSampleCap for this call.
	CapFraction float64 `json:"cap_fraction" validate:"omitempty,gt=0,lte=1"`
	CapSize     int     `json:"cap_size" validate:"omitempty,gt=0"`

	Selection    string `json:"selection" validate:"omitempty,oneof=random systematic"`
	ZeroNegative string `json:"zero_negative" validate:"omitempty,oneof=absolute separate"`
	TopStratum   bool   `json:"top_stratum"`
	Seed         int64  `json:"seed"`
}

// SamplePlan is the planner's output: the selected records plus the
// methodology trail that makes the selection defensible.
type SamplePlan struct {
	ID             uuid.UUID `json:"id"`
	Method         string    `json:"method"`
	PopulationSize int       `json:"population_size"`
	BookValue      float64   `json:"book_value"`
	ComputedSize   int       `json:"computed_size"`
	TargetSize     int       `json:"target_size"`
	SelectedIDs    []string  `json:"selected_ids"`
	Notes          []string  `json:"notes"`
	Seed           int64     `json:"seed"`
	CreatedAt      time.Time `json:"created_at"`
}

// appendNote records a methodology note on the plan
func (p *SamplePlan) appendNote(note string) {
	p.Notes = append(p.Notes, note)
}
