package sampling

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ledgerlens/forensic-audit-engine/internal/domain/errors"
	"github.com/ledgerlens/forensic-audit-engine/internal/domain/population"
	"github.com/ledgerlens/forensic-audit-engine/internal/domain/values"
)

// stage is the planner's per-invocation state machine position
type stage int

const (
	stageConfigure stage = iota
	stageSize
	stageSelect
	stageReport
	stageDone
)

// Planner computes audit sample plans. One planner may serve many
// invocations; each Plan call runs its own configure/size/select/report
// cycle and shares nothing with other calls.
type Planner struct {
	validate *validator.Validate
}

// NewPlanner creates a sampling planner
func NewPlanner() *Planner {
	return &Planner{validate: validator.New()}
}

// planRun carries one invocation through the state machine
type planRun struct {
	pop     population.Population
	mapping population.FieldMapping
	params  Parameters
	ranking []int
	cl      values.ConfidenceLevel
	plan    *SamplePlan
	stage   stage

	// selected is built during stageSelect as row indexes
	selected []int
}

// Plan produces a sample plan for the population. For the
// risk-directed method the caller supplies the risk ranking (row
// indexes ordered most-risky first); statistical methods ignore it.
func (p *Planner) Plan(ctx context.Context, pop population.Population, mapping population.FieldMapping, params Parameters, ranking []int) (*SamplePlan, error) {
	run := &planRun{pop: pop, mapping: mapping, params: params, ranking: ranking}

	for run.stage != stageDone {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewBoundsExceededError("sampling deadline exceeded").WithCause(err)
		}
		var err error
		switch run.stage {
		case stageConfigure:
			err = p.configure(run)
		case stageSize:
			err = p.size(run)
		case stageSelect:
			err = p.selectStage(run)
		case stageReport:
			err = p.report(run)
		}
		if err != nil {
			return nil, err
		}
		run.stage++
	}
	return run.plan, nil
}

// configure validates parameters and fills defaults; no computation is
// attempted past a bad configuration.
func (p *Planner) configure(run *planRun) error {
	if run.pop.IsEmpty() {
		return errors.NewEmptyPopulationError()
	}
	if err := p.validate.Struct(run.params); err != nil {
		return errors.NewConfigurationError("INVALID_SAMPLING_PARAMS", err.Error()).WithCause(err)
	}

	if run.params.ConfidenceLevel == 0 {
		run.params.ConfidenceLevel = 0.95
	}
	cl, err := values.NewConfidenceLevel(run.params.ConfidenceLevel)
	if err != nil {
		return err
	}
	run.cl = cl

	if run.params.Selection == "" {
		run.params.Selection = SelectionRandom
	}
	if run.params.ZeroNegative == "" {
		run.params.ZeroNegative = ZeroNegativeAbsolute
	}
	if run.params.Seed == 0 {
		run.params.Seed = 1
	}

	switch run.params.Method {
	case MethodAttribute:
		if run.params.TolerableRate <= 0 {
			return errors.NewConfigurationError("MISSING_TOLERABLE_RATE",
				"attribute sampling requires a positive tolerable deviation rate")
		}
		if run.params.ExpectedRate >= run.params.TolerableRate {
			return errors.NewConfigurationError("EXPECTED_EXCEEDS_TOLERABLE",
				"expected deviation rate must be below the tolerable rate")
		}
	case MethodMUS:
		if run.params.TolerableError <= 0 {
			return errors.NewConfigurationError("MISSING_TOLERABLE_ERROR",
				"monetary-unit sampling requires a positive tolerable error")
		}
	case MethodVariables:
		if run.params.Precision <= 0 {
			return errors.NewConfigurationError("MISSING_PRECISION",
				"classical variables sampling requires a positive precision target")
		}
	case MethodStratified:
		if run.params.Strata == 0 {
			run.params.Strata = 3
		}
		if run.params.Allocation == "" {
			run.params.Allocation = AllocationProportional
		}
		if run.params.StratifyBy == "" {
			if run.mapping.HasCategory() {
				run.params.StratifyBy = StratifyByCategory
			} else {
				run.params.StratifyBy = StratifyByAmount
			}
		}
		if run.params.Precision <= 0 && run.params.TolerableRate <= 0 {
			return errors.NewConfigurationError("MISSING_SIZE_BASIS",
				"stratified sampling requires a precision target or tolerable rate to size the sample")
		}
	case MethodRiskDirected:
		if run.params.FixedSize <= 0 {
			return errors.NewConfigurationError("MISSING_FIXED_SIZE",
				"risk-directed sampling requires a caller-fixed sample size")
		}
		if run.params.Justification == "" {
			return errors.NewConfigurationError("MISSING_JUSTIFICATION",
				"risk-directed sampling is not statistically projectable and requires an explicit justification")
		}
		if len(run.ranking) == 0 {
			return errors.NewConfigurationError("MISSING_RISK_RANKING",
				"risk-directed sampling requires a risk ranking over the population")
		}
	}

	run.plan = &SamplePlan{
		ID:             uuid.New(),
		Method:         run.params.Method,
		PopulationSize: run.pop.Size(),
		BookValue:      run.pop.TotalAbsAmount(),
		Seed:           run.params.Seed,
		CreatedAt:      time.Now().UTC(),
	}
	return nil
}

// size computes the required sample size for the configured method and
// applies the oversize safety cap.
func (p *Planner) size(run *planRun) error {
	var (
		computed int
		notes    []string
		err      error
	)

	switch run.params.Method {
	case MethodAttribute:
		computed, notes = attributeSize(run.pop.Size(), run.cl, run.params)
	case MethodMUS:
		computed, notes, err = musSize(run.pop, run.mapping, run.cl, run.params)
	case MethodVariables:
		computed, notes = variablesSize(run.pop, run.mapping, run.cl, run.params)
	case MethodStratified:
		computed, notes, err = stratifiedSize(run.pop, run.mapping, run.cl, run.params)
	case MethodRiskDirected:
		computed = run.params.FixedSize
		if computed > run.pop.Size() {
			computed = run.pop.Size()
			notes = append(notes, fmt.Sprintf(
				"requested size %d exceeds population; reduced to %d", run.params.FixedSize, computed))
		}
	}
	if err != nil {
		return err
	}

	run.plan.ComputedSize = computed
	for _, n := range notes {
		run.plan.appendNote(n)
	}

	fraction, ceiling := run.params.CapFraction, run.params.CapSize
	if fraction == 0 {
		fraction = MaxSampleFraction
	}
	if ceiling == 0 {
		ceiling = MaxSampleCap
	}
	target, capped := applySampleCap(computed, run.pop.Size(), fraction, ceiling)
	if capped {
		run.plan.appendNote(fmt.Sprintf(
			"computed size %d exceeds the sampling cap min(%.0f%% of %d, %d); clamped to %d to keep the sample practical",
			computed, fraction*100, run.pop.Size(), ceiling, target))
	}
	if target > run.pop.Size() {
		target = run.pop.Size()
		run.plan.appendNote(fmt.Sprintf("sample truncated to population size %d", target))
	}
	run.plan.TargetSize = target
	return nil
}

// selectStage picks the specific rows for the sized sample
func (p *Planner) selectStage(run *planRun) error {
	switch run.params.Method {
	case MethodMUS:
		selected, notes := musSelect(run.pop, run.mapping, run.params, run.plan.TargetSize)
		run.selected = selected
		for _, n := range notes {
			run.plan.appendNote(n)
		}
	case MethodStratified:
		selected, notes, err := stratifiedSelect(run.pop, run.mapping, run.params, run.plan.TargetSize)
		if err != nil {
			return err
		}
		run.selected = selected
		for _, n := range notes {
			run.plan.appendNote(n)
		}
	case MethodRiskDirected:
		run.selected = riskDirectedSelect(run.ranking, run.plan.TargetSize)
		run.plan.appendNote("non-statistical selection: " + run.params.Justification)
	default:
		rng := newRNG(run.params.Seed)
		run.selected = selectRows(rng, run.params.Selection, run.pop.Size(), run.plan.TargetSize)
	}
	return nil
}

// report freezes the plan: selected ids in selection order, final notes
func (p *Planner) report(run *planRun) error {
	seen := make(map[int]struct{}, len(run.selected))
	ids := make([]string, 0, len(run.selected))
	for _, idx := range run.selected {
		if idx < 0 || idx >= run.pop.Size() {
			continue
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		ids = append(ids, run.pop[idx].ID)
	}
	run.plan.SelectedIDs = ids

	if len(ids) < run.plan.TargetSize {
		run.plan.appendNote(fmt.Sprintf(
			"selection yielded %d unique records against a target of %d", len(ids), run.plan.TargetSize))
	}
	run.plan.appendNote(fmt.Sprintf(
		"method=%s confidence=%s seed=%d", run.params.Method, run.cl, run.params.Seed))
	return nil
}

// applySampleCap clamps a computed size to min(fraction x N, ceiling).
// Degenerate parameters (tolerable error far below item granularity)
// otherwise size samples approaching the full population.
func applySampleCap(computed, populationSize int, fraction float64, ceiling int) (int, bool) {
	limit := int(fraction * float64(populationSize))
	if limit > ceiling {
		limit = ceiling
	}
	if limit < 1 {
		limit = 1
	}
	if computed > limit {
		return limit, true
	}
	return computed, false
}
