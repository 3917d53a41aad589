package fixtures

import (
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/ledgerlens/forensic-audit-engine/internal/domain/population"
)

// PopulationBuilder builds synthetic transaction populations for
// analyzer tests. All randomness is seeded, so a builder with the same
// seed always produces the same rows.
type PopulationBuilder struct {
	t       *testing.T
	rng     *rand.Rand
	size    int
	start   time.Time
	actors  []string
	rows    []population.Row
	nextSeq int
}

// NewPopulationBuilder creates a builder with deterministic defaults
func NewPopulationBuilder(t *testing.T, seed int64) *PopulationBuilder {
	t.Helper()
	return &PopulationBuilder{
		t:       t,
		rng:     rand.New(rand.NewSource(seed)),
		size:    100,
		start:   time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC), // a Monday morning
		actors:  []string{"U001", "U002", "U003", "U004"},
		nextSeq: 1,
	}
}

// WithSize sets how many generated rows the builder emits
func (b *PopulationBuilder) WithSize(n int) *PopulationBuilder {
	b.size = n
	return b
}

// WithActors sets the actor id pool rows are assigned from
func (b *PopulationBuilder) WithActors(actors ...string) *PopulationBuilder {
	b.actors = actors
	return b
}

// AddRow appends an explicit row, consuming one sequence number
func (b *PopulationBuilder) AddRow(row population.Row) *PopulationBuilder {
	if row.ID == "" {
		row.ID = fmt.Sprintf("TXN-%06d", b.nextSeq)
	}
	b.nextSeq++
	b.rows = append(b.rows, row)
	return b
}

// Build emits the explicit rows plus generated Benford-conforming
// filler up to the requested size.
func (b *PopulationBuilder) Build() population.Population {
	b.t.Helper()
	for len(b.rows) < b.size {
		b.rows = append(b.rows, b.generatedRow(benfordAmount(b.rng)))
	}
	return population.Population(b.rows)
}

// BuildUniformDigits emits rows whose first digits are uniformly
// distributed, a strong Benford violation.
func (b *PopulationBuilder) BuildUniformDigits() population.Population {
	b.t.Helper()
	for len(b.rows) < b.size {
		digit := 1 + b.rng.Intn(9)
		amount := float64(digit)*1000 + b.rng.Float64()*999
		b.rows = append(b.rows, b.generatedRow(amount))
	}
	return population.Population(b.rows)
}

func (b *PopulationBuilder) generatedRow(amount float64) population.Row {
	ts := b.start.Add(time.Duration(b.nextSeq) * 37 * time.Minute)
	actor := b.actors[b.rng.Intn(len(b.actors))]
	row := population.Row{
		ID:        fmt.Sprintf("TXN-%06d", b.nextSeq),
		Amount:    math.Round(amount*100) / 100,
		Timestamp: &ts,
		Raw: map[string]interface{}{
			"actor_id":    actor,
			"category":    pickCategory(b.rng),
			"subcategory": pickSubcategory(b.rng),
		},
	}
	b.nextSeq++
	return row
}

// benfordAmount draws an amount whose first digit follows Benford's
// law exactly: 10^u is logarithmically distributed for uniform u.
func benfordAmount(rng *rand.Rand) float64 {
	exponent := 2 + rng.Float64()*3 // magnitudes 100 .. 100000
	return math.Pow(10, exponent)
}

func pickCategory(rng *rand.Rand) string {
	categories := []string{"travel", "supplies", "payroll", "services"}
	return categories[rng.Intn(len(categories))]
}

func pickSubcategory(rng *rand.Rand) string {
	subcategories := []string{"domestic", "foreign", "recurring"}
	return subcategories[rng.Intn(len(subcategories))]
}

// GappedSequencePopulation builds rows whose trailing numeric ids are
// exactly the given sequence values, for gap detection tests.
func GappedSequencePopulation(t *testing.T, values []int64) population.Population {
	t.Helper()
	rows := make([]population.Row, 0, len(values))
	for _, v := range values {
		rows = append(rows, population.Row{
			ID:     fmt.Sprintf("INV-%06d", v),
			Amount: 100,
		})
	}
	return population.Population(rows)
}

// SuspiciousActorPopulation builds a population where one actor books
// round weekend amounts at 2am and the rest behave normally.
func SuspiciousActorPopulation(t *testing.T, seed int64, size int) population.Population {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))

	monday := time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)
	saturday := time.Date(2025, 1, 11, 2, 0, 0, 0, time.UTC)

	rows := make([]population.Row, 0, size)
	for i := 0; i < size; i++ {
		var row population.Row
		if i%5 == 0 {
			// the bad actor: weekend, off-hours, round, high-value
			ts := saturday.Add(time.Duration(i) * time.Hour * 24 * 7 / time.Duration(size))
			row = population.Row{
				ID:        fmt.Sprintf("TXN-%06d", i+1),
				Amount:    15000,
				Timestamp: &ts,
				Raw:       map[string]interface{}{"actor_id": "U666"},
			}
		} else {
			ts := monday.Add(time.Duration(i) * 23 * time.Minute)
			row = population.Row{
				ID:        fmt.Sprintf("TXN-%06d", i+1),
				Amount:    math.Round(benfordAmount(rng)*100) / 100,
				Timestamp: &ts,
				Raw:       map[string]interface{}{"actor_id": fmt.Sprintf("U%03d", 1+rng.Intn(3))},
			}
		}
		rows = append(rows, row)
	}
	return population.Population(rows)
}

// OutlierPopulation builds a tight cluster of amounts plus a handful
// of extreme points, for isolation forest tests.
func OutlierPopulation(t *testing.T, seed int64, clusterSize, outliers int) population.Population {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))

	rows := make([]population.Row, 0, clusterSize+outliers)
	base := time.Date(2025, 3, 3, 11, 0, 0, 0, time.UTC)
	for i := 0; i < clusterSize; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		rows = append(rows, population.Row{
			ID:        fmt.Sprintf("TXN-%06d", i+1),
			Amount:    100 + rng.Float64()*10,
			Timestamp: &ts,
		})
	}
	for i := 0; i < outliers; i++ {
		ts := base.Add(time.Duration(clusterSize+i) * time.Minute)
		rows = append(rows, population.Row{
			ID:        fmt.Sprintf("TXN-%06d", clusterSize+i+1),
			Amount:    1_000_000 + float64(i)*500_000,
			Timestamp: &ts,
		})
	}
	return population.Population(rows)
}

// StandardMapping is the field mapping the generated fixtures use
func StandardMapping() population.FieldMapping {
	return population.FieldMapping{
		CategoryKey:    "category",
		SubcategoryKey: "subcategory",
		ActorIDKey:     "actor_id",
	}
}
