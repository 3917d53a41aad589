package population

import (
	"time"
)

// Row is one immutable audit transaction. The engine never mutates a
// row; analyzers read typed fields resolved through a FieldMapping.
type Row struct {
	// ID is the stable document identifier. It may encode a sequence
	// counter (see values.SequenceNumber).
	ID string `json:"id"`

	// Amount is the signed monetary value of the transaction.
	Amount float64 `json:"amount"`

	// Timestamp is the transaction date-time when present.
	Timestamp *time.Time `json:"timestamp,omitempty"`

	// Raw is the open field bag from ingestion. Categorical and actor
	// fields are resolved out of it via FieldMapping; values may be
	// absent or explicitly null.
	Raw map[string]interface{} `json:"raw,omitempty"`
}

// RawString resolves a raw field to a string. The second return is
// false when the key is absent, null, or not a string-like value.
func (r Row) RawString(key string) (string, bool) {
	if key == "" || r.Raw == nil {
		return "", false
	}
	v, ok := r.Raw[key]
	if !ok || v == nil {
		return "", false
	}
	switch s := v.(type) {
	case string:
		if s == "" {
			return "", false
		}
		return s, true
	default:
		return "", false
	}
}

// RawFloat resolves a raw field to a float64, coercing JSON number
// representations. Absent, null, or non-numeric values return false.
func (r Row) RawFloat(key string) (float64, bool) {
	if key == "" || r.Raw == nil {
		return 0, false
	}
	v, ok := r.Raw[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Population is an ordered collection of rows. Order is the ingestion
// order and is preserved wherever iteration order affects output.
type Population []Row

// IsEmpty reports whether the population holds no rows
func (p Population) IsEmpty() bool {
	return len(p) == 0
}

// Size returns the row count
func (p Population) Size() int {
	return len(p)
}

// Amounts returns the amount column in row order
func (p Population) Amounts() []float64 {
	amounts := make([]float64, len(p))
	for i, row := range p {
		amounts[i] = row.Amount
	}
	return amounts
}

// TotalAbsAmount returns the sum of absolute amounts (the book value
// basis used by monetary-unit sampling).
func (p Population) TotalAbsAmount() float64 {
	var total float64
	for _, row := range p {
		if row.Amount < 0 {
			total -= row.Amount
		} else {
			total += row.Amount
		}
	}
	return total
}
