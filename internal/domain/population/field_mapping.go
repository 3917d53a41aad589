package population

import (
	"time"

	"github.com/ledgerlens/forensic-audit-engine/internal/domain/values"
)

// NullCategory is the explicit category assigned to rows whose mapped
// categorical field is absent or null. Missing data is itself a signal
// and is never silently dropped.
const NullCategory = "NULL"

// FieldMapping names which raw keys supply each semantic field. Every
// key is optional; analyzers that need an unmapped field produce an
// empty, neutral result rather than failing.
type FieldMapping struct {
	CategoryKey    string `json:"category_key,omitempty"`
	SubcategoryKey string `json:"subcategory_key,omitempty"`
	ActorIDKey     string `json:"actor_id_key,omitempty"`
	ActorNameKey   string `json:"actor_name_key,omitempty"`
	AmountKey      string `json:"amount_key,omitempty"`
	TimestampKey   string `json:"timestamp_key,omitempty"`
	SequenceKey    string `json:"sequence_key,omitempty"`
}

// HasCategory reports whether a category field is configured
func (m FieldMapping) HasCategory() bool { return m.CategoryKey != "" }

// HasSubcategory reports whether a subcategory field is configured
func (m FieldMapping) HasSubcategory() bool { return m.SubcategoryKey != "" }

// HasActor reports whether an actor identifier field is configured
func (m FieldMapping) HasActor() bool { return m.ActorIDKey != "" }

// Category resolves a row's category, substituting NullCategory when
// the field is unmapped, absent, or null.
func (m FieldMapping) Category(row Row) string {
	if s, ok := row.RawString(m.CategoryKey); ok {
		return s
	}
	return NullCategory
}

// Subcategory resolves a row's subcategory with NULL substitution
func (m FieldMapping) Subcategory(row Row) string {
	if s, ok := row.RawString(m.SubcategoryKey); ok {
		return s
	}
	return NullCategory
}

// ActorID resolves a row's actor identifier. The second return is
// false when no actor can be attributed.
func (m FieldMapping) ActorID(row Row) (string, bool) {
	return row.RawString(m.ActorIDKey)
}

// ActorName resolves a row's display name for reporting
func (m FieldMapping) ActorName(row Row) string {
	if s, ok := row.RawString(m.ActorNameKey); ok {
		return s
	}
	return ""
}

// Amount resolves a row's monetary value, preferring a mapped raw
// field over the typed Amount column.
func (m FieldMapping) Amount(row Row) float64 {
	if f, ok := row.RawFloat(m.AmountKey); ok {
		return f
	}
	return row.Amount
}

// Timestamp resolves a row's transaction time. A mapped raw field in
// RFC 3339 or date-only form wins over the typed column.
func (m FieldMapping) Timestamp(row Row) (time.Time, bool) {
	if s, ok := row.RawString(m.TimestampKey); ok {
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	if row.Timestamp != nil {
		return *row.Timestamp, true
	}
	return time.Time{}, false
}

// Sequence resolves the document sequence number embedded in a row's
// mapped sequence field, falling back to the row id.
func (m FieldMapping) Sequence(row Row) (values.SequenceNumber, bool) {
	id := row.ID
	if s, ok := row.RawString(m.SequenceKey); ok {
		id = s
	}
	seq, err := values.NewSequenceNumberFromID(id)
	if err != nil {
		return values.SequenceNumber{}, false
	}
	return seq, true
}
