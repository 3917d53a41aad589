package values

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ledgerlens/forensic-audit-engine/internal/domain/errors"
)

// SequenceNumber represents the integer position a document id encodes.
// Identifiers like "INV-000123" or "2024/00017" carry an embedded
// counter; gap analysis works on that counter, not the full string.
type SequenceNumber struct {
	value int64
}

const (
	// Maximum sequence number value (2^63 - 1)
	MaxSequenceNumber = int64(9223372036854775807)
	// Minimum sequence number value
	MinSequenceNumber = int64(0)
)

// NewSequenceNumber creates a new SequenceNumber value object with validation
func NewSequenceNumber(value int64) (SequenceNumber, error) {
	if value < MinSequenceNumber {
		return SequenceNumber{}, errors.NewValidationError("NEGATIVE_SEQUENCE",
			fmt.Sprintf("sequence number %d cannot be negative", value))
	}
	return SequenceNumber{value: value}, nil
}

// NewSequenceNumberFromID extracts the embedded counter from a document
// identifier. A purely numeric id parses directly; otherwise the longest
// trailing run of digits is used ("INV-000123" -> 123). Identifiers with
// no digits at all are rejected.
func NewSequenceNumberFromID(id string) (SequenceNumber, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return SequenceNumber{}, errors.NewValidationError("EMPTY_SEQUENCE",
			"document id cannot be empty")
	}

	if parsed, err := strconv.ParseInt(id, 10, 64); err == nil {
		return NewSequenceNumber(parsed)
	}

	end := len(id)
	for end > 0 && !isDigit(id[end-1]) {
		end--
	}
	start := end
	for start > 0 && isDigit(id[start-1]) {
		start--
	}
	if start == end {
		return SequenceNumber{}, errors.NewValidationError("NO_SEQUENCE_DIGITS",
			fmt.Sprintf("document id %q carries no numeric sequence", id))
	}

	parsed, err := strconv.ParseInt(id[start:end], 10, 64)
	if err != nil {
		return SequenceNumber{}, errors.NewValidationError("INVALID_SEQUENCE_FORMAT",
			fmt.Sprintf("document id %q sequence segment overflows", id)).WithCause(err)
	}
	return NewSequenceNumber(parsed)
}

// MustNewSequenceNumber creates a SequenceNumber and panics on error (for tests)
func MustNewSequenceNumber(value int64) SequenceNumber {
	seq, err := NewSequenceNumber(value)
	if err != nil {
		panic(err)
	}
	return seq
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// Value returns the sequence number value
func (s SequenceNumber) Value() int64 {
	return s.value
}

// String returns the string representation of the sequence number
func (s SequenceNumber) String() string {
	return strconv.FormatInt(s.value, 10)
}

// Equal checks if two SequenceNumber values are equal
func (s SequenceNumber) Equal(other SequenceNumber) bool {
	return s.value == other.value
}

// Compare returns -1, 0, or 1 based on comparison with other SequenceNumber
func (s SequenceNumber) Compare(other SequenceNumber) int {
	if s.value < other.value {
		return -1
	}
	if s.value > other.value {
		return 1
	}
	return 0
}

// LessThan checks if this sequence number is less than other
func (s SequenceNumber) LessThan(other SequenceNumber) bool {
	return s.value < other.value
}

// Next returns the immediately following sequence number
func (s SequenceNumber) Next() SequenceNumber {
	return SequenceNumber{value: s.value + 1}
}

// GapTo returns the count of missing numbers between this and next.
// Adjacent or out-of-order numbers yield zero.
func (s SequenceNumber) GapTo(next SequenceNumber) int64 {
	if next.value <= s.value+1 {
		return 0
	}
	return next.value - s.value - 1
}
