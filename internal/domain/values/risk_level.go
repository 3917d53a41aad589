package values

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ledgerlens/forensic-audit-engine/internal/domain/errors"
)

// RiskLevel represents an ordered qualitative risk classification.
// The ordering LOW < MEDIUM < HIGH is significant: signal aggregation
// takes the maximum level across contributing signals.
type RiskLevel int

const (
	RiskLow RiskLevel = iota + 1
	RiskMedium
	RiskHigh
)

// NewRiskLevelFromString creates a RiskLevel from its string form
func NewRiskLevelFromString(value string) (RiskLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "LOW":
		return RiskLow, nil
	case "MEDIUM":
		return RiskMedium, nil
	case "HIGH":
		return RiskHigh, nil
	default:
		return 0, errors.NewValidationError("INVALID_RISK_LEVEL",
			fmt.Sprintf("unknown risk level %q", value))
	}
}

// MustNewRiskLevelFromString creates a RiskLevel and panics on error (for tests)
func MustNewRiskLevelFromString(value string) RiskLevel {
	level, err := NewRiskLevelFromString(value)
	if err != nil {
		panic(err)
	}
	return level
}

func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "LOW"
	case RiskMedium:
		return "MEDIUM"
	case RiskHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// IsValid checks whether the level is one of the three defined values
func (r RiskLevel) IsValid() bool {
	return r >= RiskLow && r <= RiskHigh
}

// Max returns the higher of two risk levels
func (r RiskLevel) Max(other RiskLevel) RiskLevel {
	if other > r {
		return other
	}
	return r
}

// Compare returns -1, 0, or 1 based on risk ordering
func (r RiskLevel) Compare(other RiskLevel) int {
	if r < other {
		return -1
	}
	if r > other {
		return 1
	}
	return 0
}

// MarshalJSON implements json.Marshaler
func (r RiskLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (r *RiskLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	level, err := NewRiskLevelFromString(s)
	if err != nil {
		return err
	}
	*r = level
	return nil
}
