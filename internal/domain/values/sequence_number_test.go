package values

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSequenceNumberFromID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		want    int64
		wantErr bool
	}{
		{name: "pure numeric", id: "123", want: 123},
		{name: "prefixed with zeros", id: "INV-000123", want: 123},
		{name: "year prefix", id: "2024/00017", want: 17},
		{name: "trailing suffix", id: "DOC-42-A", want: 42},
		{name: "whitespace", id: "  INV-7  ", want: 7},
		{name: "no digits", id: "ABC-XYZ", wantErr: true},
		{name: "empty", id: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, err := NewSequenceNumberFromID(tt.id)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, seq.Value())
		})
	}
}

func TestNewSequenceNumber_RejectsNegative(t *testing.T) {
	_, err := NewSequenceNumber(-1)
	require.Error(t, err)

	seq, err := NewSequenceNumber(0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq.Value())
}

func TestSequenceNumber_GapTo(t *testing.T) {
	tests := []struct {
		name    string
		current int64
		next    int64
		want    int64
	}{
		{name: "adjacent", current: 5, next: 6, want: 0},
		{name: "single gap", current: 5, next: 7, want: 1},
		{name: "wide gap", current: 10, next: 100, want: 89},
		{name: "equal", current: 5, next: 5, want: 0},
		{name: "out of order", current: 7, next: 5, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := MustNewSequenceNumber(tt.current)
			next := MustNewSequenceNumber(tt.next)
			assert.Equal(t, tt.want, current.GapTo(next))
		})
	}
}

func TestSequenceNumber_Comparisons(t *testing.T) {
	a := MustNewSequenceNumber(3)
	b := MustNewSequenceNumber(5)

	assert.True(t, a.LessThan(b))
	assert.False(t, b.LessThan(a))
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.True(t, a.Equal(MustNewSequenceNumber(3)))
	assert.Equal(t, int64(4), a.Next().Value())
	assert.Equal(t, "3", a.String())
}
