package license

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licensor/pkg/contracts/domain"
)

func TestAdmit(t *testing.T) {
	tests := []struct {
		name        string
		existing    []string
		candidate   string
		max         domain.Capacity
		wantOutcome domain.AdmissionOutcome
		wantSet     []string
	}{
		{
			name:        "admit into empty bounded list",
			existing:    nil,
			candidate:   "1.2.3.4",
			max:         domain.Bounded(1),
			wantOutcome: domain.Admitted,
			wantSet:     []string{"1.2.3.4"},
		},
		{
			name:        "already present is idempotent success",
			existing:    []string{"1.2.3.4"},
			candidate:   "1.2.3.4",
			max:         domain.Bounded(1),
			wantOutcome: domain.AlreadyPresent,
			wantSet:     []string{"1.2.3.4"},
		},
		{
			name:        "reject at capacity",
			existing:    []string{"1.2.3.4"},
			candidate:   "5.6.7.8",
			max:         domain.Bounded(1),
			wantOutcome: domain.Rejected,
			wantSet:     []string{"1.2.3.4"},
		},
		{
			name:        "zero capacity rejects first candidate",
			existing:    nil,
			candidate:   "1.2.3.4",
			max:         domain.Bounded(0),
			wantOutcome: domain.Rejected,
			wantSet:     nil,
		},
		{
			name:        "unlimited never rejects",
			existing:    []string{"a", "b", "c"},
			candidate:   "d",
			max:         domain.Unlimited(),
			wantOutcome: domain.Admitted,
			wantSet:     []string{"a", "b", "c", "d"},
		},
		{
			name:        "untracked admits like unlimited",
			existing:    []string{"a"},
			candidate:   "b",
			max:         domain.Untracked(),
			wantOutcome: domain.Admitted,
			wantSet:     []string{"a", "b"},
		},
		{
			name:        "already present even when over an unlimited list",
			existing:    []string{"a", "b"},
			candidate:   "a",
			max:         domain.Unlimited(),
			wantOutcome: domain.AlreadyPresent,
			wantSet:     []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, outcome := Admit(tt.existing, tt.candidate, tt.max)
			assert.Equal(t, tt.wantOutcome, outcome)
			assert.Equal(t, tt.wantSet, got)
		})
	}
}

func TestAdmitPreservesInsertionOrder(t *testing.T) {
	set := []string{}
	var outcome domain.AdmissionOutcome
	for _, v := range []string{"c", "a", "b"} {
		set, outcome = Admit(set, v, domain.Unlimited())
		require.Equal(t, domain.Admitted, outcome)
	}
	assert.Equal(t, []string{"c", "a", "b"}, set)
}

func TestAdmitDoesNotMutateInput(t *testing.T) {
	existing := []string{"a"}
	got, outcome := Admit(existing, "b", domain.Bounded(5))
	require.Equal(t, domain.Admitted, outcome)
	assert.Equal(t, []string{"a"}, existing)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestRemaining(t *testing.T) {
	two := 2
	zero := 0
	tests := []struct {
		name     string
		existing []string
		max      domain.Capacity
		want     *int
	}{
		{"bounded with headroom", []string{"a"}, domain.Bounded(3), &two},
		{"bounded full", []string{"a", "b"}, domain.Bounded(2), &zero},
		{"unlimited has no bound", []string{"a"}, domain.Unlimited(), nil},
		{"untracked has no bound", nil, domain.Untracked(), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Remaining(tt.existing, tt.max))
		})
	}
}

func TestCapacityWireRoundTrip(t *testing.T) {
	tests := []struct {
		wire int
		want domain.Capacity
	}{
		{-1, domain.Unlimited()},
		{-2, domain.Untracked()},
		{0, domain.Bounded(0)},
		{5, domain.Bounded(5)},
	}
	for _, tt := range tests {
		c, err := domain.CapacityFromWire(tt.wire)
		require.NoError(t, err)
		assert.Equal(t, tt.want, c)
		assert.Equal(t, tt.wire, c.Wire())
	}

	_, err := domain.CapacityFromWire(-3)
	assert.Error(t, err)
}
