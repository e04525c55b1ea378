package billing

import (
	"context"
	"testing"
)

func TestReconcileSkipsIncompletePlan(t *testing.T) {
	s := NewStore()

	tests := []struct {
		name         string
		planID       string
		billingCycle string
	}{
		{"both empty", "", ""},
		{"missing cycle", "pro", ""},
		{"missing plan", "", "monthly"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// A nil Querier proves the database is never touched on the
			// skip path.
			sub, err := s.Reconcile(context.Background(), nil, "u-1", "w-1", tt.planID, tt.billingCycle)
			if err != nil {
				t.Fatalf("expected skip, got error: %v", err)
			}
			if sub != nil {
				t.Errorf("expected nil subscription, got %+v", sub)
			}
		})
	}
}
