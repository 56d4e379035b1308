package fsm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/openroost/gatehouse/internal/adapter/fsm"
	"github.com/openroost/gatehouse/internal/domain"
)

func TestApply_ValidTransitions(t *testing.T) {
	v := fsm.New()
	ctx := context.Background()

	cases := []struct {
		current domain.State
		event   domain.Event
		want    domain.State
	}{
		{domain.StateRequested, domain.EventApprove, domain.StateApproved},
		{domain.StateRequested, domain.EventReject, domain.StateRejected},
		{domain.StateApproved, domain.EventCheckIn, domain.StateCheckedIn},
		{domain.StateApproved, domain.EventExpire, domain.StateExpired},
	}

	for _, tc := range cases {
		t.Run(string(tc.current)+"_"+string(tc.event), func(t *testing.T) {
			got, err := v.Apply(ctx, tc.current, tc.event)
			if err != nil {
				t.Fatalf("Apply failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("Apply = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestApply_InvalidTransitions(t *testing.T) {
	v := fsm.New()
	ctx := context.Background()

	cases := []struct {
		current domain.State
		event   domain.Event
	}{
		// Approval is legal only from requested.
		{domain.StateApproved, domain.EventApprove},
		{domain.StateCheckedIn, domain.EventApprove},
		{domain.StateRejected, domain.EventApprove},
		{domain.StateExpired, domain.EventApprove},
		// Check-in is legal only from approved.
		{domain.StateRequested, domain.EventCheckIn},
		{domain.StateCheckedIn, domain.EventCheckIn},
		{domain.StateRejected, domain.EventCheckIn},
		{domain.StateExpired, domain.EventCheckIn},
		// Terminal states accept nothing.
		{domain.StateCheckedIn, domain.EventReject},
		{domain.StateApproved, domain.EventReject},
	}

	for _, tc := range cases {
		t.Run(string(tc.current)+"_"+string(tc.event), func(t *testing.T) {
			_, err := v.Apply(ctx, tc.current, tc.event)

			var trErr *domain.TransitionError
			if !errors.As(err, &trErr) {
				t.Fatalf("expected TransitionError, got %v", err)
			}
			if trErr.Event != tc.event {
				t.Errorf("Event = %q, want %q", trErr.Event, tc.event)
			}
			if trErr.Current != tc.current {
				t.Errorf("Current = %q, want %q", trErr.Current, tc.current)
			}
		})
	}
}
