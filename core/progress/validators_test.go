package progress

import (
	"errors"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/maendeleo/core"
)

func Test_ValidateStatusTransition(t *testing.T) {
	tests := []struct {
		name      string
		current   Status
		requested Status
		wantLegal bool
	}{
		{name: "not_started -> in_progress", current: StatusNotStarted, requested: StatusInProgress, wantLegal: true},
		{name: "not_started -> completed", current: StatusNotStarted, requested: StatusCompleted},
		{name: "in_progress -> completed", current: StatusInProgress, requested: StatusCompleted, wantLegal: true},
		{name: "in_progress -> not_started (reset)", current: StatusInProgress, requested: StatusNotStarted, wantLegal: true},
		{name: "completed -> in_progress (revisit)", current: StatusCompleted, requested: StatusInProgress, wantLegal: true},
		{name: "completed -> not_started", current: StatusCompleted, requested: StatusNotStarted},
		{name: "not_started -> not_started (self)", current: StatusNotStarted, requested: StatusNotStarted, wantLegal: true},
		{name: "in_progress -> in_progress (self)", current: StatusInProgress, requested: StatusInProgress, wantLegal: true},
		{name: "completed -> completed (self)", current: StatusCompleted, requested: StatusCompleted, wantLegal: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStatusTransition(tt.current, tt.requested)
			if tt.wantLegal {
				if err != nil {
					t.Errorf("ValidateStatusTransition() = %v; want nil", err)
				}
				return
			}
			var transitionErr *InvalidStatusTransitionError
			if !errors.As(err, &transitionErr) {
				t.Fatalf("ValidateStatusTransition() = %v; want InvalidStatusTransitionError", err)
			}
			if transitionErr.From != tt.current || transitionErr.To != tt.requested {
				t.Errorf("ValidateStatusTransition() = %v; want from=%s to=%s", transitionErr, tt.current, tt.requested)
			}
		})
	}
}

func Test_ValidateStatusTransition_unknownStatus(t *testing.T) {
	var validationErr *core.ValidationError

	if err := ValidateStatusTransition("paused", StatusInProgress); !errors.As(err, &validationErr) {
		t.Errorf("ValidateStatusTransition() = %v; want ValidationError", err)
	}
	if err := ValidateStatusTransition(StatusInProgress, "paused"); !errors.As(err, &validationErr) {
		t.Errorf("ValidateStatusTransition() = %v; want ValidationError", err)
	}
}

func Test_ValidateTimestamps(t *testing.T) {
	now := time.Now().UTC()
	earlier := now.Add(-1 * time.Hour)
	later := now.Add(1 * time.Hour)

	tests := []struct {
		name           string
		startedAt      null.Time
		completedAt    null.Time
		lastAccessedAt null.Time
		wantErr        bool
	}{
		{name: "all null"},
		{name: "started only", startedAt: null.TimeFrom(earlier)},
		{name: "full valid set", startedAt: null.TimeFrom(earlier), completedAt: null.TimeFrom(now), lastAccessedAt: null.TimeFrom(now)},
		{name: "completed without started", completedAt: null.TimeFrom(now), wantErr: true},
		{name: "started after completed", startedAt: null.TimeFrom(now), completedAt: null.TimeFrom(earlier), wantErr: true},
		{name: "last access before started", startedAt: null.TimeFrom(now), lastAccessedAt: null.TimeFrom(earlier), wantErr: true},
		{
			name: "last access before completed", startedAt: null.TimeFrom(earlier), completedAt: null.TimeFrom(later),
			lastAccessedAt: null.TimeFrom(now), wantErr: true,
		},
		{name: "before 2020 epoch", startedAt: null.TimeFrom(time.Date(2019, 12, 31, 23, 59, 59, 0, time.UTC)), wantErr: true},
		{name: "too far in the future", startedAt: null.TimeFrom(now.Add(25 * time.Hour)), wantErr: true},
		{name: "within clock skew tolerance", startedAt: null.TimeFrom(now.Add(23 * time.Hour))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTimestamps(tt.startedAt, tt.completedAt, tt.lastAccessedAt)
			if !tt.wantErr {
				if err != nil {
					t.Errorf("ValidateTimestamps() = %v; want nil", err)
				}
				return
			}
			var timestampErr *InvalidTimestampError
			if !errors.As(err, &timestampErr) {
				t.Errorf("ValidateTimestamps() = %v; want InvalidTimestampError", err)
			}
		})
	}
}

func Test_CompletionStats_DeriveStatus(t *testing.T) {
	tests := []struct {
		name  string
		stats CompletionStats
		want  Status
	}{
		{name: "no children", stats: CompletionStats{}, want: StatusNotStarted},
		{name: "none completed", stats: CompletionStats{Completed: 0, Total: 3}, want: StatusNotStarted},
		{name: "some completed", stats: CompletionStats{Completed: 1, Total: 3}, want: StatusInProgress},
		{name: "all completed", stats: CompletionStats{Completed: 3, Total: 3}, want: StatusCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stats.DeriveStatus(); got != tt.want {
				t.Errorf("DeriveStatus() = %s; want %s", got, tt.want)
			}
		})
	}
}
