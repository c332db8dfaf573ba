package progress

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/maendeleo/core"
)

var (
	// MinTimestamp is the earliest timestamp accepted on any progress record.
	MinTimestamp = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

	// MaxFutureDelta tolerates clock skew between clients and the server.
	MaxFutureDelta = 24 * time.Hour

	NowFunc = time.Now // mockable

	validTransitions = map[Status][]Status{
		StatusNotStarted: {StatusInProgress},
		StatusInProgress: {StatusCompleted, StatusNotStarted}, // allow resetting
		StatusCompleted:  {StatusInProgress},                  // allow revisiting
	}

	// custom validation tags & texts
	progressStatusTag  = "progressstatus"
	progressStatusText = "must be one of: not_started, in_progress, completed"
)

func init() {
	_ = core.Validate.RegisterValidation(progressStatusTag, progressStatusValidation)
	core.RegisterCustomTranslation(progressStatusTag, progressStatusText)
}

func progressStatusValidation(fl validator.FieldLevel) bool {
	return Status(fl.Field().String()).Valid()
}

// ValidateStatusTransition checks a requested status change against the legal
// transition graph. Self-transitions are always legal so repeated updates are
// idempotent. An unknown status on either side is a validation error.
func ValidateStatusTransition(current, requested Status) error {
	if !current.Valid() {
		return core.NewValidationError(fmt.Errorf("unknown progress status: %s", current))
	}
	if !requested.Valid() {
		return core.NewValidationError(fmt.Errorf("unknown progress status: %s", requested))
	}
	if current == requested {
		return nil
	}
	for _, s := range validTransitions[current] {
		if s == requested {
			return nil
		}
	}
	return &InvalidStatusTransitionError{From: current, To: requested}
}

// ValidateTimestamps enforces the temporal invariants of a progress record.
// It fails fast on the first violation.
func ValidateTimestamps(startedAt, completedAt, lastAccessedAt null.Time) error {
	maxTimestamp := NowFunc().UTC().Add(MaxFutureDelta)
	for _, ts := range []struct {
		name string
		val  null.Time
	}{
		{"started_at", startedAt},
		{"completed_at", completedAt},
		{"last_accessed_at", lastAccessedAt},
	} {
		if !ts.val.Valid {
			continue
		}
		if ts.val.Time.Before(MinTimestamp) {
			return &InvalidTimestampError{Reason: fmt.Sprintf("%s is before %s", ts.name, MinTimestamp.Format("2006-01-02"))}
		}
		if ts.val.Time.After(maxTimestamp) {
			return &InvalidTimestampError{Reason: fmt.Sprintf("%s is too far in the future", ts.name)}
		}
	}

	if completedAt.Valid && !startedAt.Valid {
		return &InvalidTimestampError{Reason: "cannot have completed_at without started_at"}
	}
	if startedAt.Valid && completedAt.Valid && startedAt.Time.After(completedAt.Time) {
		return &InvalidTimestampError{Reason: "started_at cannot be after completed_at"}
	}
	if lastAccessedAt.Valid {
		if startedAt.Valid && lastAccessedAt.Time.Before(startedAt.Time) {
			return &InvalidTimestampError{Reason: "last_accessed_at cannot be before started_at"}
		}
		if completedAt.Valid && lastAccessedAt.Time.Before(completedAt.Time) {
			return &InvalidTimestampError{Reason: "last_accessed_at cannot be before completed_at"}
		}
	}
	return nil
}
