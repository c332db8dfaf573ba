package progress

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/maendeleo/core"
)

// UpdateQueue buffers chunk progress updates for batched application. It is
// injected into the service; create one per process, not per request.
type UpdateQueue struct {
	repo Repository

	mu      sync.Mutex
	updates []DeferredChunkUpdate
}

func NewUpdateQueue(repo Repository) *UpdateQueue {
	return &UpdateQueue{repo: repo}
}

// Add buffers an update after checking its required fields.
func (q *UpdateQueue) Add(update DeferredChunkUpdate) error {
	var flds []core.FieldError
	if update.UserID == "" {
		flds = append(flds, core.FieldError{Field: "user_id", Error: "this field is required"})
	}
	if update.ContentChunkID == "" {
		flds = append(flds, core.FieldError{Field: "content_chunk_id", Error: "this field is required"})
	}
	if update.Timestamp.IsZero() {
		flds = append(flds, core.FieldError{Field: "timestamp", Error: "this field is required"})
	}
	if !update.Status.Valid() {
		flds = append(flds, core.FieldError{Field: "status", Error: fmt.Sprintf("unknown progress status: %s", update.Status)})
	}
	if flds != nil {
		return core.NewValidationError(errors.New("invalid deferred update"), flds...)
	}

	q.mu.Lock()
	q.updates = append(q.updates, update)
	q.mu.Unlock()
	return nil
}

// Len returns the number of buffered updates.
func (q *UpdateQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.updates)
}

// Flush applies the buffered updates in a single DB transaction. The buffer is
// snapshotted and cleared up front, so updates added concurrently land in the
// next flush and the buffer never replays a failed batch. When several updates
// target the same (user, chunk), only the one with the latest timestamp is
// applied.
func (q *UpdateQueue) Flush(ctx context.Context) error {
	q.mu.Lock()
	updates := q.updates
	q.updates = nil
	q.mu.Unlock()

	if len(updates) == 0 {
		return nil
	}

	// last write wins per (user, chunk)
	latest := make(map[string]DeferredChunkUpdate, len(updates))
	keys := make([]string, 0, len(updates))
	for _, u := range updates {
		key := u.UserID + ":" + u.ContentChunkID
		prev, ok := latest[key]
		if !ok {
			keys = append(keys, key)
		}
		if !ok || prev.Timestamp.Before(u.Timestamp) {
			latest[key] = u
		}
	}

	return q.repo.InTransaction(ctx, func(exec core.DBExecutor) error {
		for _, key := range keys {
			if err := q.apply(ctx, latest[key], exec); err != nil {
				return err
			}
		}
		return nil
	})
}

func (q *UpdateQueue) apply(ctx context.Context, u DeferredChunkUpdate, exec core.DBExecutor) error {
	// the record may have been created before the flush or not at all; recreate
	// it rather than fail on a missing row
	if err := q.repo.EnsureProgress(ctx, LevelChunk, u.UserID, u.ContentChunkID, null.TimeFrom(u.Timestamp), exec); err != nil {
		return &QueueError{Op: "ensure", Err: err}
	}

	current, err := q.repo.GetProgress(ctx, LevelChunk, u.UserID, u.ContentChunkID, exec)
	if err != nil {
		return &QueueError{Op: "select", Err: err}
	}

	// the stored status may have moved since the update was buffered;
	// re-validate against it
	if err := ValidateStatusTransition(current.Status, u.Status); err != nil {
		return &QueueError{Op: "update", Err: err}
	}

	patch := Patch{
		Status:         u.Status,
		SetCompletedAt: true, // completed_at mirrors the buffered timestamp, cleared otherwise
		LastAccessedAt: u.Timestamp,
		UpdatedAt:      NowFunc().UTC(),
	}
	if u.Status == StatusCompleted {
		patch.CompletedAt = null.TimeFrom(u.Timestamp)
	}
	if u.Status == StatusInProgress && !current.StartedAt.Valid {
		patch.SetStartedAt = true
		patch.StartedAt = null.TimeFrom(u.Timestamp)
	}

	if _, err := q.repo.SetProgress(ctx, LevelChunk, u.UserID, u.ContentChunkID, patch, exec); err != nil {
		return &QueueError{Op: "update", Err: err}
	}
	return nil
}
