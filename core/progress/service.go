package progress

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/maendeleo/core"
	"github.com/trezcool/maendeleo/core/content"
)

type (
	Service interface {
		// UpdateChunkProgress records a user-declared chunk status change and,
		// when opts.UpdateParents is set and the chunk completes, recomputes the
		// module/sequence/learning-path progress above it. With
		// opts.DeferChunkUpdates the write is buffered and the returned record
		// reflects the projected, not yet persisted, state.
		UpdateChunkProgress(ctx context.Context, userID, contentChunkID string, newStatus Status, opts UpdateOptions) (ChunkProgress, error)
		// GetLastAccessedContent resolves the user's most recently accessed
		// chunk and its module, sequence and learning path progress.
		GetLastAccessedContent(ctx context.Context, userID string) (LastAccessedContent, error)
		// GetReturningUserContext builds the welcome-back context shown when a
		// user returns to the platform.
		GetReturningUserContext(ctx context.Context, userID string) (ReturningUserContext, error)
		// FlushDeferredUpdates applies all buffered chunk updates.
		FlushDeferredUpdates(ctx context.Context) error
	}

	service struct {
		repo        Repository
		contentRepo content.Repository
		queue       *UpdateQueue
		log         core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, contentRepo content.Repository, queue *UpdateQueue, log core.Logger) Service {
	return &service{
		repo:        repo,
		contentRepo: contentRepo,
		queue:       queue,
		log:         log,
	}
}

// ensureProgressRecord lazily creates the (user, content) record at the given
// level. Chunk records get last_accessed_at stamped at creation since ensuring
// one means the user is touching it right now; parent records do not.
func (svc *service) ensureProgressRecord(ctx context.Context, level Level, userID, contentID string, exec ...core.DBExecutor) error {
	switch level {
	case LevelChunk:
		if _, err := svc.contentRepo.GetChunk(ctx, contentID, exec...); err != nil {
			if errors.Cause(err) == content.ErrNotFound {
				return &ContentNotFoundError{ContentType: "content chunk", ContentID: contentID}
			}
			return wrapDBErr("select", err)
		}
		now := null.TimeFrom(NowFunc().UTC())
		return wrapDBErr("insert", svc.repo.EnsureProgress(ctx, level, userID, contentID, now, exec...))

	case LevelModule, LevelSequence, LevelPath:
		var (
			exists      bool
			err         error
			contentType string
		)
		switch level {
		case LevelModule:
			exists, err = svc.contentRepo.ModuleExists(ctx, contentID, exec...)
			contentType = "module"
		case LevelSequence:
			exists, err = svc.contentRepo.SequenceExists(ctx, contentID, exec...)
			contentType = "sequence"
		default:
			exists, err = svc.contentRepo.LearningPathExists(ctx, contentID, exec...)
			contentType = "learning path"
		}
		if err != nil {
			return wrapDBErr("select", err)
		}
		if !exists {
			return &ContentNotFoundError{ContentType: contentType, ContentID: contentID}
		}
		return wrapDBErr("insert", svc.repo.EnsureProgress(ctx, level, userID, contentID, null.Time{}, exec...))
	}
	return errors.Errorf("unknown progress level: %s", level)
}

func (svc *service) UpdateChunkProgress(ctx context.Context, userID, contentChunkID string, newStatus Status, opts UpdateOptions) (ChunkProgress, error) {
	if err := svc.ensureProgressRecord(ctx, LevelChunk, userID, contentChunkID); err != nil {
		return ChunkProgress{}, err
	}

	current, err := svc.repo.GetProgress(ctx, LevelChunk, userID, contentChunkID)
	if err != nil {
		return ChunkProgress{}, wrapDBErr("select", err)
	}

	if err := ValidateStatusTransition(current.Status, newStatus); err != nil {
		return ChunkProgress{}, err
	}

	now := NowFunc().UTC()
	patch := Patch{Status: newStatus, LastAccessedAt: now, UpdatedAt: now}
	if newStatus == StatusInProgress && current.Status == StatusNotStarted {
		patch.SetStartedAt = true
		patch.StartedAt = null.TimeFrom(now)
	} else if newStatus == StatusCompleted {
		patch.SetCompletedAt = true
		patch.CompletedAt = null.TimeFrom(now)
	}

	// the patched record must still satisfy the temporal invariants
	startedAt := current.StartedAt
	if patch.SetStartedAt {
		startedAt = patch.StartedAt
	}
	completedAt := current.CompletedAt
	if patch.SetCompletedAt {
		completedAt = patch.CompletedAt
	}
	if err := ValidateTimestamps(startedAt, completedAt, null.TimeFrom(now)); err != nil {
		return ChunkProgress{}, err
	}

	if opts.DeferChunkUpdates {
		err := svc.queue.Add(DeferredChunkUpdate{
			UserID:         userID,
			ContentChunkID: contentChunkID,
			Status:         newStatus,
			Timestamp:      now,
		})
		if err != nil {
			return ChunkProgress{}, err
		}
		projected := current
		projected.Status = newStatus
		projected.StartedAt = startedAt
		projected.CompletedAt = completedAt
		projected.LastAccessedAt = null.TimeFrom(now)
		projected.UpdatedAt = now
		return newChunkProgress(projected), nil
	}

	updated, err := svc.repo.SetProgress(ctx, LevelChunk, userID, contentChunkID, patch)
	if err != nil {
		return ChunkProgress{}, wrapDBErr("update", err)
	}

	if opts.UpdateParents && updated.Status == StatusCompleted {
		// the chunk write above is not rolled back on cascade failure; the
		// parents are recomputed on the next completion
		if err := svc.updateModuleProgress(ctx, userID, contentChunkID); err != nil {
			return ChunkProgress{}, err
		}
	}

	return newChunkProgress(updated), nil
}

func (svc *service) FlushDeferredUpdates(ctx context.Context) error {
	return svc.queue.Flush(ctx)
}

func newChunkProgress(rec Record) ChunkProgress {
	return ChunkProgress{Record: rec, ContentChunkID: rec.ContentID}
}

// setDerivedProgress writes a recomputed parent status. The transition
// validator is bypassed: the status is derived from child counts, not
// user-declared, and completed -> not_started is a legal derivation.
func (svc *service) setDerivedProgress(ctx context.Context, level Level, userID, contentID string, status Status) error {
	now := NowFunc().UTC()
	patch := Patch{
		Status:         status,
		SetCompletedAt: true, // cleared unless completed
		LastAccessedAt: now,
		UpdatedAt:      now,
	}
	if status == StatusCompleted {
		patch.CompletedAt = null.TimeFrom(now)
	}
	_, err := svc.repo.SetProgress(ctx, level, userID, contentID, patch)
	return wrapDBErr("update", err)
}

// updateModuleProgress recomputes the progress of the module containing the
// chunk, then cascades upwards when the module completes.
func (svc *service) updateModuleProgress(ctx context.Context, userID, contentChunkID string) error {
	chunk, err := svc.contentRepo.GetChunk(ctx, contentChunkID)
	if err != nil {
		if errors.Cause(err) == content.ErrNotFound {
			return nil // chunk removed since; nothing to recompute
		}
		return wrapDBErr("select", err)
	}

	if err := svc.ensureProgressRecord(ctx, LevelModule, userID, chunk.ModuleID); err != nil {
		return err
	}

	stats, err := svc.repo.ChildCompletion(ctx, LevelModule, userID, chunk.ModuleID)
	if err != nil {
		return wrapDBErr("select", err)
	}

	status := stats.DeriveStatus()
	if err := svc.setDerivedProgress(ctx, LevelModule, userID, chunk.ModuleID, status); err != nil {
		return err
	}

	if status == StatusCompleted {
		return svc.updateSequenceProgress(ctx, userID, chunk.ModuleID)
	}
	return nil
}

// updateSequenceProgress recomputes every sequence containing the module.
func (svc *service) updateSequenceProgress(ctx context.Context, userID, moduleID string) error {
	seqIDs, err := svc.contentRepo.SequenceIDsForModule(ctx, moduleID)
	if err != nil {
		return wrapDBErr("select", err)
	}

	for _, seqID := range seqIDs {
		if err := svc.ensureProgressRecord(ctx, LevelSequence, userID, seqID); err != nil {
			return err
		}
		stats, err := svc.repo.ChildCompletion(ctx, LevelSequence, userID, seqID)
		if err != nil {
			return wrapDBErr("select", err)
		}
		status := stats.DeriveStatus()
		if err := svc.setDerivedProgress(ctx, LevelSequence, userID, seqID, status); err != nil {
			return err
		}
		if status == StatusCompleted {
			if err := svc.updateLearningPathProgress(ctx, userID, seqID); err != nil {
				return err
			}
		}
	}
	return nil
}

// updateLearningPathProgress recomputes every learning path containing the sequence.
func (svc *service) updateLearningPathProgress(ctx context.Context, userID, sequenceID string) error {
	pathIDs, err := svc.contentRepo.PathIDsForSequence(ctx, sequenceID)
	if err != nil {
		return wrapDBErr("select", err)
	}

	for _, pathID := range pathIDs {
		if err := svc.ensureProgressRecord(ctx, LevelPath, userID, pathID); err != nil {
			return err
		}
		stats, err := svc.repo.ChildCompletion(ctx, LevelPath, userID, pathID)
		if err != nil {
			return wrapDBErr("select", err)
		}
		if err := svc.setDerivedProgress(ctx, LevelPath, userID, pathID, stats.DeriveStatus()); err != nil {
			return err
		}
	}
	return nil
}
