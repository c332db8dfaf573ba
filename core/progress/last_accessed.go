package progress

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/maendeleo/core"
	"github.com/trezcool/maendeleo/core/content"
)

// GetLastAccessedContent walks upwards from the chunk with the most recent
// last_accessed_at: its module, the first sequence containing that module and
// the first learning path containing that sequence. A user with no progress
// gets an empty snapshot, not an error; an orphaned chunk (content removed
// since) stops the walk at the chunk.
func (svc *service) GetLastAccessedContent(ctx context.Context, userID string) (LastAccessedContent, error) {
	var lac LastAccessedContent
	if userID == "" {
		return lac, core.NewValidationError(errors.New("user ID is required"))
	}

	last, err := svc.repo.LatestChunkProgress(ctx, userID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return lac, nil
		}
		return lac, wrapDBErr("select", err)
	}

	chunkProg := newChunkProgress(last)
	lac.Chunk = &chunkProg

	chunk, err := svc.contentRepo.GetChunk(ctx, last.ContentID)
	if err != nil {
		if errors.Cause(err) == content.ErrNotFound {
			return lac, nil
		}
		return lac, wrapDBErr("select", err)
	}
	lac.Chunk.Title = chunk.Title.String

	moduleProg, err := svc.moduleProgress(ctx, userID, chunk.ModuleID)
	if err != nil {
		return lac, err
	}
	lac.Module = &moduleProg

	seqIDs, err := svc.contentRepo.SequenceIDsForModule(ctx, chunk.ModuleID)
	if err != nil {
		return lac, wrapDBErr("select", err)
	}
	if len(seqIDs) == 0 {
		return lac, nil // module not part of any sequence yet
	}
	seqProg, err := svc.sequenceProgress(ctx, userID, seqIDs[0])
	if err != nil {
		return lac, err
	}
	lac.Sequence = &seqProg

	pathIDs, err := svc.contentRepo.PathIDsForSequence(ctx, seqIDs[0])
	if err != nil {
		return lac, wrapDBErr("select", err)
	}
	if len(pathIDs) == 0 {
		return lac, nil
	}
	pathProg, err := svc.learningPathProgress(ctx, userID, pathIDs[0])
	if err != nil {
		return lac, err
	}
	lac.LearningPath = &pathProg

	return lac, nil
}

func (svc *service) moduleProgress(ctx context.Context, userID, moduleID string) (ModuleProgress, error) {
	rec, err := svc.repo.GetProgress(ctx, LevelModule, userID, moduleID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			// the cascade creates this record whenever a chunk is touched with
			// update_parents; a missing one means the hierarchy is inconsistent
			return ModuleProgress{}, &LastAccessedContentError{Reason: fmt.Sprintf("no module progress for module %s", moduleID)}
		}
		return ModuleProgress{}, wrapDBErr("select", err)
	}

	stats, err := svc.repo.ChildCompletion(ctx, LevelModule, userID, moduleID)
	if err != nil {
		return ModuleProgress{}, wrapDBErr("select", err)
	}

	prog := ModuleProgress{
		Record:          rec,
		ModuleID:        rec.ContentID,
		CompletedChunks: stats.Completed,
		TotalChunks:     stats.Total,
	}
	if mod, err := svc.contentRepo.GetModule(ctx, moduleID); err == nil {
		prog.Title = mod.Title
	}
	return prog, nil
}

func (svc *service) sequenceProgress(ctx context.Context, userID, sequenceID string) (SequenceProgress, error) {
	rec, err := svc.repo.GetProgress(ctx, LevelSequence, userID, sequenceID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return SequenceProgress{}, &LastAccessedContentError{Reason: fmt.Sprintf("no sequence progress for sequence %s", sequenceID)}
		}
		return SequenceProgress{}, wrapDBErr("select", err)
	}

	stats, err := svc.repo.ChildCompletion(ctx, LevelSequence, userID, sequenceID)
	if err != nil {
		return SequenceProgress{}, wrapDBErr("select", err)
	}

	prog := SequenceProgress{
		Record:           rec,
		SequenceID:       rec.ContentID,
		CompletedModules: stats.Completed,
		TotalModules:     stats.Total,
	}
	if seq, err := svc.contentRepo.GetSequence(ctx, sequenceID); err == nil {
		prog.Title = seq.Title
	}
	return prog, nil
}

func (svc *service) learningPathProgress(ctx context.Context, userID, pathID string) (LearningPathProgress, error) {
	rec, err := svc.repo.GetProgress(ctx, LevelPath, userID, pathID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return LearningPathProgress{}, &LastAccessedContentError{Reason: fmt.Sprintf("no learning path progress for path %s", pathID)}
		}
		return LearningPathProgress{}, wrapDBErr("select", err)
	}

	stats, err := svc.repo.ChildCompletion(ctx, LevelPath, userID, pathID)
	if err != nil {
		return LearningPathProgress{}, wrapDBErr("select", err)
	}

	prog := LearningPathProgress{
		Record:             rec,
		LearningPathID:     rec.ContentID,
		CompletedSequences: stats.Completed,
		TotalSequences:     stats.Total,
	}
	if path, err := svc.contentRepo.GetLearningPath(ctx, pathID); err == nil {
		prog.Title = path.Title
	}
	return prog, nil
}
