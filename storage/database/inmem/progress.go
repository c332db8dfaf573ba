package inmemdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/maendeleo/core"
	"github.com/trezcool/maendeleo/core/progress"
)

type progressRepository struct {
	db *DB
}

var _ progress.Repository = (*progressRepository)(nil)

func NewProgressRepository(db *DB) *progressRepository {
	return &progressRepository{db: db}
}

func (repo *progressRepository) GetProgress(_ context.Context, level progress.Level, userID, contentID string, _ ...core.DBExecutor) (progress.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if repo.db.err != nil {
		return progress.Record{}, repo.db.err
	}
	if rec, ok := repo.db.records[level][recordKey(userID, contentID)]; ok {
		return rec, nil
	}
	return progress.Record{}, progress.ErrNotFound
}

func (repo *progressRepository) EnsureProgress(_ context.Context, level progress.Level, userID, contentID string, lastAccessedAt null.Time, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.db.err != nil {
		return repo.db.err
	}
	key := recordKey(userID, contentID)
	if _, ok := repo.db.records[level][key]; ok {
		return nil
	}
	now := progress.NowFunc().UTC()
	repo.db.records[level][key] = progress.Record{
		ID:             uuid.New().String(),
		UserID:         userID,
		ContentID:      contentID,
		Status:         progress.StatusNotStarted,
		LastAccessedAt: lastAccessedAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return nil
}

func (repo *progressRepository) SetProgress(_ context.Context, level progress.Level, userID, contentID string, patch progress.Patch, _ ...core.DBExecutor) (progress.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.db.err != nil {
		return progress.Record{}, repo.db.err
	}
	key := recordKey(userID, contentID)
	rec, ok := repo.db.records[level][key]
	if !ok {
		return progress.Record{}, progress.ErrNotFound
	}

	rec.Status = patch.Status
	if patch.SetStartedAt {
		rec.StartedAt = patch.StartedAt
	}
	if patch.SetCompletedAt {
		rec.CompletedAt = patch.CompletedAt
	}
	rec.LastAccessedAt = null.TimeFrom(patch.LastAccessedAt)
	rec.UpdatedAt = patch.UpdatedAt
	repo.db.records[level][key] = rec
	return rec, nil
}

func (repo *progressRepository) LatestChunkProgress(_ context.Context, userID string, _ ...core.DBExecutor) (progress.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if repo.db.err != nil {
		return progress.Record{}, repo.db.err
	}
	var (
		latest progress.Record
		found  bool
	)
	for _, rec := range repo.db.records[progress.LevelChunk] {
		if rec.UserID != userID || !rec.LastAccessedAt.Valid {
			continue
		}
		if !found || rec.LastAccessedAt.Time.After(latest.LastAccessedAt.Time) {
			latest = rec
			found = true
		}
	}
	if !found {
		return progress.Record{}, progress.ErrNotFound
	}
	return latest, nil
}

func (repo *progressRepository) ChildCompletion(_ context.Context, level progress.Level, userID, parentID string, _ ...core.DBExecutor) (progress.CompletionStats, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if repo.db.err != nil {
		return progress.CompletionStats{}, repo.db.err
	}

	var stats progress.CompletionStats
	count := func(childLevel progress.Level, childID string) {
		stats.Total++
		if rec, ok := repo.db.records[childLevel][recordKey(userID, childID)]; ok && rec.Status == progress.StatusCompleted {
			stats.Completed++
		}
	}

	switch level {
	case progress.LevelModule:
		for _, chunk := range repo.db.chunks {
			if chunk.ModuleID == parentID {
				count(progress.LevelChunk, chunk.ID)
			}
		}
	case progress.LevelSequence:
		for _, modID := range repo.db.sequenceModules[parentID] {
			count(progress.LevelModule, modID)
		}
	case progress.LevelPath:
		for _, seqID := range repo.db.pathSequences[parentID] {
			count(progress.LevelSequence, seqID)
		}
	}
	return stats, nil
}

func (repo *progressRepository) InTransaction(_ context.Context, fn func(exec core.DBExecutor) error) error {
	return fn(nil)
}
