package inmemdb

import (
	"context"

	"github.com/trezcool/maendeleo/core"
	"github.com/trezcool/maendeleo/core/content"
)

type contentRepository struct {
	db *DB
}

var _ content.Repository = (*contentRepository)(nil)

func NewContentRepository(db *DB) *contentRepository {
	return &contentRepository{db: db}
}

func (repo *contentRepository) GetChunk(_ context.Context, id string, _ ...core.DBExecutor) (content.Chunk, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if chunk, ok := repo.db.chunks[id]; ok {
		return chunk, nil
	}
	return content.Chunk{}, content.ErrNotFound
}

func (repo *contentRepository) GetModule(_ context.Context, id string, _ ...core.DBExecutor) (content.Module, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if mod, ok := repo.db.modules[id]; ok {
		return mod, nil
	}
	return content.Module{}, content.ErrNotFound
}

func (repo *contentRepository) GetSequence(_ context.Context, id string, _ ...core.DBExecutor) (content.Sequence, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if seq, ok := repo.db.sequences[id]; ok {
		return seq, nil
	}
	return content.Sequence{}, content.ErrNotFound
}

func (repo *contentRepository) GetLearningPath(_ context.Context, id string, _ ...core.DBExecutor) (content.LearningPath, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if path, ok := repo.db.paths[id]; ok {
		return path, nil
	}
	return content.LearningPath{}, content.ErrNotFound
}

func (repo *contentRepository) ModuleExists(_ context.Context, id string, _ ...core.DBExecutor) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	_, ok := repo.db.modules[id]
	return ok, nil
}

func (repo *contentRepository) SequenceExists(_ context.Context, id string, _ ...core.DBExecutor) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	_, ok := repo.db.sequences[id]
	return ok, nil
}

func (repo *contentRepository) LearningPathExists(_ context.Context, id string, _ ...core.DBExecutor) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	_, ok := repo.db.paths[id]
	return ok, nil
}

func (repo *contentRepository) SequenceIDsForModule(_ context.Context, moduleID string, _ ...core.DBExecutor) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var ids []string
	for _, seq := range repo.db.sequences {
		for _, modID := range repo.db.sequenceModules[seq.ID] {
			if modID == moduleID {
				ids = append(ids, seq.ID)
				break
			}
		}
	}
	return ids, nil
}

func (repo *contentRepository) PathIDsForSequence(_ context.Context, sequenceID string, _ ...core.DBExecutor) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var ids []string
	for _, path := range repo.db.paths {
		for _, seqID := range repo.db.pathSequences[path.ID] {
			if seqID == sequenceID {
				ids = append(ids, path.ID)
				break
			}
		}
	}
	return ids, nil
}
