package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/maendeleo/core"
	"github.com/trezcool/maendeleo/core/content"
)

type contentRepository struct {
	db *sqlx.DB
}

var _ content.Repository = (*contentRepository)(nil)

func NewContentRepository(db *sql.DB) *contentRepository {
	return &contentRepository{db: sqlx.NewDb(db, core.Conf.Database.Engine)}
}

func (repo contentRepository) getExec(svcExec []core.DBExecutor) sqlx.ExtContext {
	if len(svcExec) > 0 && svcExec[0] != nil {
		if ext, ok := svcExec[0].(sqlx.ExtContext); ok {
			return ext
		}
	}
	return repo.db
}

func (repo contentRepository) GetChunk(ctx context.Context, id string, exec ...core.DBExecutor) (content.Chunk, error) {
	query := "SELECT id, module_id, title, sequence_order, created_at, updated_at FROM content_chunk WHERE id = $1"
	var chunk content.Chunk
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &chunk, query, id); err != nil {
		if err == sql.ErrNoRows {
			return content.Chunk{}, content.ErrNotFound
		}
		return content.Chunk{}, errors.Wrap(err, "getting content chunk")
	}
	return chunk, nil
}

func (repo contentRepository) GetModule(ctx context.Context, id string, exec ...core.DBExecutor) (content.Module, error) {
	query := "SELECT id, title, slug, description, created_at, updated_at FROM module WHERE id = $1"
	var mod content.Module
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &mod, query, id); err != nil {
		if err == sql.ErrNoRows {
			return content.Module{}, content.ErrNotFound
		}
		return content.Module{}, errors.Wrap(err, "getting module")
	}
	return mod, nil
}

func (repo contentRepository) GetSequence(ctx context.Context, id string, exec ...core.DBExecutor) (content.Sequence, error) {
	query := "SELECT id, title, slug, description, created_at, updated_at FROM sequence WHERE id = $1"
	var seq content.Sequence
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &seq, query, id); err != nil {
		if err == sql.ErrNoRows {
			return content.Sequence{}, content.ErrNotFound
		}
		return content.Sequence{}, errors.Wrap(err, "getting sequence")
	}
	return seq, nil
}

func (repo contentRepository) GetLearningPath(ctx context.Context, id string, exec ...core.DBExecutor) (content.LearningPath, error) {
	query := "SELECT id, title, slug, description, created_at, updated_at FROM learning_path WHERE id = $1"
	var path content.LearningPath
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &path, query, id); err != nil {
		if err == sql.ErrNoRows {
			return content.LearningPath{}, content.ErrNotFound
		}
		return content.LearningPath{}, errors.Wrap(err, "getting learning path")
	}
	return path, nil
}

func (repo contentRepository) exists(ctx context.Context, table, id string, exec []core.DBExecutor) (bool, error) {
	query := "SELECT EXISTS (SELECT 1 FROM " + table + " WHERE id = $1)"
	var exists bool
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &exists, query, id); err != nil {
		return false, errors.Wrapf(err, "checking %s existence", table)
	}
	return exists, nil
}

func (repo contentRepository) ModuleExists(ctx context.Context, id string, exec ...core.DBExecutor) (bool, error) {
	return repo.exists(ctx, "module", id, exec)
}

func (repo contentRepository) SequenceExists(ctx context.Context, id string, exec ...core.DBExecutor) (bool, error) {
	return repo.exists(ctx, "sequence", id, exec)
}

func (repo contentRepository) LearningPathExists(ctx context.Context, id string, exec ...core.DBExecutor) (bool, error) {
	return repo.exists(ctx, "learning_path", id, exec)
}

func (repo contentRepository) SequenceIDsForModule(ctx context.Context, moduleID string, exec ...core.DBExecutor) ([]string, error) {
	query := "SELECT sequence_id FROM sequence_module WHERE module_id = $1 ORDER BY position"
	var ids []string
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &ids, query, moduleID); err != nil {
		return nil, errors.Wrap(err, "getting sequences for module")
	}
	return ids, nil
}

func (repo contentRepository) PathIDsForSequence(ctx context.Context, sequenceID string, exec ...core.DBExecutor) ([]string, error) {
	query := "SELECT learning_path_id FROM learning_path_sequence WHERE sequence_id = $1 ORDER BY position"
	var ids []string
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &ids, query, sequenceID); err != nil {
		return nil, errors.Wrap(err, "getting learning paths for sequence")
	}
	return ids, nil
}
