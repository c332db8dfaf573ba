package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/maendeleo/core"
	"github.com/trezcool/maendeleo/core/progress"
)

const recordColumns = "id, user_id, %[1]s AS content_id, status, started_at, completed_at, last_accessed_at, created_at, updated_at"

type levelMeta struct {
	table    string
	fkColumn string
}

var levels = map[progress.Level]levelMeta{
	progress.LevelChunk:    {table: "user_chunk_progress", fkColumn: "content_chunk_id"},
	progress.LevelModule:   {table: "user_module_progress", fkColumn: "module_id"},
	progress.LevelSequence: {table: "user_sequence_progress", fkColumn: "sequence_id"},
	progress.LevelPath:     {table: "user_learning_path_progress", fkColumn: "learning_path_id"},
}

func meta(level progress.Level) (levelMeta, error) {
	m, ok := levels[level]
	if !ok {
		return levelMeta{}, errors.Errorf("unknown progress level: %s", level)
	}
	return m, nil
}

type progressRepository struct {
	db *sqlx.DB
}

var _ progress.Repository = (*progressRepository)(nil)

func NewProgressRepository(db *sql.DB) *progressRepository {
	return &progressRepository{db: sqlx.NewDb(db, core.Conf.Database.Engine)}
}

// getExec returns the service-provided executor if any, the pool otherwise.
// Executors opened by InTransaction are *sqlx.Tx and flow back in here.
func (repo progressRepository) getExec(svcExec []core.DBExecutor) sqlx.ExtContext {
	if len(svcExec) > 0 && svcExec[0] != nil {
		if ext, ok := svcExec[0].(sqlx.ExtContext); ok {
			return ext
		}
	}
	return repo.db
}

func (repo progressRepository) GetProgress(ctx context.Context, level progress.Level, userID, contentID string, exec ...core.DBExecutor) (progress.Record, error) {
	m, err := meta(level)
	if err != nil {
		return progress.Record{}, err
	}

	query := fmt.Sprintf(
		"SELECT "+recordColumns+" FROM %[2]s WHERE user_id = $1 AND %[1]s = $2",
		m.fkColumn, m.table,
	)
	var rec progress.Record
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &rec, query, userID, contentID); err != nil {
		if err == sql.ErrNoRows {
			return progress.Record{}, progress.ErrNotFound
		}
		return progress.Record{}, errors.Wrap(err, "getting progress record")
	}
	return rec, nil
}

func (repo progressRepository) EnsureProgress(ctx context.Context, level progress.Level, userID, contentID string, lastAccessedAt null.Time, exec ...core.DBExecutor) error {
	m, err := meta(level)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(
		"INSERT INTO %[2]s (id, user_id, %[1]s, status, last_accessed_at, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $6) "+
			"ON CONFLICT (user_id, %[1]s) DO NOTHING",
		m.fkColumn, m.table,
	)
	now := progress.NowFunc().UTC()
	_, err = repo.getExec(exec).ExecContext(ctx, query, uuid.New().String(), userID, contentID, progress.StatusNotStarted, lastAccessedAt, now)
	return errors.Wrap(err, "ensuring progress record")
}

func (repo progressRepository) SetProgress(ctx context.Context, level progress.Level, userID, contentID string, patch progress.Patch, exec ...core.DBExecutor) (progress.Record, error) {
	m, err := meta(level)
	if err != nil {
		return progress.Record{}, err
	}

	set := []string{"status = $3", "last_accessed_at = $4", "updated_at = $5"}
	args := []interface{}{userID, contentID, patch.Status, patch.LastAccessedAt, patch.UpdatedAt}
	if patch.SetStartedAt {
		args = append(args, patch.StartedAt)
		set = append(set, fmt.Sprintf("started_at = $%d", len(args)))
	}
	if patch.SetCompletedAt {
		args = append(args, patch.CompletedAt)
		set = append(set, fmt.Sprintf("completed_at = $%d", len(args)))
	}

	query := fmt.Sprintf(
		"UPDATE %[2]s SET %[3]s WHERE user_id = $1 AND %[1]s = $2 RETURNING "+recordColumns,
		m.fkColumn, m.table, strings.Join(set, ", "),
	)
	var rec progress.Record
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &rec, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return progress.Record{}, progress.ErrNotFound
		}
		return progress.Record{}, errors.Wrap(err, "updating progress record")
	}
	return rec, nil
}

func (repo progressRepository) LatestChunkProgress(ctx context.Context, userID string, exec ...core.DBExecutor) (progress.Record, error) {
	query := fmt.Sprintf(
		"SELECT "+recordColumns+" FROM user_chunk_progress "+
			"WHERE user_id = $1 AND last_accessed_at IS NOT NULL "+
			"ORDER BY last_accessed_at DESC LIMIT 1",
		"content_chunk_id",
	)
	var rec progress.Record
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &rec, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return progress.Record{}, progress.ErrNotFound
		}
		return progress.Record{}, errors.Wrap(err, "getting latest chunk progress")
	}
	return rec, nil
}

func (repo progressRepository) ChildCompletion(ctx context.Context, level progress.Level, userID, parentID string, exec ...core.DBExecutor) (progress.CompletionStats, error) {
	var query string
	switch level {
	case progress.LevelModule:
		query = "SELECT COUNT(*) FILTER (WHERE ucp.status = 'completed') AS completed_count, COUNT(*) AS total_count " +
			"FROM content_chunk cc " +
			"LEFT JOIN user_chunk_progress ucp ON ucp.content_chunk_id = cc.id AND ucp.user_id = $1 " +
			"WHERE cc.module_id = $2"
	case progress.LevelSequence:
		query = "SELECT COUNT(*) FILTER (WHERE ump.status = 'completed') AS completed_count, COUNT(*) AS total_count " +
			"FROM sequence_module sm " +
			"LEFT JOIN user_module_progress ump ON ump.module_id = sm.module_id AND ump.user_id = $1 " +
			"WHERE sm.sequence_id = $2"
	case progress.LevelPath:
		query = "SELECT COUNT(*) FILTER (WHERE usp.status = 'completed') AS completed_count, COUNT(*) AS total_count " +
			"FROM learning_path_sequence lps " +
			"LEFT JOIN user_sequence_progress usp ON usp.sequence_id = lps.sequence_id AND usp.user_id = $1 " +
			"WHERE lps.learning_path_id = $2"
	default:
		return progress.CompletionStats{}, errors.Errorf("level %s has no children", level)
	}

	var stats progress.CompletionStats
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &stats, query, userID, parentID); err != nil {
		return progress.CompletionStats{}, errors.Wrap(err, "counting child completion")
	}
	return stats, nil
}

func (repo progressRepository) InTransaction(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrap(rbErr, "rolling back transaction")
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}
