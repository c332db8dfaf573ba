// Package content exposes read access to the learning content hierarchy:
// learning paths contain ordered sequences, sequences contain ordered modules
// and modules contain ordered content chunks. Content is authored in the
// studio; this service never mutates it.
package content

import (
	"context"
	"errors"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/maendeleo/core"
)

var ErrNotFound = errors.New("content not found")

type (
	Chunk struct {
		ID            string      `db:"id" json:"id"`
		ModuleID      string      `db:"module_id" json:"module_id"`
		Title         null.String `db:"title" json:"title"`
		SequenceOrder int         `db:"sequence_order" json:"sequence_order"`
		CreatedAt     time.Time   `db:"created_at" json:"created_at"`
		UpdatedAt     time.Time   `db:"updated_at" json:"updated_at"`
	}

	Module struct {
		ID          string      `db:"id" json:"id"`
		Title       string      `db:"title" json:"title"`
		Slug        string      `db:"slug" json:"slug"`
		Description null.String `db:"description" json:"description"`
		CreatedAt   time.Time   `db:"created_at" json:"created_at"`
		UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
	}

	Sequence struct {
		ID          string      `db:"id" json:"id"`
		Title       string      `db:"title" json:"title"`
		Slug        string      `db:"slug" json:"slug"`
		Description null.String `db:"description" json:"description"`
		CreatedAt   time.Time   `db:"created_at" json:"created_at"`
		UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
	}

	LearningPath struct {
		ID          string      `db:"id" json:"id"`
		Title       string      `db:"title" json:"title"`
		Slug        string      `db:"slug" json:"slug"`
		Description null.String `db:"description" json:"description"`
		CreatedAt   time.Time   `db:"created_at" json:"created_at"`
		UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
	}

	Repository interface {
		GetChunk(ctx context.Context, id string, exec ...core.DBExecutor) (Chunk, error)
		GetModule(ctx context.Context, id string, exec ...core.DBExecutor) (Module, error)
		GetSequence(ctx context.Context, id string, exec ...core.DBExecutor) (Sequence, error)
		GetLearningPath(ctx context.Context, id string, exec ...core.DBExecutor) (LearningPath, error)
		ModuleExists(ctx context.Context, id string, exec ...core.DBExecutor) (bool, error)
		SequenceExists(ctx context.Context, id string, exec ...core.DBExecutor) (bool, error)
		LearningPathExists(ctx context.Context, id string, exec ...core.DBExecutor) (bool, error)
		// SequenceIDsForModule returns the sequences containing the module, in position order.
		SequenceIDsForModule(ctx context.Context, moduleID string, exec ...core.DBExecutor) ([]string, error)
		// PathIDsForSequence returns the learning paths containing the sequence, in position order.
		PathIDsForSequence(ctx context.Context, sequenceID string, exec ...core.DBExecutor) ([]string, error)
	}
)
