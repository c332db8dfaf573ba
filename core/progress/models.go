// Package progress implements hierarchical learning progress tracking.
// A user's progress is recorded at four levels (content chunk, module,
// sequence, learning path); chunk progress is user-declared, the three
// parent levels are derived from their children's completion.
package progress

import (
	"context"
	"errors"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/maendeleo/core"
)

// ErrNotFound is returned by the store when no progress record matches.
var ErrNotFound = errors.New("progress record not found")

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Level identifies one of the four progress tables.
type Level string

const (
	LevelChunk    Level = "chunk"
	LevelModule   Level = "module"
	LevelSequence Level = "sequence"
	LevelPath     Level = "learning_path"
)

type (
	// Record is the common persisted shape shared by all four progress levels.
	Record struct {
		ID             string    `db:"id" json:"id"`
		UserID         string    `db:"user_id" json:"user_id"`
		ContentID      string    `db:"content_id" json:"-"`
		Status         Status    `db:"status" json:"status"`
		StartedAt      null.Time `db:"started_at" json:"started_at"`
		CompletedAt    null.Time `db:"completed_at" json:"completed_at"`
		LastAccessedAt null.Time `db:"last_accessed_at" json:"last_accessed_at"`
		CreatedAt      time.Time `db:"created_at" json:"created_at"`
		UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
	}

	ChunkProgress struct {
		Record
		ContentChunkID string `json:"content_chunk_id"`
		Title          string `json:"title,omitempty"`
	}

	ModuleProgress struct {
		Record
		ModuleID        string `json:"module_id"`
		Title           string `json:"title,omitempty"`
		CompletedChunks int    `json:"completed_chunks"`
		TotalChunks     int    `json:"total_chunks"`
	}

	SequenceProgress struct {
		Record
		SequenceID       string `json:"sequence_id"`
		Title            string `json:"title,omitempty"`
		CompletedModules int    `json:"completed_modules"`
		TotalModules     int    `json:"total_modules"`
	}

	LearningPathProgress struct {
		Record
		LearningPathID     string `json:"learning_path_id"`
		Title              string `json:"title,omitempty"`
		CompletedSequences int    `json:"completed_sequences"`
		TotalSequences     int    `json:"total_sequences"`
	}

	// LastAccessedContent is the four-level snapshot around the chunk a user
	// touched last. All fields are nil when the user has no progress yet;
	// trailing fields are nil when the chunk's ancestry is incomplete.
	LastAccessedContent struct {
		Chunk        *ChunkProgress        `json:"chunk"`
		Module       *ModuleProgress       `json:"module"`
		Sequence     *SequenceProgress     `json:"sequence"`
		LearningPath *LearningPathProgress `json:"learning_path"`
	}

	UpdateOptions struct {
		UpdateParents     bool
		DeferChunkUpdates bool
	}

	// DeferredChunkUpdate is a buffered chunk status change applied at flush time.
	DeferredChunkUpdate struct {
		UserID         string
		ContentChunkID string
		Status         Status
		Timestamp      time.Time
	}

	// CompletionStats is the completed/total children count of a parent record.
	CompletionStats struct {
		Completed int `db:"completed_count"`
		Total     int `db:"total_count"`
	}

	// Patch is a partial progress update. StartedAt and CompletedAt are only
	// written when their Set flag is raised, so a raised flag with an invalid
	// null.Time clears the column.
	Patch struct {
		Status         Status
		SetStartedAt   bool
		StartedAt      null.Time
		SetCompletedAt bool
		CompletedAt    null.Time
		LastAccessedAt time.Time
		UpdatedAt      time.Time
	}

	Repository interface {
		GetProgress(ctx context.Context, level Level, userID, contentID string, exec ...core.DBExecutor) (Record, error)
		// EnsureProgress creates a not_started record if none exists for (user, content).
		// Concurrent calls are safe; an existing record is never modified.
		EnsureProgress(ctx context.Context, level Level, userID, contentID string, lastAccessedAt null.Time, exec ...core.DBExecutor) error
		// SetProgress applies the patch and returns the stored record as written.
		SetProgress(ctx context.Context, level Level, userID, contentID string, patch Patch, exec ...core.DBExecutor) (Record, error)
		// LatestChunkProgress returns the user's chunk record with the most recent last_accessed_at.
		LatestChunkProgress(ctx context.Context, userID string, exec ...core.DBExecutor) (Record, error)
		// ChildCompletion counts the completed and total children of a parent
		// content item; level is the PARENT level. Children without a progress
		// record count towards the total only.
		ChildCompletion(ctx context.Context, level Level, userID, parentID string, exec ...core.DBExecutor) (CompletionStats, error)
		// InTransaction runs fn within a single DB transaction; the executor it
		// receives is passed back into repository calls.
		InTransaction(ctx context.Context, fn func(exec core.DBExecutor) error) error
	}
)

// DeriveStatus maps a child completion ratio to the parent's status.
func (cs CompletionStats) DeriveStatus() Status {
	switch {
	case cs.Completed == 0:
		return StatusNotStarted
	case cs.Completed >= cs.Total:
		return StatusCompleted
	default:
		return StatusInProgress
	}
}
