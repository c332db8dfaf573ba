package testutil

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/maendeleo/core/content"
	inmemdb "github.com/trezcool/maendeleo/storage/database/inmem"
)

// CreateModule adds a module to the in-memory content store.
func CreateModule(db *inmemdb.DB, title string) content.Module {
	now := time.Now().UTC()
	mod := content.Module{
		ID:        uuid.New().String(),
		Title:     title,
		Slug:      title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	db.AddModule(mod)
	return mod
}

// CreateChunk adds a content chunk to the module.
func CreateChunk(db *inmemdb.DB, mod content.Module, title string, order ...int) content.Chunk {
	now := time.Now().UTC()
	chunk := content.Chunk{
		ID:        uuid.New().String(),
		ModuleID:  mod.ID,
		Title:     null.StringFrom(title),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if len(order) > 0 {
		chunk.SequenceOrder = order[0]
	}
	db.AddChunk(chunk)
	return chunk
}

// CreateSequence adds a sequence containing the given modules, in order.
func CreateSequence(db *inmemdb.DB, title string, modules ...content.Module) content.Sequence {
	now := time.Now().UTC()
	seq := content.Sequence{
		ID:        uuid.New().String(),
		Title:     title,
		Slug:      title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	moduleIDs := make([]string, 0, len(modules))
	for _, mod := range modules {
		moduleIDs = append(moduleIDs, mod.ID)
	}
	db.AddSequence(seq, moduleIDs...)
	return seq
}

// CreateLearningPath adds a learning path containing the given sequences, in order.
func CreateLearningPath(db *inmemdb.DB, title string, sequences ...content.Sequence) content.LearningPath {
	now := time.Now().UTC()
	path := content.LearningPath{
		ID:        uuid.New().String(),
		Title:     title,
		Slug:      title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	sequenceIDs := make([]string, 0, len(sequences))
	for _, seq := range sequences {
		sequenceIDs = append(sequenceIDs, seq.ID)
	}
	db.AddLearningPath(path, sequenceIDs...)
	return path
}
