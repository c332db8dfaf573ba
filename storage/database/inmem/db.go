// Package inmemdb provides in-memory repository implementations for tests.
package inmemdb

import (
	"sync"

	"github.com/trezcool/maendeleo/core/content"
	"github.com/trezcool/maendeleo/core/progress"
)

type DB struct {
	mutex sync.RWMutex

	chunks    map[string]content.Chunk
	modules   map[string]content.Module
	sequences map[string]content.Sequence
	paths     map[string]content.LearningPath

	sequenceModules map[string][]string // sequence -> ordered module IDs
	pathSequences   map[string][]string // learning path -> ordered sequence IDs

	records map[progress.Level]map[string]progress.Record // level -> "userID:contentID"

	err error // when set, all progress repository calls fail with it
}

func Open() *DB {
	return &DB{
		chunks:          make(map[string]content.Chunk),
		modules:         make(map[string]content.Module),
		sequences:       make(map[string]content.Sequence),
		paths:           make(map[string]content.LearningPath),
		sequenceModules: make(map[string][]string),
		pathSequences:   make(map[string][]string),
		records: map[progress.Level]map[string]progress.Record{
			progress.LevelChunk:    {},
			progress.LevelModule:   {},
			progress.LevelSequence: {},
			progress.LevelPath:     {},
		},
	}
}

// SetErr makes every progress repository call fail with err until reset with nil.
func (db *DB) SetErr(err error) {
	db.mutex.Lock()
	db.err = err
	db.mutex.Unlock()
}

// Reset drops all progress records but keeps the content fixtures.
func (db *DB) Reset() {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	for level := range db.records {
		db.records[level] = make(map[string]progress.Record)
	}
	db.err = nil
}

// content fixtures

func (db *DB) AddModule(mod content.Module) {
	db.mutex.Lock()
	db.modules[mod.ID] = mod
	db.mutex.Unlock()
}

func (db *DB) AddChunk(chunk content.Chunk) {
	db.mutex.Lock()
	db.chunks[chunk.ID] = chunk
	db.mutex.Unlock()
}

func (db *DB) AddSequence(seq content.Sequence, moduleIDs ...string) {
	db.mutex.Lock()
	db.sequences[seq.ID] = seq
	db.sequenceModules[seq.ID] = append(db.sequenceModules[seq.ID], moduleIDs...)
	db.mutex.Unlock()
}

func (db *DB) AddLearningPath(path content.LearningPath, sequenceIDs ...string) {
	db.mutex.Lock()
	db.paths[path.ID] = path
	db.pathSequences[path.ID] = append(db.pathSequences[path.ID], sequenceIDs...)
	db.mutex.Unlock()
}

func recordKey(userID, contentID string) string {
	return userID + ":" + contentID
}
