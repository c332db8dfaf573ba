package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	. "github.com/trezcool/maendeleo/apps/api/echo"
	"github.com/trezcool/maendeleo/core/progress"
	testutil "github.com/trezcool/maendeleo/tests"
)

func Test_progressApi_updateChunkProgress(t *testing.T) {
	defer db.Reset()

	mod := testutil.CreateModule(db, "Basics")
	chunk := testutil.CreateChunk(db, mod, "Intro")
	userID := uuid.New().String()
	token := getToken(t, userID)
	path := "/v1/progress/chunks"
	unknownID := uuid.New().String()

	tests := []httpTest{
		{
			name: "Auth required", method: http.MethodPost, path: path,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Empty body fails", method: http.MethodPost, path: path, token: token,
			body: marchallObj(t, UpdateChunkProgressRequest{}), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"content_chunk_id":"this field is required","status":"this field is required"}`),
		},
		{
			name: "Invalid fields fail", method: http.MethodPost, path: path, token: token,
			body:     marchallObj(t, UpdateChunkProgressRequest{ContentChunkID: "nope", Status: "paused"}),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"content_chunk_id":"must be a valid UUID","status":"must be one of: not_started, in_progress, completed"}`),
		},
		{
			name: "Unknown chunk fails", method: http.MethodPost, path: path, token: token,
			body:     marchallObj(t, UpdateChunkProgressRequest{ContentChunkID: unknownID, Status: "in_progress"}),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: fmt.Sprintf("content chunk with id %s not found", unknownID)}),
		},
		{
			name: "Illegal transition fails", method: http.MethodPost, path: path, token: token,
			body:     marchallObj(t, UpdateChunkProgressRequest{ContentChunkID: chunk.ID, Status: "completed"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalid status transition from not_started to completed"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("Chunk started", func(t *testing.T) {
		body := marchallObj(t, UpdateChunkProgressRequest{ContentChunkID: chunk.ID, Status: "in_progress"})
		req, rec := newAuthRequest(http.MethodPost, path, token, body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body = %v", rec.Code, rec.Body.String())
		}
		var prog progress.ChunkProgress
		if err := json.Unmarshal(rec.Body.Bytes(), &prog); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if prog.Status != progress.StatusInProgress {
			t.Errorf("status = %s; want %s", prog.Status, progress.StatusInProgress)
		}
		if prog.ContentChunkID != chunk.ID {
			t.Errorf("content_chunk_id = %s; want %s", prog.ContentChunkID, chunk.ID)
		}
		if prog.UserID != userID {
			t.Errorf("user_id = %s; want %s", prog.UserID, userID)
		}
		if !prog.StartedAt.Valid {
			t.Error("started_at not set")
		}
	})

	t.Run("Chunk completed cascades to module", func(t *testing.T) {
		body := marchallObj(t, UpdateChunkProgressRequest{ContentChunkID: chunk.ID, Status: "completed", UpdateParents: true})
		req, rec := newAuthRequest(http.MethodPost, path, token, body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body = %v", rec.Code, rec.Body.String())
		}
		modProg, err := progRepo.GetProgress(context.Background(), progress.LevelModule, userID, mod.ID)
		if err != nil {
			t.Fatalf("GetProgress(): %v", err)
		}
		if modProg.Status != progress.StatusCompleted {
			t.Errorf("module status = %s; want %s", modProg.Status, progress.StatusCompleted)
		}
	})

	t.Run("Storage failure", func(t *testing.T) {
		db.SetErr(errors.New("storage offline"))
		defer db.SetErr(nil)

		body := marchallObj(t, UpdateChunkProgressRequest{ContentChunkID: chunk.ID, Status: "in_progress"})
		req, rec := newAuthRequest(http.MethodPost, path, token, body)
		app.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusServiceUnavailable,
			wantData: marchallObj(t, httpErr{Error: "database error during insert: storage offline"}),
		}
		checkCodeAndData(t, tt, rec)
	})
}

func Test_progressApi_lastAccessed(t *testing.T) {
	defer db.Reset()

	mod := testutil.CreateModule(db, "Basics")
	chunk := testutil.CreateChunk(db, mod, "Intro")
	userID := uuid.New().String()
	token := getToken(t, userID)
	path := "/v1/progress/last-accessed"

	t.Run("Auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, path)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("No progress yet", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: []byte(`{"chunk":null,"module":null,"sequence":null,"learning_path":null}`),
		}, rec)
	})

	t.Run("Last accessed chunk resolved", func(t *testing.T) {
		for _, status := range []string{"in_progress", "completed"} { // completing cascades to the module
			body := marchallObj(t, UpdateChunkProgressRequest{ContentChunkID: chunk.ID, Status: status, UpdateParents: true})
			req, rec := newAuthRequest(http.MethodPost, "/v1/progress/chunks", token, body)
			app.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("failed! code = %v; body = %v", rec.Code, rec.Body.String())
			}
		}
		req, rec := newAuthRequest(http.MethodGet, path, token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body = %v", rec.Code, rec.Body.String())
		}
		var lastContent progress.LastAccessedContent
		if err := json.Unmarshal(rec.Body.Bytes(), &lastContent); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if lastContent.Chunk == nil || lastContent.Chunk.ContentChunkID != chunk.ID {
			t.Errorf("chunk = %+v; want chunk %s", lastContent.Chunk, chunk.ID)
		}
		if lastContent.Chunk != nil && lastContent.Chunk.Title != "Intro" {
			t.Errorf("chunk title = %s; want Intro", lastContent.Chunk.Title)
		}
		if lastContent.Module == nil || lastContent.Module.ModuleID != mod.ID {
			t.Errorf("module = %+v; want module %s", lastContent.Module, mod.ID)
		}
	})
}

func Test_progressApi_welcomeBack(t *testing.T) {
	defer db.Reset()

	userID := uuid.New().String()
	token := getToken(t, userID)
	path := "/v1/progress/welcome-back"

	t.Run("Auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, path)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("New user", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, progress.ReturningUserContext{
				SuggestedAction:    progress.ActionStartNew,
				ContinuationPrompt: "Welcome back! Would you like to start your learning journey?",
			}),
		}, rec)
	})
}

func Test_progressApi_flushQueue(t *testing.T) {
	defer db.Reset()

	mod := testutil.CreateModule(db, "Basics")
	chunk := testutil.CreateChunk(db, mod, "Intro")
	userID := uuid.New().String()
	token := getToken(t, userID)
	path := "/v1/progress/queue"

	t.Run("Auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodDelete, path)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("Deferred updates applied", func(t *testing.T) {
		ctx := context.Background()

		body := marchallObj(t, UpdateChunkProgressRequest{ContentChunkID: chunk.ID, Status: "in_progress", DeferChunkUpdates: true})
		req, rec := newAuthRequest(http.MethodPost, "/v1/progress/chunks", token, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body = %v", rec.Code, rec.Body.String())
		}

		// the write is buffered; the stored record is untouched
		stored, err := progRepo.GetProgress(ctx, progress.LevelChunk, userID, chunk.ID)
		if err != nil {
			t.Fatalf("GetProgress(): %v", err)
		}
		if stored.Status != progress.StatusNotStarted {
			t.Fatalf("status = %s before flush; want %s", stored.Status, progress.StatusNotStarted)
		}

		req, rec = newAuthRequest(http.MethodDelete, path, token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, SuccessResponse{Success: "progress queue flushed"}),
		}, rec)

		stored, err = progRepo.GetProgress(ctx, progress.LevelChunk, userID, chunk.ID)
		if err != nil {
			t.Fatalf("GetProgress(): %v", err)
		}
		if stored.Status != progress.StatusInProgress {
			t.Errorf("status = %s after flush; want %s", stored.Status, progress.StatusInProgress)
		}
	})
}
