package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mrogowski/videolitic/internal/analysis"
	"github.com/mrogowski/videolitic/internal/database"
	"github.com/mrogowski/videolitic/internal/media"
	"github.com/mrogowski/videolitic/internal/models"
	"github.com/mrogowski/videolitic/internal/result"
	"github.com/mrogowski/videolitic/internal/storage"
	"github.com/mrogowski/videolitic/internal/videolitic"
)

type scriptedRun struct {
	frames   chan media.Frame
	outcomes chan videolitic.Outcome
}

func (r *scriptedRun) Frames() <-chan media.Frame        { return r.frames }
func (r *scriptedRun) Result() <-chan videolitic.Outcome { return r.outcomes }
func (r *scriptedRun) Stop()                             {}

type scriptedProcessor struct {
	outcome videolitic.Outcome
}

func (p *scriptedProcessor) Process(context.Context, string) (analysis.Run, error) {
	run := &scriptedRun{
		frames:   make(chan media.Frame),
		outcomes: make(chan videolitic.Outcome, 1),
	}
	run.outcomes <- p.outcome
	close(run.frames)
	return run, nil
}

func newTestApp(t *testing.T, processor analysis.Processor) (*App, http.Handler) {
	t.Helper()

	db, err := database.NewDB(database.Config{Path: filepath.Join(t.TempDir(), "api_test.db")})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.NewMigrator(db.Conn()).Run(filepath.Join("..", "..", "migrations")); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("storage: %v", err)
	}

	videoRepo := database.NewVideoRepository(db)
	analysisRepo := database.NewAnalysisRepository(db)

	app := &App{
		Storage:       store,
		DB:            db,
		VideoRepo:     videoRepo,
		AnalysisRepo:  analysisRepo,
		Analysis:      analysis.NewService(processor, videoRepo, analysisRepo, store),
		MaxUploadSize: 10 << 20,
	}
	return app, NewRouter(app)
}

func uploadVideo(t *testing.T, router http.Handler) models.Video {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("title", "Team Standup"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	part, err := writer.CreateFormFile("video", "standup.mp4")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write([]byte("not really mpeg4 but good enough"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/videos", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body.String())
	}

	var video models.Video
	if err := json.Unmarshal(rec.Body.Bytes(), &video); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	return video
}

func TestPing(t *testing.T) {
	_, router := newTestApp(t, &scriptedProcessor{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
		t.Fatalf("ping = %d %q", rec.Code, rec.Body.String())
	}
}

func TestUploadAndGetVideo(t *testing.T) {
	_, router := newTestApp(t, &scriptedProcessor{})

	video := uploadVideo(t, router)
	if video.ID == "" || video.Title != "Team Standup" {
		t.Fatalf("unexpected video: %+v", video)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/videos/"+video.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/videos", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var videos []models.Video
	if err := json.Unmarshal(rec.Body.Bytes(), &videos); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(videos) != 1 {
		t.Fatalf("videos = %d, want 1", len(videos))
	}
}

func TestUploadRejectsMissingTitle(t *testing.T) {
	_, router := newTestApp(t, &scriptedProcessor{})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, _ := writer.CreateFormFile("video", "standup.mp4")
	part.Write([]byte("bytes"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/videos", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestStreamVideoRangeRequest(t *testing.T) {
	_, router := newTestApp(t, &scriptedProcessor{})
	video := uploadVideo(t, router)

	req := httptest.NewRequest(http.MethodGet, "/api/videos/"+video.ID+"/stream", nil)
	req.Header.Set("Range", "bytes=0-3")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "video/mp4" {
		t.Errorf("content type = %q", got)
	}
}

func TestStartAnalysisAndStream(t *testing.T) {
	processor := &scriptedProcessor{
		outcome: videolitic.Outcome{Result: &result.Result{
			Sentences: []result.Sentence{{Text: "Hi.", IsEndOfSentence: true}},
		}},
	}
	_, router := newTestApp(t, processor)
	video := uploadVideo(t, router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/videos/"+video.ID+"/analyses", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("start status = %d, body %s", rec.Code, rec.Body.String())
	}

	var started map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &started); err != nil {
		t.Fatalf("decode start response: %v", err)
	}
	if started["session_id"] == "" || started["analysis_id"] == "" {
		t.Fatalf("incomplete start response: %v", started)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/"+started["session_id"]+"/events", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("stream status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("content type = %q", got)
	}
	if !strings.Contains(rec.Body.String(), "event: complete") {
		t.Errorf("stream missing terminal event: %q", rec.Body.String())
	}

	// The result is persisted and retrievable once the stream ended.
	deadline := time.Now().Add(5 * time.Second)
	for {
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analyses/"+started["analysis_id"], nil))
		if rec.Code == http.StatusOK && strings.Contains(rec.Body.String(), `"complete"`) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("analysis never completed: %d %s", rec.Code, rec.Body.String())
		}
		time.Sleep(10 * time.Millisecond)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/videos/"+video.ID+"/analyses", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list analyses status = %d", rec.Code)
	}
	var analyses []models.Analysis
	if err := json.Unmarshal(rec.Body.Bytes(), &analyses); err != nil {
		t.Fatalf("decode analyses: %v", err)
	}
	if len(analyses) != 1 {
		t.Fatalf("analyses = %d, want 1", len(analyses))
	}
}

func TestStartAnalysisUnknownVideo(t *testing.T) {
	_, router := newTestApp(t, &scriptedProcessor{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/videos/no-such-id/analyses", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestStopUnknownSession(t *testing.T) {
	_, router := newTestApp(t, &scriptedProcessor{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions/no-such-session/stop", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetAnalysisNotFound(t *testing.T) {
	_, router := newTestApp(t, &scriptedProcessor{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analyses/no-such-analysis", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
