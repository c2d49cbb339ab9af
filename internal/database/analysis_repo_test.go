package database

import (
	"context"
	"errors"
	"testing"

	"github.com/mrogowski/videolitic/internal/media"
	"github.com/mrogowski/videolitic/internal/models"
	"github.com/mrogowski/videolitic/internal/result"
)

func insertTestVideo(t *testing.T, db *DB) *models.Video {
	t.Helper()
	video := models.NewVideo("Test Video", "test.mp4", "video/mp4", 1024)
	if err := NewVideoRepository(db).InsertVideo(context.Background(), video); err != nil {
		t.Fatalf("Failed to insert video: %v", err)
	}
	return video
}

func TestAnalysisRepository_Lifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	repo := NewAnalysisRepository(db)
	video := insertTestVideo(t, db)

	analysis := models.NewAnalysis(video.ID)
	if err := repo.Create(ctx, analysis); err != nil {
		t.Fatalf("Failed to create analysis: %v", err)
	}

	got, res, err := repo.GetByID(ctx, analysis.ID)
	if err != nil {
		t.Fatalf("Failed to get analysis: %v", err)
	}
	if got.Status != models.AnalysisPending {
		t.Errorf("Expected status pending, got %s", got.Status)
	}
	if res != nil {
		t.Error("Pending analysis should carry no result")
	}

	if err := repo.MarkRunning(ctx, analysis.ID); err != nil {
		t.Fatalf("Failed to mark running: %v", err)
	}

	age := 31.5
	completed := &result.Result{
		ID: analysis.ID,
		Participants: []result.ParticipantSummary{
			{ID: "p-1", Age: &age, Gender: "female", Race: "asian"},
		},
		Sentences: []result.Sentence{
			{Timestamp: 0, Duration: 1.5, Text: "Hello.", IsEndOfSentence: true},
		},
		Orientation: media.OrientationUp,
		AudioPath:   "/tmp/audio.m4a",
	}
	if err := repo.MarkComplete(ctx, analysis.ID, completed); err != nil {
		t.Fatalf("Failed to mark complete: %v", err)
	}

	got, res, err = repo.GetByID(ctx, analysis.ID)
	if err != nil {
		t.Fatalf("Failed to get completed analysis: %v", err)
	}
	if got.Status != models.AnalysisComplete {
		t.Errorf("Expected status complete, got %s", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("Completed analysis should have a completion time")
	}
	if res == nil {
		t.Fatal("Completed analysis should carry a result")
	}
	if len(res.Participants) != 1 || res.Participants[0].Gender != "female" {
		t.Errorf("Unexpected participants: %+v", res.Participants)
	}
	if res.Participants[0].Age == nil || *res.Participants[0].Age != 31.5 {
		t.Errorf("Unexpected age: %v", res.Participants[0].Age)
	}
	if len(res.Sentences) != 1 || res.Sentences[0].Text != "Hello." {
		t.Errorf("Unexpected sentences: %+v", res.Sentences)
	}
	if res.Orientation != media.OrientationUp {
		t.Errorf("Unexpected orientation: %s", res.Orientation)
	}
}

func TestAnalysisRepository_MarkFailed(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	repo := NewAnalysisRepository(db)
	video := insertTestVideo(t, db)

	analysis := models.NewAnalysis(video.ID)
	if err := repo.Create(ctx, analysis); err != nil {
		t.Fatalf("Failed to create analysis: %v", err)
	}

	if err := repo.MarkFailed(ctx, analysis.ID, errors.New("transcription failed")); err != nil {
		t.Fatalf("Failed to mark failed: %v", err)
	}

	got, res, err := repo.GetByID(ctx, analysis.ID)
	if err != nil {
		t.Fatalf("Failed to get analysis: %v", err)
	}
	if got.Status != models.AnalysisFailed {
		t.Errorf("Expected status failed, got %s", got.Status)
	}
	if got.Error != "transcription failed" {
		t.Errorf("Unexpected error message: %q", got.Error)
	}
	if res != nil {
		t.Error("Failed analysis should carry no result")
	}
}

func TestAnalysisRepository_GetByID_NotFound(t *testing.T) {
	db := setupTestDB(t)

	repo := NewAnalysisRepository(db)

	_, _, err := repo.GetByID(context.Background(), "00000000-0000-0000-0000-000000000000")
	if err == nil {
		t.Error("Expected error for non-existent analysis, got nil")
	}
}

func TestAnalysisRepository_ListByVideo(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	repo := NewAnalysisRepository(db)
	video := insertTestVideo(t, db)

	first := models.NewAnalysis(video.ID)
	second := models.NewAnalysis(video.ID)
	for _, a := range []*models.Analysis{first, second} {
		if err := repo.Create(ctx, a); err != nil {
			t.Fatalf("Failed to create analysis: %v", err)
		}
	}

	analyses, err := repo.ListByVideo(ctx, video.ID)
	if err != nil {
		t.Fatalf("Failed to list analyses: %v", err)
	}
	if len(analyses) != 2 {
		t.Errorf("Expected 2 analyses, got %d", len(analyses))
	}

	analyses, err = repo.ListByVideo(ctx, "no-such-video")
	if err != nil {
		t.Fatalf("Failed to list analyses: %v", err)
	}
	if len(analyses) != 0 {
		t.Errorf("Expected 0 analyses, got %d", len(analyses))
	}
}
