package database

import (
	"context"
	"testing"
	"time"

	"github.com/mrogowski/videolitic/internal/models"
)

func TestVideoRepository_InsertVideo(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	repo := NewVideoRepository(db)

	video := models.NewVideo("Test Video", "test.mp4", "video/mp4", 1024)

	if err := repo.InsertVideo(ctx, video); err != nil {
		t.Fatalf("Failed to insert video: %v", err)
	}

	retrieved, err := repo.GetVideoByID(ctx, video.ID)
	if err != nil {
		t.Fatalf("Failed to retrieve video: %v", err)
	}

	if retrieved.Title != video.Title {
		t.Errorf("Expected title %s, got %s", video.Title, retrieved.Title)
	}
	if retrieved.Filename != video.Filename {
		t.Errorf("Expected filename %s, got %s", video.Filename, retrieved.Filename)
	}
}

func TestVideoRepository_GetVideoByID_NotFound(t *testing.T) {
	db := setupTestDB(t)

	repo := NewVideoRepository(db)

	_, err := repo.GetVideoByID(context.Background(), "00000000-0000-0000-0000-000000000000")
	if err == nil {
		t.Error("Expected error for non-existent video, got nil")
	}
}

func TestVideoRepository_ListVideos(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	repo := NewVideoRepository(db)

	video1 := models.NewVideo("Video 1", "video1.mp4", "video/mp4", 1024)
	video2 := models.NewVideo("Video 2", "video2.mp4", "video/mp4", 2048)

	time.Sleep(10 * time.Millisecond)
	video2.UploadTime = time.Now()

	if err := repo.InsertVideo(ctx, video1); err != nil {
		t.Fatalf("Failed to insert video1: %v", err)
	}
	if err := repo.InsertVideo(ctx, video2); err != nil {
		t.Fatalf("Failed to insert video2: %v", err)
	}

	videos, err := repo.ListVideos(ctx)
	if err != nil {
		t.Fatalf("Failed to list videos: %v", err)
	}

	if len(videos) != 2 {
		t.Errorf("Expected 2 videos, got %d", len(videos))
	}

	if videos[0].ID != video2.ID {
		t.Errorf("Expected first video to be most recent (video2), got %s", videos[0].ID)
	}
}

func TestVideoRepository_SearchVideos(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	repo := NewVideoRepository(db)

	video1 := models.NewVideo("Team Standup Recording", "standup.mp4", "video/mp4", 1024)
	video2 := models.NewVideo("Product Demo", "demo.mp4", "video/mp4", 2048)
	video3 := models.NewVideo("Standup Retro", "retro.mp4", "video/mp4", 3072)

	for _, v := range []*models.Video{video1, video2, video3} {
		if err := repo.InsertVideo(ctx, v); err != nil {
			t.Fatalf("Failed to insert video: %v", err)
		}
	}

	results, err := repo.SearchVideos(ctx, "standup")
	if err != nil {
		t.Fatalf("Failed to search videos: %v", err)
	}

	if len(results) != 2 {
		t.Errorf("Expected 2 results for 'standup', got %d", len(results))
	}

	results, err = repo.SearchVideos(ctx, "demo")
	if err != nil {
		t.Fatalf("Failed to search videos: %v", err)
	}

	if len(results) != 1 {
		t.Errorf("Expected 1 result for 'demo', got %d", len(results))
	}
	if len(results) > 0 && results[0].ID != video2.ID {
		t.Errorf("Expected demo video, got %s", results[0].Title)
	}
}

func TestVideoRepository_SearchVideos_Empty(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	repo := NewVideoRepository(db)

	video := models.NewVideo("Test Video", "test.mp4", "video/mp4", 1024)
	if err := repo.InsertVideo(ctx, video); err != nil {
		t.Fatalf("Failed to insert video: %v", err)
	}

	results, err := repo.SearchVideos(ctx, "")
	if err != nil {
		t.Fatalf("Failed to search with empty query: %v", err)
	}

	if len(results) != 1 {
		t.Errorf("Expected 1 result for empty query, got %d", len(results))
	}
}

func TestVideoRepository_SetDuration(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	repo := NewVideoRepository(db)

	video := models.NewVideo("Test Video", "test.mp4", "video/mp4", 1024)
	if err := repo.InsertVideo(ctx, video); err != nil {
		t.Fatalf("Failed to insert video: %v", err)
	}

	if err := repo.SetDuration(ctx, video.ID, 42.5); err != nil {
		t.Fatalf("Failed to set duration: %v", err)
	}

	retrieved, err := repo.GetVideoByID(ctx, video.ID)
	if err != nil {
		t.Fatalf("Failed to retrieve video: %v", err)
	}
	if retrieved.Duration != 42.5 {
		t.Errorf("Expected duration 42.5, got %v", retrieved.Duration)
	}
}
