package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mrogowski/videolitic/internal/models"
)

type VideoRepository struct {
	db *DB
}

func NewVideoRepository(db *DB) *VideoRepository {
	return &VideoRepository{db: db}
}

func (r *VideoRepository) InsertVideo(ctx context.Context, video *models.Video) error {
	query := `
		INSERT INTO videos (id, title, filename, content_type, size, duration, upload_time)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.conn.ExecContext(ctx, query,
		video.ID,
		video.Title,
		video.Filename,
		video.ContentType,
		video.Size,
		video.Duration,
		video.UploadTime,
	)
	if err != nil {
		return fmt.Errorf("failed to insert video: %w", err)
	}
	return nil
}

func (r *VideoRepository) GetVideoByID(ctx context.Context, id string) (*models.Video, error) {
	query := `
		SELECT id, title, filename, content_type, size, duration, upload_time
		FROM videos WHERE id = ?`

	var video models.Video
	err := r.db.conn.QueryRowContext(ctx, query, id).Scan(
		&video.ID,
		&video.Title,
		&video.Filename,
		&video.ContentType,
		&video.Size,
		&video.Duration,
		&video.UploadTime,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("video not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	return &video, nil
}

func (r *VideoRepository) ListVideos(ctx context.Context) ([]models.Video, error) {
	query := `
		SELECT id, title, filename, content_type, size, duration, upload_time
		FROM videos ORDER BY upload_time DESC`

	rows, err := r.db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	return scanVideos(rows)
}

func (r *VideoRepository) SearchVideos(ctx context.Context, search string) ([]models.Video, error) {
	if search == "" {
		return r.ListVideos(ctx)
	}

	query := `
		SELECT id, title, filename, content_type, size, duration, upload_time
		FROM videos
		WHERE LOWER(title) LIKE LOWER(?)
		ORDER BY upload_time DESC LIMIT 20`

	rows, err := r.db.conn.QueryContext(ctx, query, "%"+search+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to search videos: %w", err)
	}
	defer rows.Close()

	return scanVideos(rows)
}

func (r *VideoRepository) SetDuration(ctx context.Context, id string, duration float64) error {
	_, err := r.db.conn.ExecContext(ctx,
		"UPDATE videos SET duration = ? WHERE id = ?", duration, id)
	if err != nil {
		return fmt.Errorf("failed to set duration: %w", err)
	}
	return nil
}

func scanVideos(rows *sql.Rows) ([]models.Video, error) {
	var videos []models.Video
	for rows.Next() {
		var video models.Video
		if err := rows.Scan(
			&video.ID,
			&video.Title,
			&video.Filename,
			&video.ContentType,
			&video.Size,
			&video.Duration,
			&video.UploadTime,
		); err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, video)
	}
	return videos, rows.Err()
}
