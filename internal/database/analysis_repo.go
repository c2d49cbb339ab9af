package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mrogowski/videolitic/internal/media"
	"github.com/mrogowski/videolitic/internal/models"
	"github.com/mrogowski/videolitic/internal/result"
)

type AnalysisRepository struct {
	db *DB
}

func NewAnalysisRepository(db *DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

func (r *AnalysisRepository) Create(ctx context.Context, analysis *models.Analysis) error {
	query := `
		INSERT INTO analyses (id, video_id, status, created_at)
		VALUES (?, ?, ?, ?)`

	_, err := r.db.conn.ExecContext(ctx, query,
		analysis.ID,
		analysis.VideoID,
		analysis.Status,
		analysis.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}
	return nil
}

func (r *AnalysisRepository) MarkRunning(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, models.AnalysisRunning)
}

// MarkComplete stores the run's result and flips the analysis to complete.
func (r *AnalysisRepository) MarkComplete(ctx context.Context, id string, res *result.Result) error {
	participants, err := json.Marshal(res.Participants)
	if err != nil {
		return fmt.Errorf("failed to marshal participants: %w", err)
	}
	sentences, err := json.Marshal(res.Sentences)
	if err != nil {
		return fmt.Errorf("failed to marshal sentences: %w", err)
	}

	query := `
		UPDATE analyses
		SET status = ?, orientation = ?, audio_path = ?,
		    participants = ?, sentences = ?, completed_at = ?
		WHERE id = ?`

	_, err = r.db.conn.ExecContext(ctx, query,
		models.AnalysisComplete,
		string(res.Orientation),
		res.AudioPath,
		string(participants),
		string(sentences),
		time.Now(),
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete analysis: %w", err)
	}
	return nil
}

func (r *AnalysisRepository) MarkFailed(ctx context.Context, id string, cause error) error {
	query := `
		UPDATE analyses SET status = ?, error = ?, completed_at = ?
		WHERE id = ?`

	_, err := r.db.conn.ExecContext(ctx, query,
		models.AnalysisFailed, cause.Error(), time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to fail analysis: %w", err)
	}
	return nil
}

// GetByID returns the analysis record and, for completed runs, its
// decoded result payload.
func (r *AnalysisRepository) GetByID(ctx context.Context, id string) (*models.Analysis, *result.Result, error) {
	query := `
		SELECT id, video_id, status, orientation, audio_path, error,
		       participants, sentences, created_at, completed_at
		FROM analyses WHERE id = ?`

	analysis, res, err := scanAnalysis(r.db.conn.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("analysis not found")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return analysis, res, nil
}

func (r *AnalysisRepository) ListByVideo(ctx context.Context, videoID string) ([]models.Analysis, error) {
	query := `
		SELECT id, video_id, status, orientation, audio_path, error,
		       created_at, completed_at
		FROM analyses WHERE video_id = ? ORDER BY created_at DESC`

	rows, err := r.db.conn.QueryContext(ctx, query, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	var analyses []models.Analysis
	for rows.Next() {
		var a models.Analysis
		var orientation, audioPath, errMsg sql.NullString
		var completedAt sql.NullTime
		if err := rows.Scan(&a.ID, &a.VideoID, &a.Status,
			&orientation, &audioPath, &errMsg,
			&a.CreatedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		a.Orientation = orientation.String
		a.AudioPath = audioPath.String
		a.Error = errMsg.String
		if completedAt.Valid {
			t := completedAt.Time
			a.CompletedAt = &t
		}
		analyses = append(analyses, a)
	}
	return analyses, rows.Err()
}

func (r *AnalysisRepository) setStatus(ctx context.Context, id, status string) error {
	_, err := r.db.conn.ExecContext(ctx,
		"UPDATE analyses SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("failed to update analysis status: %w", err)
	}
	return nil
}

func scanAnalysis(row *sql.Row) (*models.Analysis, *result.Result, error) {
	var a models.Analysis
	var orientation, audioPath, errMsg sql.NullString
	var participants, sentences sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(&a.ID, &a.VideoID, &a.Status,
		&orientation, &audioPath, &errMsg,
		&participants, &sentences,
		&a.CreatedAt, &completedAt)
	if err != nil {
		return nil, nil, err
	}

	a.Orientation = orientation.String
	a.AudioPath = audioPath.String
	a.Error = errMsg.String
	if completedAt.Valid {
		t := completedAt.Time
		a.CompletedAt = &t
	}

	if a.Status != models.AnalysisComplete {
		return &a, nil, nil
	}

	res := &result.Result{
		ID:          a.ID,
		Orientation: media.Orientation(a.Orientation),
		AudioPath:   a.AudioPath,
	}
	if participants.Valid && participants.String != "" {
		if err := json.Unmarshal([]byte(participants.String), &res.Participants); err != nil {
			return nil, nil, fmt.Errorf("failed to decode participants: %w", err)
		}
	}
	if sentences.Valid && sentences.String != "" {
		if err := json.Unmarshal([]byte(sentences.String), &res.Sentences); err != nil {
			return nil, nil, fmt.Errorf("failed to decode sentences: %w", err)
		}
	}
	return &a, res, nil
}
