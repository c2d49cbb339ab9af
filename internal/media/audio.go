package media

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
)

// Audio export failures, distinguished so callers can report the exact
// reason the run was aborted.
var (
	ErrExportUnavailable = errors.New("audio export session could not be created")
	ErrExportCancelled   = errors.New("audio export was cancelled")
	ErrExportFailed      = errors.New("audio export failed")
)

// ExportAudio extracts the audio track of the video at videoPath into a
// 16 kHz mono m4a file under destDir and returns the written path.
func ExportAudio(ctx context.Context, videoPath, destDir string) (string, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", fmt.Errorf("%w: ffmpeg not found in PATH", ErrExportUnavailable)
	}

	dest := filepath.Join(destDir, uuid.New().String()+".m4a")
	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-v", "error",
		"-i", videoPath,
		"-vn",
		"-acodec", "aac",
		"-ar", "16000",
		"-ac", "1",
		"-y",
		dest)

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrExportUnavailable, err)
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", ErrExportCancelled, ctx.Err())
		}
		return "", fmt.Errorf("%w: %v", ErrExportFailed, err)
	}

	return dest, nil
}
