package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ErrNoVideoTrack is returned when the asset has no video stream at all,
// e.g. for an audio-only file. Reported before any frame is read.
var ErrNoVideoTrack = errors.New("no video track in asset")

// Orientation describes how the recorded frames must be rotated for
// display, derived from the container's rotation metadata.
type Orientation string

const (
	OrientationUp    Orientation = "up"
	OrientationDown  Orientation = "down"
	OrientationLeft  Orientation = "left"
	OrientationRight Orientation = "right"
)

// Info is the probed shape of a media asset.
type Info struct {
	Duration    float64
	FrameRate   float64
	Orientation Orientation
	HasVideo    bool
	HasAudio    bool
}

type probeOutput struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		AvgFrameRate string `json:"avg_frame_rate"`
		RFrameRate   string `json:"r_frame_rate"`
		Tags         struct {
			Rotate string `json:"rotate"`
		} `json:"tags"`
		SideDataList []struct {
			Rotation int `json:"rotation"`
		} `json:"side_data_list"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe inspects a media file with ffprobe and returns its stream layout.
// It fails with ErrNoVideoTrack when no video stream exists.
func Probe(ctx context.Context, path string) (*Info, error) {
	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}

	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var out probeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("ffprobe decode: %w", err)
	}

	info := &Info{Orientation: OrientationUp}
	if d, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
		info.Duration = d
	}

	for _, s := range out.Streams {
		switch s.CodecType {
		case "audio":
			info.HasAudio = true
		case "video":
			info.HasVideo = true
			if info.FrameRate == 0 {
				info.FrameRate = parseFrameRate(s.AvgFrameRate)
			}
			if info.FrameRate == 0 {
				info.FrameRate = parseFrameRate(s.RFrameRate)
			}

			rotation := 0
			if s.Tags.Rotate != "" {
				rotation, _ = strconv.Atoi(s.Tags.Rotate)
			}
			for _, sd := range s.SideDataList {
				if sd.Rotation != 0 {
					rotation = sd.Rotation
				}
			}
			info.Orientation = orientationFromRotation(rotation)
		}
	}

	if !info.HasVideo {
		return nil, ErrNoVideoTrack
	}

	return info, nil
}

// parseFrameRate parses ffprobe's fractional rate strings like "30000/1001".
func parseFrameRate(s string) float64 {
	if s == "" || s == "0/0" {
		return 0
	}
	num, den, found := strings.Cut(s, "/")
	if !found {
		f, _ := strconv.ParseFloat(s, 64)
		return f
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

func orientationFromRotation(degrees int) Orientation {
	switch normalizeDegrees(degrees) {
	case 180:
		return OrientationDown
	case 90:
		return OrientationRight
	case 270:
		return OrientationLeft
	default:
		return OrientationUp
	}
}

func normalizeDegrees(d int) int {
	d %= 360
	if d < 0 {
		d += 360
	}
	return d
}
