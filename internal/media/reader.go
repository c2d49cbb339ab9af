package media

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"os/exec"
)

// Frame is one decoded video frame: a JPEG-encoded pixel buffer and its
// presentation timestamp in seconds. Frames are transient and are not
// retained once processed.
type Frame struct {
	Data      []byte
	Timestamp float64
	Index     int
}

// Reader streams the frames of a video file in presentation order through
// a single ffmpeg process. Reaching the end of the stream is not an error:
// NextFrame simply reports no more frames.
type Reader struct {
	info   *Info
	cmd    *exec.Cmd
	stdout io.ReadCloser
	br     *bufio.Reader
	index  int
	done   bool
}

// NewReader starts decoding the video at path. The caller must Close the
// reader to reap the ffmpeg process.
func NewReader(ctx context.Context, path string, info *Info) (*Reader, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-v", "error",
		"-i", path,
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "2",
		"-")

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start: %w", err)
	}

	return &Reader{
		info:   info,
		cmd:    cmd,
		stdout: stdout,
		br:     bufio.NewReaderSize(stdout, 1<<20),
	}, nil
}

// FrameRate returns the video track's nominal frame rate.
func (r *Reader) FrameRate() float64 { return r.info.FrameRate }

// Orientation returns the display orientation of the recorded frames.
func (r *Reader) Orientation() Orientation { return r.info.Orientation }

// RefreshInterval is the frame-count cadence at which full face detection
// is re-run to correct tracker drift: round(frameRate*1000/3000), at least
// one, i.e. roughly every three seconds of video.
func (r *Reader) RefreshInterval() int {
	interval := int(math.Round(r.info.FrameRate * 1000.0 / 3000.0))
	if interval < 1 {
		interval = 1
	}
	return interval
}

// NextFrame returns the next frame in presentation order, or ok=false once
// the stream is exhausted. Decode errors also end the stream.
func (r *Reader) NextFrame() (*Frame, bool) {
	if r.done {
		return nil, false
	}

	data, err := readJPEG(r.br)
	if err != nil {
		if err != io.EOF {
			log.Printf("[READER] frame decode ended: %v", err)
		}
		r.done = true
		return nil, false
	}

	frame := &Frame{
		Data:      data,
		Timestamp: timestampForIndex(r.index, r.info.FrameRate),
		Index:     r.index,
	}
	r.index++
	return frame, true
}

// Close stops the ffmpeg process and releases the pipe.
func (r *Reader) Close() error {
	r.done = true
	r.stdout.Close()
	if r.cmd.Process != nil {
		r.cmd.Process.Kill()
	}
	return r.cmd.Wait()
}

func timestampForIndex(index int, frameRate float64) float64 {
	if frameRate <= 0 {
		return 0
	}
	return float64(index) / frameRate
}

// readJPEG extracts one JPEG image from an MJPEG byte stream: everything
// between an SOI (FFD8) and the matching EOI (FFD9) marker.
func readJPEG(br *bufio.Reader) ([]byte, error) {
	// Scan to the start-of-image marker.
	for {
		b, err := br.ReadByte()
		if err != nil {
			return nil, err
		}
		if b != 0xFF {
			continue
		}
		next, err := br.ReadByte()
		if err != nil {
			return nil, err
		}
		if next == 0xD8 {
			break
		}
	}

	data := []byte{0xFF, 0xD8}
	for {
		b, err := br.ReadByte()
		if err != nil {
			return nil, err
		}
		data = append(data, b)
		if b != 0xFF {
			continue
		}
		next, err := br.ReadByte()
		if err != nil {
			return nil, err
		}
		data = append(data, next)
		if next == 0xD9 {
			return data, nil
		}
	}
}
