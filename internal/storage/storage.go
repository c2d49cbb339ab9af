package storage

import "io"

type FileInfo struct {
	Filename    string
	ContentType string
	Size        int64
}

// Storage keeps uploaded videos and exported audio on disk. SaveFile
// returns the stored name; Path resolves a stored name to an absolute
// path that external tools (ffmpeg, ffprobe) can open directly.
type Storage interface {
	SaveFile(src io.Reader, info FileInfo) (string, error)
	OpenFile(name string) (io.ReadSeekCloser, error)
	Path(name string) (string, error)
	DeleteFile(name string) error
}
