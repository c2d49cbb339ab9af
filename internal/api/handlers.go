package api

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mrogowski/videolitic/internal/analysis"
	"github.com/mrogowski/videolitic/internal/database"
	"github.com/mrogowski/videolitic/internal/media"
	"github.com/mrogowski/videolitic/internal/models"
	"github.com/mrogowski/videolitic/internal/storage"
)

type App struct {
	Storage       storage.Storage
	DB            *database.DB
	VideoRepo     *database.VideoRepository
	AnalysisRepo  *database.AnalysisRepository
	Analysis      *analysis.Service
	MaxUploadSize int64
}

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

func (app *App) UploadHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, app.MaxUploadSize)

	if err := r.ParseMultipartForm(app.MaxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "File too large")
		return
	}

	file, header, err := r.FormFile("video")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to get file")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "video/") && contentType != "application/octet-stream" {
		ext := strings.ToLower(filepath.Ext(header.Filename))
		if ext != ".mp4" && ext != ".mov" {
			writeError(w, http.StatusBadRequest, "Only video files are allowed")
			return
		}
		contentType = "video/mp4"
	}

	title := r.FormValue("title")
	if title == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}

	filename, err := app.Storage.SaveFile(file, storage.FileInfo{
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save file")
		return
	}

	video := models.NewVideo(title, filename, contentType, header.Size)

	// Best effort: a broken container still uploads, analysis rejects it
	// later.
	if path, err := app.Storage.Path(filename); err == nil {
		if info, err := media.Probe(r.Context(), path); err == nil {
			video.Duration = info.Duration
		}
	}

	if err := app.VideoRepo.InsertVideo(r.Context(), video); err != nil {
		app.Storage.DeleteFile(filename)
		writeError(w, http.StatusInternalServerError, "Failed to save video information")
		return
	}

	writeJSON(w, http.StatusCreated, video)
}

func (app *App) ListVideosHandler(w http.ResponseWriter, r *http.Request) {
	videos, err := app.VideoRepo.SearchVideos(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error loading videos")
		return
	}
	if videos == nil {
		videos = []models.Video{}
	}
	writeJSON(w, http.StatusOK, videos)
}

func (app *App) GetVideoHandler(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "id")

	video, err := app.VideoRepo.GetVideoByID(r.Context(), videoID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Video not found")
		return
	}
	writeJSON(w, http.StatusOK, video)
}

func (app *App) StreamVideoHandler(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "id")

	video, err := app.VideoRepo.GetVideoByID(r.Context(), videoID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Video not found")
		return
	}

	file, err := app.Storage.OpenFile(video.Filename)
	if err != nil {
		writeError(w, http.StatusNotFound, "Video file not found")
		return
	}
	defer file.Close()

	stat, err := file.(interface{ Stat() (os.FileInfo, error) }).Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error accessing video file")
		return
	}

	w.Header().Set("Content-Type", video.ContentType)

	// ServeContent handles Range requests, Accept-Ranges and 206s.
	http.ServeContent(w, r, video.Filename, stat.ModTime(), file)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
