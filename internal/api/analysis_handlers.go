package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mrogowski/videolitic/internal/models"
)

func (app *App) StartAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "id")

	session, err := app.Analysis.StartAnalysis(r.Context(), videoID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to start analysis: %v", err))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"session_id":  session.ID,
		"analysis_id": session.AnalysisID,
		"status":      session.CurrentStatus(),
	})
}

func (app *App) ListAnalysesHandler(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "id")

	analyses, err := app.AnalysisRepo.ListByVideo(r.Context(), videoID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error loading analyses")
		return
	}
	if analyses == nil {
		analyses = []models.Analysis{}
	}
	writeJSON(w, http.StatusOK, analyses)
}

func (app *App) GetAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	analysisID := chi.URLParam(r, "analysisID")

	record, res, err := app.AnalysisRepo.GetByID(r.Context(), analysisID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Analysis not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"analysis": record,
		"result":   res,
	})
}

func (app *App) StopAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := app.Analysis.StopAnalysis(sessionID); err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopping"})
}

// AnalysisStreamHandler streams a session's progress and terminal event
// over SSE. The stream ends when the session finishes or the client
// disconnects.
func (app *App) AnalysisStreamHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, exists := app.Analysis.GetSession(sessionID)
	if !exists {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	clientGone := r.Context().Done()

	for {
		select {
		case update, ok := <-session.Updates:
			if !ok {
				return
			}

			data, err := json.Marshal(update.Data)
			if err != nil {
				log.Printf("[API] Error marshaling update: %v", err)
				continue
			}

			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", update.Type, string(data))
			flusher.Flush()

		case <-clientGone:
			return
		}
	}
}
