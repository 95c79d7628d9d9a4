package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"chmura-plikow/internal/drive"
)

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// respondDriveError mapuje taksonomię błędów koordynatora na kody HTTP.
// Koordynator zna tylko rodzaje błędów; status HTTP to decyzja tej warstwy.
func respondDriveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, drive.ErrNotFound):
		http.Error(w, "Item not found", http.StatusNotFound)
	case errors.Is(err, drive.ErrUnauthorized):
		http.Error(w, "You do not have permission to access this item", http.StatusForbidden)
	case errors.Is(err, drive.ErrInvalidName):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, drive.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, drive.ErrPartialDelete):
		log.Printf("ERROR: Partial delete: %v", err)
		http.Error(w, "Delete aborted partway; some items may remain", http.StatusInternalServerError)
	case errors.Is(err, drive.ErrIO):
		log.Printf("ERROR: Storage I/O failure: %v", err)
		http.Error(w, "Storage failure", http.StatusInternalServerError)
	default:
		log.Printf("ERROR: Unexpected error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// @Summary      Health check
// @Description  Reports whether the server and its database connection are alive.
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      503  {string}  string "Service Unavailable"
// @Router       /health [get]
func (s *Server) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.store.GetPool().Ping(r.Context()); err != nil {
		log.Printf("ERROR: Health check failed: %v", err)
		http.Error(w, "Database unreachable", http.StatusServiceUnavailable)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// publishEvent zapisuje zdarzenie do dziennika i wypycha je do podłączonych
// klientów WebSocket. Zdarzenia są best-effort — błąd nie przerywa żądania.
func (s *Server) publishEvent(ctx context.Context, userID int64, eventType string, payload interface{}) {
	if err := s.store.LogEvent(ctx, userID, eventType, payload); err != nil {
		log.Printf("WARN: Failed to log event %s for user %d: %v", eventType, userID, err)
	}

	eventMsg := map[string]interface{}{"event_type": eventType, "payload": payload}
	eventBytes, err := json.Marshal(eventMsg)
	if err != nil {
		log.Printf("WARN: Failed to marshal event %s: %v", eventType, err)
		return
	}
	s.wsHub.PublishEvent(userID, eventBytes)
}
