package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"pubquiz-service/internal/domain"
	"pubquiz-service/internal/engine"
	"pubquiz-service/internal/scoring"
)

// RoomHandler serves the non-websocket room endpoints: creation, the JSON
// scoreboard, and the CSV export.
type RoomHandler struct {
	engine *engine.Engine
}

func NewRoomHandler(eng *engine.Engine) *RoomHandler {
	return &RoomHandler{engine: eng}
}

// Register mounts the room routes on mux.
func (h *RoomHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/rooms", h.handleCreate)
	mux.HandleFunc("/rooms/", h.handleRoom)
}

type createRoomRequest struct {
	Title string `json:"title"`
}

type createRoomResponse struct {
	Code string `json:"code"`
}

func (h *RoomHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	code, err := h.engine.CreateRoom(r.Context(), req.Title)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	log.Printf("created room %s (%q)", code, req.Title)
	writeJSON(w, http.StatusCreated, createRoomResponse{Code: code})
}

// handleRoom dispatches /rooms/{code}/scores and /rooms/{code}/export.csv.
func (h *RoomHandler) handleRoom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/rooms/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	code := parts[0]

	switch parts[1] {
	case "scores":
		scores, err := h.engine.Scores(r.Context(), code)
		if err != nil {
			h.roomError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, scores)
	case "export.csv":
		quiz, err := h.engine.Rooms().Quiz(r.Context(), code)
		if err != nil {
			h.roomError(w, err)
			return
		}
		scores, err := h.engine.Scores(r.Context(), code)
		if err != nil {
			h.roomError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename(quiz.Title)+`"`)
		_, _ = w.Write([]byte(scoring.ScoresCSV(quiz, scores)))
	default:
		http.NotFound(w, r)
	}
}

func (h *RoomHandler) roomError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrRoomNotFound) {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func exportFilename(title string) string {
	if title == "" {
		title = "pub-quiz"
	}
	return strings.ReplaceAll(title, " ", "-") + "-results.csv"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
