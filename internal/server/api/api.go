// Package api provides the HTTP API handlers of the virtual painter.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/chitra/internal/painter"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

type sessionResponse struct {
	ID        string        `json:"id"`
	CreatedAt string        `json:"created_at"`
	Width     int           `json:"width"`
	Height    int           `json:"height"`
	Cursor    *cursorJSON   `json:"cursor,omitempty"`
	State     painter.State `json:"state"`
}

type cursorJSON struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func toSessionResponse(s *painter.Session) sessionResponse {
	size := s.Size()
	resp := sessionResponse{
		ID:        s.ID(),
		CreatedAt: s.CreatedAt().Format(time.RFC3339),
		Width:     size.X,
		Height:    size.Y,
		State:     s.State(),
	}
	if pt, ok := s.Cursor(); ok {
		resp.Cursor = &cursorJSON{X: pt.X, Y: pt.Y}
	}
	return resp
}
