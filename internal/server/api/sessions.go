package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/ayusman/chitra/internal/painter"
)

// qrSize is the edge length of session QR codes in pixels.
const qrSize = 256

// SessionHandler handles HTTP requests for painter sessions.
type SessionHandler struct {
	manager   *painter.Manager
	publicURL string
}

// NewSessionHandler creates a SessionHandler. publicURL is the base of join
// links in QR codes; when empty the request host is used.
func NewSessionHandler(m *painter.Manager, publicURL string) *SessionHandler {
	return &SessionHandler{manager: m, publicURL: strings.TrimSuffix(publicURL, "/")}
}

// ServeHTTP routes /api/sessions, /api/sessions/{id} and the
// /clear and /qr sub-resources.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id, action, _ := strings.Cut(path, "/")

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case "clear":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.clear(w, r, id)
	case "qr":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.qr(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type createSessionRequest struct {
	ID string `json:"id"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

// list handles GET /api/sessions.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	sessions := h.manager.List()

	response := listSessionsResponse{
		Sessions: make([]sessionResponse, 0, len(sessions)),
	}
	for _, s := range sessions {
		response.Sessions = append(response.Sessions, toSessionResponse(s))
	}

	writeJSON(w, http.StatusOK, response)
}

// create handles POST /api/sessions. The body is optional.
func (h *SessionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.ID != "" {
		if _, err := h.manager.Get(req.ID); err == nil {
			writeError(w, http.StatusConflict, "Session already exists")
			return
		}
	}

	sess, _, err := h.manager.GetOrCreate(req.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	writeJSON(w, http.StatusCreated, toSessionResponse(sess))
}

// get handles GET /api/sessions/{id}.
func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	sess, ok := h.lookup(w, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

// delete handles DELETE /api/sessions/{id}.
func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.manager.Delete(id); err != nil {
		if errors.Is(err, painter.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// clear handles POST /api/sessions/{id}/clear.
func (h *SessionHandler) clear(w http.ResponseWriter, r *http.Request, id string) {
	sess, ok := h.lookup(w, id)
	if !ok {
		return
	}
	if err := sess.Clear(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear canvas")
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

// qr handles GET /api/sessions/{id}/qr with a PNG QR code of the join link.
func (h *SessionHandler) qr(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := h.lookup(w, id); !ok {
		return
	}

	png, err := qrcode.Encode(h.joinURL(r, id), qrcode.Medium, qrSize)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// joinURL is the page a phone opens to paint in session id.
func (h *SessionHandler) joinURL(r *http.Request, id string) string {
	base := h.publicURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	return base + "/?session=" + url.QueryEscape(id)
}

func (h *SessionHandler) lookup(w http.ResponseWriter, id string) (*painter.Session, bool) {
	sess, err := h.manager.Get(id)
	if err != nil {
		if errors.Is(err, painter.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return nil, false
	}
	return sess, true
}
