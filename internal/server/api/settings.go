package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/chitra/internal/gesture"
	"github.com/ayusman/chitra/internal/painter"
	"github.com/ayusman/chitra/internal/palette"
	"github.com/ayusman/chitra/internal/store"
)

// SettingsHandler reads and updates the defaults for new sessions.
type SettingsHandler struct {
	store   *store.Store
	manager *painter.Manager
}

// NewSettingsHandler creates a SettingsHandler. Updates are stored and
// applied to m.
func NewSettingsHandler(s *store.Store, m *painter.Manager) *SettingsHandler {
	return &SettingsHandler{store: s, manager: m}
}

type settingsPayload struct {
	Color     string `json:"color"`
	Thickness int    `json:"thickness"`
}

func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// get handles GET /api/settings.
func (h *SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	color, thickness := h.manager.Defaults()
	writeJSON(w, http.StatusOK, settingsPayload{Color: color, Thickness: thickness})
}

// update handles PUT /api/settings. Omitted fields keep their value.
func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req settingsPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Color != "" {
		if _, ok := palette.DefaultIndex(req.Color); !ok {
			writeError(w, http.StatusBadRequest, "Unknown color")
			return
		}
	}
	if req.Thickness != 0 && (req.Thickness < gesture.MinThickness || req.Thickness > gesture.MaxThickness) {
		writeError(w, http.StatusBadRequest, "Thickness must be between 5 and 50")
		return
	}

	settings := h.store.Settings()
	if req.Color != "" {
		if err := settings.Set(store.KeyDefaultColor, req.Color); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save settings")
			return
		}
	}
	if req.Thickness != 0 {
		if err := settings.SetInt(store.KeyDefaultThickness, req.Thickness); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save settings")
			return
		}
	}

	h.manager.SetDefaults(req.Color, req.Thickness)

	color, thickness := h.manager.Defaults()
	writeJSON(w, http.StatusOK, settingsPayload{Color: color, Thickness: thickness})
}
