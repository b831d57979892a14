package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ayusman/chitra/internal/detector"
	"github.com/ayusman/chitra/internal/painter"
)

// maxFrameBody bounds uploaded frame requests.
const maxFrameBody = 16 << 20

// FrameHandler paints uploaded frames: POST /api/frames.
type FrameHandler struct {
	manager  *painter.Manager
	detector detector.Detector
	logger   *slog.Logger
}

// NewFrameHandler creates a FrameHandler. d may be nil, in which case only
// frames that carry their own hands are evaluated.
func NewFrameHandler(m *painter.Manager, d detector.Detector, logger *slog.Logger) *FrameHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FrameHandler{manager: m, detector: d, logger: logger}
}

type frameRequest struct {
	SessionID string `json:"session_id"`
	Image     string `json:"image"`
	// Hands lets clients that run their own landmark model skip detection.
	Hands []detector.HandLandmarks `json:"hands,omitempty"`
}

type frameResponse struct {
	SessionID string        `json:"session_id"`
	Image     string        `json:"image"`
	State     painter.State `json:"state"`
}

func (h *FrameHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req frameRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFrameBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	sess, created, err := h.manager.GetOrCreate(req.SessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}
	if created {
		h.logger.Info("session created", "id", sess.ID())
	}

	size := sess.Size()
	frame, err := painter.DecodeFrame(req.Image, size.X, size.Y)
	if err != nil {
		frame.Close()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer frame.Close()

	hands := req.Hands
	if hands == nil && h.detector != nil {
		hands, err = h.detector.Detect(&frame)
		if err != nil {
			h.logger.Warn("detect hands", "session", sess.ID(), "err", err)
			hands = nil
		}
	}

	st, err := sess.Process(&frame, hands)
	if err != nil {
		h.logger.Warn("process frame", "session", sess.ID(), "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to process frame")
		return
	}

	img, err := painter.EncodeFrame(frame)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode frame")
		return
	}

	writeJSON(w, http.StatusOK, frameResponse{
		SessionID: sess.ID(),
		Image:     img,
		State:     st,
	})
}
