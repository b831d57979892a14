package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ayusman/chitra/internal/painter"
	"github.com/ayusman/chitra/internal/store"
)

// DefaultFlushInterval is how often buffered session stats reach the store.
const DefaultFlushInterval = 2 * time.Second

// Recorder persists session metadata. Frame updates are buffered in memory
// and written by Run, so the painting path never waits on the database.
type Recorder struct {
	sessions *store.SessionRepository
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]painter.State
}

// NewRecorder creates a Recorder writing through repo every interval.
func NewRecorder(repo *store.SessionRepository, interval time.Duration, logger *slog.Logger) *Recorder {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		sessions: repo,
		interval: interval,
		logger:   logger.With("component", "recorder"),
		pending:  make(map[string]painter.State),
	}
}

// SessionCreated inserts the session record.
func (r *Recorder) SessionCreated(id string) {
	err := r.sessions.Create(&store.Session{ID: id})
	if err == nil {
		return
	}
	// a restarted process reuses ids such as the camera session
	if reopenErr := r.sessions.Reopen(id); reopenErr == nil {
		return
	}
	r.logger.Warn("record session", "id", id, "err", err)
}

// SessionProcessed buffers the latest state of a session.
func (r *Recorder) SessionProcessed(st painter.State) {
	r.mu.Lock()
	r.pending[st.SessionID] = st
	r.mu.Unlock()
}

// SessionDeleted flushes and closes the session record.
func (r *Recorder) SessionDeleted(id string) {
	r.mu.Lock()
	st, ok := r.pending[id]
	delete(r.pending, id)
	r.mu.Unlock()

	if ok {
		r.write(st)
	}
	if err := r.sessions.MarkClosed(id); err != nil && !errors.Is(err, store.ErrNotFound) {
		r.logger.Warn("close session record", "id", id, "err", err)
	}
}

// Flush writes every buffered state.
func (r *Recorder) Flush() {
	r.mu.Lock()
	pending := r.pending
	r.pending = make(map[string]painter.State)
	r.mu.Unlock()

	for _, st := range pending {
		r.write(st)
	}
}

func (r *Recorder) write(st painter.State) {
	err := r.sessions.UpdateStats(&store.Session{
		ID:        st.SessionID,
		Frames:    st.Frames,
		LastMode:  string(st.Mode),
		Color:     st.Color,
		Thickness: st.Thickness,
	})
	if err != nil {
		r.logger.Warn("update session record", "id", st.SessionID, "err", err)
	}
}

// Run flushes on every interval until ctx is done, then flushes once more.
func (r *Recorder) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Flush()
			return nil
		case <-ticker.C:
			r.Flush()
		}
	}
}

// LoadDefaults applies stored default color and thickness to m. Missing
// or malformed values are skipped.
func LoadDefaults(m *painter.Manager, settings *store.SettingsRepository, logger *slog.Logger) {
	color, err := settings.Get(store.KeyDefaultColor)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		logger.Warn("load default color", "err", err)
	}

	thickness, err := settings.GetInt(store.KeyDefaultThickness)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		logger.Warn("load default thickness", "err", err)
		thickness = 0
	}

	m.SetDefaults(color, thickness)
}
