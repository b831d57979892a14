// Package app runs the local camera painter: it reads camera frames, detects
// hands, applies them to the camera session and fans the composited output
// out to stream and state subscribers.
package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/ayusman/chitra/internal/capture"
	"github.com/ayusman/chitra/internal/detector"
	"github.com/ayusman/chitra/internal/painter"
)

// LocalSessionID is the id of the session fed by the camera.
const LocalSessionID = "local"

// Subscriber buffer sizes. Slow subscribers drop frames instead of stalling
// the pipeline.
const (
	frameBuffer = 2
	stateBuffer = 16
)

// Config holds the collaborators of the application.
type Config struct {
	Camera   capture.Camera
	Detector detector.Detector
	Manager  *painter.Manager
	Logger   *slog.Logger
}

// App is the camera pipeline and its output hub.
type App struct {
	camera   capture.Camera
	detector detector.Detector
	manager  *painter.Manager
	logger   *slog.Logger

	mu      sync.RWMutex
	enabled bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	err     error

	subMu  sync.Mutex
	frames map[chan []byte]struct{}
	states map[chan painter.State]struct{}
	latest []byte
}

// New creates an App. The camera must be set; the detector may be nil, in
// which case frames are composited without gesture evaluation.
func New(cfg Config) *App {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		camera:   cfg.Camera,
		detector: cfg.Detector,
		manager:  cfg.Manager,
		logger:   logger.With("component", "app"),
		enabled:  true,
		frames:   make(map[chan []byte]struct{}),
		states:   make(map[chan painter.State]struct{}),
	}
}

// SetEnabled pauses or resumes gesture evaluation. While paused the stream
// keeps running and shows the existing canvas.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether gestures are being evaluated.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector sets the hand detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// Session returns the camera session, creating it on first use.
func (a *App) Session() (*painter.Session, error) {
	if a.manager == nil {
		return nil, errors.New("app has no session manager")
	}
	return a.manager.CreateWithID(LocalSessionID)
}

// Running reports whether the pipeline loop is active.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.stopCh == nil {
		return false
	}
	select {
	case <-a.doneCh:
		return false
	default:
		return true
	}
}

// Err returns the frame acquisition error that ended the pipeline, if any.
func (a *App) Err() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.err
}

func (a *App) fail(err error) {
	a.mu.Lock()
	a.err = err
	a.mu.Unlock()
}

// Start opens the camera and begins the pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}

	a.err = nil
	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(a.stopCh, a.doneCh)

	a.logger.Info("pipeline started", "fps", a.camera.FPS(), "size", a.camera.Size())
	return nil
}

// Stop halts the pipeline and closes the camera and detector.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh

	if err := a.camera.Close(); err != nil {
		a.logger.Warn("close camera", "err", err)
	}
	if d := a.Detector(); d != nil {
		if err := d.Close(); err != nil {
			a.logger.Warn("close detector", "err", err)
		}
	}

	a.logger.Info("pipeline stopped")
}

// Run starts the pipeline and blocks until ctx is done or frame acquisition
// fails. The acquisition error is returned.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(); err != nil {
		return err
	}
	a.mu.RLock()
	done := a.doneCh
	a.mu.RUnlock()

	select {
	case <-ctx.Done():
	case <-done:
	}
	a.Stop()
	return a.Err()
}

// SubscribeFrames returns a channel of JPEG-encoded composited frames and a
// function that ends the subscription.
func (a *App) SubscribeFrames() (<-chan []byte, func()) {
	ch := make(chan []byte, frameBuffer)

	a.subMu.Lock()
	a.frames[ch] = struct{}{}
	a.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.subMu.Lock()
			delete(a.frames, ch)
			a.subMu.Unlock()
		})
	}
}

// SubscribeStates returns a channel of camera session states and a function
// that ends the subscription.
func (a *App) SubscribeStates() (<-chan painter.State, func()) {
	ch := make(chan painter.State, stateBuffer)

	a.subMu.Lock()
	a.states[ch] = struct{}{}
	a.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.subMu.Lock()
			delete(a.states, ch)
			a.subMu.Unlock()
		})
	}
}

// LatestFrame returns the most recent JPEG frame, or nil before the first.
func (a *App) LatestFrame() []byte {
	a.subMu.Lock()
	defer a.subMu.Unlock()
	return a.latest
}

func (a *App) publish(jpeg []byte, st painter.State) {
	a.subMu.Lock()
	defer a.subMu.Unlock()

	a.latest = jpeg
	for ch := range a.frames {
		select {
		case ch <- jpeg:
		default:
		}
	}
	for ch := range a.states {
		select {
		case ch <- st:
		default:
		}
	}
}
