// Package painter holds per-client painting state and applies one frame of
// gesture input at a time: classify, draw, annotate and composite.
package painter

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/chitra/internal/canvas"
	"github.com/ayusman/chitra/internal/detector"
	"github.com/ayusman/chitra/internal/gesture"
	"github.com/ayusman/chitra/internal/palette"
)

// DefaultThickness is the brush size of a new session.
const DefaultThickness = 20

// ErrInvalidOptions is returned for unusable session options.
var ErrInvalidOptions = errors.New("invalid session options")

// Options configures new sessions.
type Options struct {
	Width     int
	Height    int
	Palette   *palette.Palette
	Color     string // swatch name of the initial color
	Thickness int
	Annotate  bool // draw the hand skeleton and gesture markers on frames
	NoHeader  bool // skip the header menu overlay
}

// State is a snapshot of a session after a frame.
type State struct {
	SessionID string          `json:"session_id"`
	Mode      gesture.Mode    `json:"mode"`
	Fingers   gesture.Fingers `json:"fingers"`
	Hands     int             `json:"hands"`
	Color     string          `json:"color"`
	Thickness int             `json:"thickness"`
	Frames    int64           `json:"frames"`
}

// Session is one client's painter: canvas, cursor, color and thickness.
// It is safe for concurrent use; frames are applied one at a time.
type Session struct {
	id        string
	createdAt time.Time
	width     int
	height    int
	palette   *palette.Palette
	annotate  bool
	header    bool
	onFrame   func(State)

	mu        sync.Mutex
	canvas    *canvas.Canvas
	colorIdx  int
	thickness int
	cursor    image.Point
	hasCursor bool
	mode      gesture.Mode
	frames    int64
}

// NewSession creates a session with a blank canvas.
func NewSession(id string, opts Options) (*Session, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("%w: size %dx%d", ErrInvalidOptions, opts.Width, opts.Height)
	}
	if opts.Palette == nil {
		return nil, fmt.Errorf("%w: palette is required", ErrInvalidOptions)
	}

	thickness := opts.Thickness
	if thickness == 0 {
		thickness = DefaultThickness
	}
	thickness = clampThickness(thickness)

	return &Session{
		id:        id,
		createdAt: time.Now(),
		width:     opts.Width,
		height:    opts.Height,
		palette:   opts.Palette,
		annotate:  opts.Annotate,
		header:    !opts.NoHeader,
		canvas:    canvas.New(opts.Width, opts.Height),
		colorIdx:  colorIndex(opts.Palette, opts.Color),
		thickness: thickness,
		mode:      gesture.ModeNone,
	}, nil
}

// colorIndex resolves a swatch name to a drawable swatch, falling back to
// the first swatch that is not a clear action.
func colorIndex(p *palette.Palette, name string) int {
	if i, ok := p.Index(name); ok && !p.Swatch(i).Clear {
		return i
	}
	for i := 0; i < p.Len(); i++ {
		if !p.Swatch(i).Clear {
			return i
		}
	}
	return 0
}

func clampThickness(t int) int {
	if t < gesture.MinThickness {
		return gesture.MinThickness
	}
	if t > gesture.MaxThickness {
		return gesture.MaxThickness
	}
	return t
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// Size returns the frame size this session paints on.
func (s *Session) Size() image.Point {
	return image.Pt(s.width, s.height)
}

// Process applies one frame of detected hands. The frame is annotated and
// composited in place. Hands are applied in order, so with several hands the
// last one wins any conflicting update.
func (s *Session) Process(frame *gocv.Mat, hands []detector.HandLandmarks) (State, error) {
	kps := make([]gesture.Keypoints, len(hands))
	for i := range hands {
		kps[i] = gesture.FromHand(&hands[i], s.width, s.height)
	}
	return s.ProcessKeypoints(frame, kps)
}

// ProcessKeypoints is Process for hands already in pixel space.
func (s *Session) ProcessKeypoints(frame *gocv.Mat, hands []gesture.Keypoints) (State, error) {
	if frame == nil || frame.Empty() {
		return State{}, canvas.ErrFrameFormat
	}
	if frame.Cols() != s.width || frame.Rows() != s.height {
		return State{}, fmt.Errorf("%w: frame %dx%d, session %dx%d",
			canvas.ErrSizeMismatch, frame.Cols(), frame.Rows(), s.width, s.height)
	}

	s.mu.Lock()

	mode := gesture.ModeNone
	var fingers gesture.Fingers
	for _, kp := range hands {
		if s.annotate {
			drawSkeleton(frame, kp)
		}
		g := gesture.Classify(kp)
		if err := s.apply(frame, g); err != nil {
			s.mu.Unlock()
			return State{}, err
		}
		mode, fingers = g.Mode, g.Fingers
	}

	if err := canvas.Composite(frame, s.canvas); err != nil {
		s.mu.Unlock()
		return State{}, err
	}
	if s.header {
		if err := canvas.OverlayHeader(frame, s.palette.Header(s.colorIdx)); err != nil {
			s.mu.Unlock()
			return State{}, err
		}
	}

	s.mode = mode
	s.frames++
	st := s.stateLocked(fingers, len(hands))
	onFrame := s.onFrame
	s.mu.Unlock()

	if onFrame != nil {
		onFrame(st)
	}
	return st, nil
}

// apply runs the state machine for one classified hand.
func (s *Session) apply(frame *gocv.Mat, g gesture.Gesture) error {
	col := s.palette.Swatch(s.colorIdx).Color

	switch g.Mode {
	case gesture.ModeSelect:
		s.hasCursor = false
		if i, ok := s.palette.Hit(g.Index); ok {
			if s.palette.Swatch(i).Clear {
				if err := s.canvas.Clear(); err != nil {
					return err
				}
			} else {
				s.colorIdx = i
				col = s.palette.Swatch(i).Color
			}
		}
		if s.annotate {
			markSelect(frame, g, col)
		}

	case gesture.ModeDraw:
		if s.annotate {
			markDraw(frame, g, col)
		}
		if !s.hasCursor {
			s.cursor = g.Index
			s.hasCursor = true
		}
		if err := s.canvas.DrawLine(s.cursor, g.Index, col, s.thickness); err != nil {
			return err
		}
		s.cursor = g.Index

	case gesture.ModeEraseAll:
		s.hasCursor = false
		if err := s.canvas.Clear(); err != nil {
			return err
		}

	case gesture.ModeThickness:
		s.hasCursor = false
		s.thickness = gesture.Thickness(g.Thumb, g.Index)
		if s.annotate {
			markThickness(frame, g, col, s.thickness)
		}

	default:
		s.hasCursor = false
	}

	return nil
}

// State returns the current snapshot without processing a frame.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked(gesture.Fingers{}, 0)
}

func (s *Session) stateLocked(fingers gesture.Fingers, hands int) State {
	return State{
		SessionID: s.id,
		Mode:      s.mode,
		Fingers:   fingers,
		Hands:     hands,
		Color:     s.palette.Swatch(s.colorIdx).Name,
		Thickness: s.thickness,
		Frames:    s.frames,
	}
}

// Cursor returns the last drawn point, if any.
func (s *Session) Cursor() (image.Point, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor, s.hasCursor
}

// Color returns the active draw color.
func (s *Session) Color() color.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.palette.Swatch(s.colorIdx).Color
}

// SetColor selects a color swatch by name.
func (s *Session) SetColor(name string) error {
	i, ok := s.palette.Index(name)
	if !ok || s.palette.Swatch(i).Clear {
		return fmt.Errorf("unknown color %q", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.colorIdx = i
	return nil
}

// Clear wipes the canvas and forgets the cursor.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasCursor = false
	return s.canvas.Clear()
}

// Canvas returns a copy of the ink raster. The caller must close it.
func (s *Session) Canvas() (gocv.Mat, error) {
	return s.canvas.Snapshot()
}

// Close releases the canvas.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canvas.Close()
}
