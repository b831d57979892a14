package painter

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/chitra/internal/canvas"
	"github.com/ayusman/chitra/internal/detector"
	"github.com/ayusman/chitra/internal/gesture"
	"github.com/ayusman/chitra/internal/palette"
)

const (
	testWidth  = 1280
	testHeight = 720
)

var (
	drawUp      = gesture.Fingers{false, true, false, false, false}
	selectUp    = gesture.Fingers{false, true, true, false, false}
	thicknessUp = gesture.Fingers{true, true, false, false, false}
	fist        = gesture.Fingers{}
	openPalm    = gesture.Fingers{true, true, true, true, true}

	redBGR   = [3]uint8{0, 0, 255}
	greenBGR = [3]uint8{0, 255, 0}
)

func newTestPalette(t *testing.T) *palette.Palette {
	t.Helper()
	p, err := palette.New(testWidth, nil, "")
	if err != nil {
		t.Fatalf("palette.New() error = %v", err)
	}
	t.Cleanup(p.Close)
	return p
}

func newTestSession(t *testing.T, opts Options) *Session {
	t.Helper()
	opts.Width, opts.Height = testWidth, testHeight
	if opts.Palette == nil {
		opts.Palette = newTestPalette(t)
	}
	s, err := NewSession("test", opts)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func liveFrame() gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(200, 200, 200, 0), testHeight, testWidth, gocv.MatTypeCV8UC3)
}

func hand(tip image.Point, up gesture.Fingers) gesture.Keypoints {
	return gesture.Keypoints(detector.PosePoints(tip, up))
}

// step processes one frame with the given hands and returns the state.
func step(t *testing.T, s *Session, hands ...gesture.Keypoints) State {
	t.Helper()
	frame := liveFrame()
	defer frame.Close()

	st, err := s.ProcessKeypoints(&frame, hands)
	if err != nil {
		t.Fatalf("ProcessKeypoints() error = %v", err)
	}
	return st
}

func inkAt(t *testing.T, s *Session, x, y int) [3]uint8 {
	t.Helper()
	snap, err := s.Canvas()
	if err != nil {
		t.Fatalf("Canvas() error = %v", err)
	}
	defer snap.Close()
	v := snap.GetVecbAt(y, x)
	return [3]uint8{v[0], v[1], v[2]}
}

func TestSession_DrawScenario(t *testing.T) {
	s := newTestSession(t, Options{NoHeader: true})

	step(t, s, hand(image.Pt(100, 100), drawUp))

	frame := liveFrame()
	defer frame.Close()
	st, err := s.ProcessKeypoints(&frame, []gesture.Keypoints{hand(image.Pt(120, 100), drawUp)})
	if err != nil {
		t.Fatalf("ProcessKeypoints() error = %v", err)
	}

	if st.Mode != gesture.ModeDraw {
		t.Errorf("mode = %s, want draw", st.Mode)
	}
	if st.Color != "red" || st.Thickness != DefaultThickness {
		t.Errorf("state = %+v, want red with default thickness", st)
	}

	for _, x := range []int{100, 105, 110, 115, 120} {
		if got := inkAt(t, s, x, 100); got != redBGR {
			t.Errorf("canvas (%d,100) = %v, want red", x, got)
		}
	}
	// thickness 20 reaches about 10px above and below the segment
	if got := inkAt(t, s, 110, 108); got != redBGR {
		t.Errorf("canvas (110,108) = %v, want red within stroke width", got)
	}
	if got := inkAt(t, s, 110, 130); got != [3]uint8{} {
		t.Errorf("canvas (110,130) = %v, want blank outside stroke", got)
	}

	v := frame.GetVecbAt(100, 110)
	if got := [3]uint8{v[0], v[1], v[2]}; got != redBGR {
		t.Errorf("composited (110,100) = %v, want canvas red", got)
	}
	v = frame.GetVecbAt(400, 110)
	if got := [3]uint8{v[0], v[1], v[2]}; got != [3]uint8{200, 200, 200} {
		t.Errorf("composited (110,400) = %v, want live frame", got)
	}
}

func TestSession_FirstDrawStartsAtFingertip(t *testing.T) {
	s := newTestSession(t, Options{})

	if _, ok := s.Cursor(); ok {
		t.Fatal("new session should have no cursor")
	}

	step(t, s, hand(image.Pt(600, 400), drawUp))

	cur, ok := s.Cursor()
	if !ok || cur != image.Pt(600, 400) {
		t.Errorf("cursor = %v, %v; want (600,400), true", cur, ok)
	}
	// a segment from the origin would cross the midpoint
	if got := inkAt(t, s, 300, 200); got != [3]uint8{} {
		t.Errorf("canvas (300,200) = %v, want blank: no segment from origin", got)
	}
	if got := inkAt(t, s, 5, 5); got != [3]uint8{} {
		t.Errorf("canvas (5,5) = %v, want blank", got)
	}
	if got := inkAt(t, s, 600, 400); got != redBGR {
		t.Errorf("canvas (600,400) = %v, want a dot at the fingertip", got)
	}
}

func TestSession_CursorAtOriginIsAPoint(t *testing.T) {
	s := newTestSession(t, Options{})

	step(t, s, hand(image.Pt(0, 0), drawUp))
	cur, ok := s.Cursor()
	if !ok || cur != (image.Point{}) {
		t.Fatalf("cursor = %v, %v; want (0,0), true", cur, ok)
	}

	step(t, s, hand(image.Pt(60, 0), drawUp))

	if got := inkAt(t, s, 30, 0); got != redBGR {
		t.Errorf("canvas (30,0) = %v, want the segment from (0,0)", got)
	}
}

func TestSession_NonDrawResetsCursor(t *testing.T) {
	s := newTestSession(t, Options{})

	step(t, s, hand(image.Pt(300, 400), drawUp))
	step(t, s, hand(image.Pt(300, 400), openPalm))

	if _, ok := s.Cursor(); ok {
		t.Fatal("cursor should reset when the mode is not draw")
	}

	step(t, s, hand(image.Pt(700, 400), drawUp))

	if got := inkAt(t, s, 500, 400); got != [3]uint8{} {
		t.Errorf("canvas (500,400) = %v, want no segment across the pause", got)
	}
}

func TestSession_EraseAllMatchesFreshCanvas(t *testing.T) {
	s := newTestSession(t, Options{})

	step(t, s, hand(image.Pt(300, 300), drawUp))
	step(t, s, hand(image.Pt(500, 500), drawUp))
	st := step(t, s, hand(image.Pt(500, 500), fist))

	if st.Mode != gesture.ModeEraseAll {
		t.Errorf("mode = %s, want erase_all", st.Mode)
	}
	if _, ok := s.Cursor(); ok {
		t.Error("cursor should reset on erase")
	}

	fresh := canvas.New(testWidth, testHeight)
	defer fresh.Close()
	want, _ := fresh.Snapshot()
	defer want.Close()
	got, _ := s.Canvas()
	defer got.Close()

	if !bytes.Equal(got.ToBytes(), want.ToBytes()) {
		t.Error("erased canvas differs from a fresh canvas")
	}
}

func TestSession_SelectColor(t *testing.T) {
	s := newTestSession(t, Options{})

	st := step(t, s, hand(image.Pt(760, 60), selectUp))
	if st.Mode != gesture.ModeSelect {
		t.Fatalf("mode = %s, want select", st.Mode)
	}
	if st.Color != "green" {
		t.Errorf("color = %s, want green", st.Color)
	}
	if _, ok := s.Cursor(); ok {
		t.Error("cursor should reset in select mode")
	}

	t.Run("selection below the menu keeps color", func(t *testing.T) {
		st := step(t, s, hand(image.Pt(200, 400), selectUp))
		if st.Color != "green" {
			t.Errorf("color = %s, want green", st.Color)
		}
	})

	t.Run("selection between bands keeps color", func(t *testing.T) {
		st := step(t, s, hand(image.Pt(350, 60), selectUp))
		if st.Color != "green" {
			t.Errorf("color = %s, want green", st.Color)
		}
	})

	t.Run("draws in the selected color", func(t *testing.T) {
		step(t, s, hand(image.Pt(400, 500), drawUp))
		if got := inkAt(t, s, 400, 500); got != greenBGR {
			t.Errorf("canvas (400,500) = %v, want green", got)
		}
	})
}

func TestSession_ClearSwatch(t *testing.T) {
	s := newTestSession(t, Options{})

	step(t, s, hand(image.Pt(400, 500), drawUp))
	step(t, s, hand(image.Pt(1200, 60), selectUp))

	if got := inkAt(t, s, 400, 500); got != [3]uint8{} {
		t.Errorf("canvas (400,500) = %v, want cleared", got)
	}
	if st := s.State(); st.Color != "red" {
		t.Errorf("color = %s, want unchanged red", st.Color)
	}
}

func TestSession_Eraser(t *testing.T) {
	s := newTestSession(t, Options{})

	step(t, s, hand(image.Pt(400, 500), drawUp))
	step(t, s, hand(image.Pt(1000, 60), selectUp))
	step(t, s, hand(image.Pt(400, 500), drawUp))

	if got := inkAt(t, s, 400, 500); got != [3]uint8{} {
		t.Errorf("canvas (400,500) = %v, want erased to black", got)
	}
}

func TestSession_Thickness(t *testing.T) {
	tests := []struct {
		name  string
		thumb image.Point
		want  int
	}{
		{"pinched closed", image.Pt(500, 400), 5},
		{"forty apart", image.Pt(500, 440), 20},
		{"wide open", image.Pt(500, 700), 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t, Options{})

			kp := hand(image.Pt(500, 400), thicknessUp)
			kp[detector.ThumbTip] = tt.thumb

			st := step(t, s, kp)
			if st.Mode != gesture.ModeThickness {
				t.Fatalf("mode = %s, want thickness", st.Mode)
			}
			if st.Thickness != tt.want {
				t.Errorf("thickness = %d, want %d", st.Thickness, tt.want)
			}
		})
	}
}

func TestSession_ZeroHandsKeepsState(t *testing.T) {
	s := newTestSession(t, Options{NoHeader: true})

	step(t, s, hand(image.Pt(300, 300), drawUp))
	before, _ := s.Canvas()
	defer before.Close()

	frame := liveFrame()
	defer frame.Close()
	st, err := s.ProcessKeypoints(&frame, nil)
	if err != nil {
		t.Fatalf("ProcessKeypoints() error = %v", err)
	}

	if st.Hands != 0 || st.Mode != gesture.ModeNone {
		t.Errorf("state = %+v, want no hands and mode none", st)
	}
	if cur, ok := s.Cursor(); !ok || cur != image.Pt(300, 300) {
		t.Errorf("cursor = %v, %v; want unchanged (300,300)", cur, ok)
	}

	after, _ := s.Canvas()
	defer after.Close()
	if !bytes.Equal(before.ToBytes(), after.ToBytes()) {
		t.Error("canvas changed on a frame without hands")
	}

	v := frame.GetVecbAt(300, 300)
	if got := [3]uint8{v[0], v[1], v[2]}; got != redBGR {
		t.Errorf("composited (300,300) = %v, want existing ink", got)
	}
}

func TestSession_LastHandWins(t *testing.T) {
	s := newTestSession(t, Options{})

	st := step(t, s,
		hand(image.Pt(500, 60), selectUp),
		hand(image.Pt(760, 60), selectUp),
	)

	if st.Color != "green" {
		t.Errorf("color = %s, want green from the last hand", st.Color)
	}
	if st.Hands != 2 {
		t.Errorf("hands = %d, want 2", st.Hands)
	}
}

func TestSession_HeaderOverlay(t *testing.T) {
	p := newTestPalette(t)
	s := newTestSession(t, Options{Palette: p})

	frame := liveFrame()
	defer frame.Close()
	if _, err := s.ProcessKeypoints(&frame, nil); err != nil {
		t.Fatalf("ProcessKeypoints() error = %v", err)
	}

	header := p.Header(0)
	for _, pt := range []image.Point{{5, 5}, {200, 20}, {1279, 124}} {
		got := frame.GetVecbAt(pt.Y, pt.X)
		want := header.GetVecbAt(pt.Y, pt.X)
		if got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
			t.Errorf("frame %v = %v, want header %v", pt, got, want)
		}
	}
	if v := frame.GetVecbAt(125, 5); v[0] != 200 {
		t.Errorf("frame below header = %v, want live", v)
	}
}

func TestSession_Annotate(t *testing.T) {
	s := newTestSession(t, Options{Annotate: true})

	frame := liveFrame()
	defer frame.Close()
	kp := hand(image.Pt(600, 300), openPalm)
	if _, err := s.ProcessKeypoints(&frame, []gesture.Keypoints{kp}); err != nil {
		t.Fatalf("ProcessKeypoints() error = %v", err)
	}

	wrist := kp[detector.Wrist]
	v := frame.GetVecbAt(wrist.Y, wrist.X)
	if v[0] == 200 && v[1] == 200 && v[2] == 200 {
		t.Error("expected the skeleton to be drawn at the wrist")
	}
	if !s.canvas.IsBlank() {
		t.Error("annotations must not reach the canvas")
	}
}

func TestSession_Process_FromLandmarks(t *testing.T) {
	s := newTestSession(t, Options{})

	frame := liveFrame()
	defer frame.Close()
	hands := []detector.HandLandmarks{
		detector.PoseLandmarks(image.Pt(640, 400), drawUp, testWidth, testHeight),
	}

	st, err := s.Process(&frame, hands)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if st.Mode != gesture.ModeDraw {
		t.Errorf("mode = %s, want draw", st.Mode)
	}
	if cur, _ := s.Cursor(); cur != image.Pt(640, 400) {
		t.Errorf("cursor = %v, want (640,400)", cur)
	}
}

func TestSession_FrameErrors(t *testing.T) {
	s := newTestSession(t, Options{})

	small := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer small.Close()

	_, err := s.ProcessKeypoints(&small, []gesture.Keypoints{hand(image.Pt(10, 10), drawUp)})
	if !errors.Is(err, canvas.ErrSizeMismatch) {
		t.Errorf("error = %v, want ErrSizeMismatch", err)
	}
	if _, ok := s.Cursor(); ok {
		t.Error("a rejected frame must not move the cursor")
	}
	if st := s.State(); st.Frames != 0 {
		t.Errorf("frames = %d, want 0", st.Frames)
	}

	if _, err := s.ProcessKeypoints(nil, nil); !errors.Is(err, canvas.ErrFrameFormat) {
		t.Errorf("nil frame error = %v, want ErrFrameFormat", err)
	}
}

func TestSession_SetColorAndClear(t *testing.T) {
	s := newTestSession(t, Options{Color: "blue", Thickness: 100})

	if s.Color() != (color.RGBA{B: 255, A: 255}) {
		t.Errorf("initial color = %v, want blue", s.Color())
	}
	if st := s.State(); st.Thickness != gesture.MaxThickness {
		t.Errorf("thickness = %d, want clamped to %d", st.Thickness, gesture.MaxThickness)
	}

	if err := s.SetColor("clear"); err == nil {
		t.Error("SetColor(clear) should fail")
	}
	if err := s.SetColor("eraser"); err != nil {
		t.Errorf("SetColor(eraser) error = %v", err)
	}

	step(t, s, hand(image.Pt(300, 300), drawUp))
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if !s.canvas.IsBlank() {
		t.Error("canvas should be blank after Clear")
	}
}

func TestNewSession_InvalidOptions(t *testing.T) {
	if _, err := NewSession("x", Options{Width: 0, Height: 10}); !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("error = %v, want ErrInvalidOptions", err)
	}
	if _, err := NewSession("x", Options{Width: 10, Height: 10}); !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("missing palette error = %v, want ErrInvalidOptions", err)
	}
}
