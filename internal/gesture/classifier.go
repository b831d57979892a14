// Package gesture classifies hand keypoints into painter gestures.
package gesture

import (
	"image"

	"gonum.org/v1/gonum/floats"

	"github.com/ayusman/chitra/internal/detector"
)

// Keypoints holds the 21 hand landmarks in pixel coordinates.
type Keypoints [detector.NumLandmarks]image.Point

// FromHand scales detected landmarks into the pixel space of a frame.
func FromHand(h *detector.HandLandmarks, width, height int) Keypoints {
	return Keypoints(h.Pixels(width, height))
}

// Fingers is the up/down state of thumb, index, middle, ring and pinky.
type Fingers [5]bool

// tipIDs are the fingertip landmarks in Fingers order.
var tipIDs = [5]int{
	detector.ThumbTip,
	detector.IndexTip,
	detector.MiddleTip,
	detector.RingTip,
	detector.PinkyTip,
}

// FingersUp derives the finger state vector.
//
// The thumb is compared along x against its IP joint, which assumes a
// mirrored frame. The other fingers are up when the tip is above (smaller y
// than) the joint two landmarks down the chain.
func FingersUp(kp Keypoints) Fingers {
	var f Fingers
	f[0] = kp[tipIDs[0]].X < kp[tipIDs[0]-1].X
	for i := 1; i < 5; i++ {
		f[i] = kp[tipIDs[i]].Y < kp[tipIDs[i]-2].Y
	}
	return f
}

// Count returns the number of extended fingers.
func (f Fingers) Count() int {
	n := 0
	for _, up := range f {
		if up {
			n++
		}
	}
	return n
}

// Mode is the gesture class evaluated for a frame.
type Mode string

const (
	// ModeNone is any finger combination without an action.
	ModeNone Mode = "none"
	// ModeSelect is index and middle up: pick from the header menu.
	ModeSelect Mode = "select"
	// ModeDraw is index up alone: ink follows the fingertip.
	ModeDraw Mode = "draw"
	// ModeEraseAll is a closed fist: the canvas is wiped.
	ModeEraseAll Mode = "erase_all"
	// ModeThickness is thumb and index up: pinch distance sets brush size.
	ModeThickness Mode = "thickness"
)

var (
	selectPattern    = Fingers{false, true, true, false, false}
	drawPattern      = Fingers{false, true, false, false, false}
	erasePattern     = Fingers{}
	thicknessPattern = Fingers{true, true, false, false, false}
)

// Gesture is the classification of one hand in one frame.
type Gesture struct {
	Mode    Mode
	Fingers Fingers
	Index   image.Point // index fingertip
	Middle  image.Point // middle fingertip
	Thumb   image.Point // thumb tip
}

// Classify produces the finger state and the single gesture mode for a
// keypoint set. Patterns are checked in priority order select, draw,
// erase-all, thickness; the first match wins.
func Classify(kp Keypoints) Gesture {
	g := Gesture{
		Fingers: FingersUp(kp),
		Index:   kp[detector.IndexTip],
		Middle:  kp[detector.MiddleTip],
		Thumb:   kp[detector.ThumbTip],
	}

	switch g.Fingers {
	case selectPattern:
		g.Mode = ModeSelect
	case drawPattern:
		g.Mode = ModeDraw
	case erasePattern:
		g.Mode = ModeEraseAll
	case thicknessPattern:
		g.Mode = ModeThickness
	default:
		g.Mode = ModeNone
	}

	return g
}

// Brush thickness bounds in pixels.
const (
	MinThickness = 5
	MaxThickness = 50
)

// Thickness maps the pinch distance between thumb and index tips to a brush
// size: half the Euclidean distance, clamped to [MinThickness, MaxThickness].
func Thickness(thumb, index image.Point) int {
	d := Distance(thumb, index)
	t := int(d / 2)
	if t < MinThickness {
		return MinThickness
	}
	if t > MaxThickness {
		return MaxThickness
	}
	return t
}

// Distance is the Euclidean pixel distance between two points.
func Distance(a, b image.Point) float64 {
	return floats.Distance(
		[]float64{float64(a.X), float64(a.Y)},
		[]float64{float64(b.X), float64(b.Y)},
		2,
	)
}
