package painter

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/chitra/internal/detector"
	"github.com/ayusman/chitra/internal/gesture"
)

var (
	boneColor  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	jointColor = color.RGBA{R: 255, G: 0, B: 0, A: 255}
)

// Marker sizes in pixels.
const (
	drawCursorRadius = 15
	jointRadius      = 4
)

// drawSkeleton renders the hand connections and joints onto the frame.
func drawSkeleton(frame *gocv.Mat, kp gesture.Keypoints) {
	for _, c := range detector.Connections {
		gocv.Line(frame, kp[c[0]], kp[c[1]], boneColor, 2)
	}
	for _, p := range kp {
		gocv.Circle(frame, p, jointRadius, jointColor, -1)
	}
}

// markSelect fills a box spanning the index and middle fingertips.
func markSelect(frame *gocv.Mat, g gesture.Gesture, col color.RGBA) {
	box := image.Rectangle{
		Min: image.Pt(g.Index.X-10, g.Index.Y-15),
		Max: image.Pt(g.Middle.X+10, g.Middle.Y+23),
	}.Canon()
	gocv.Rectangle(frame, box, col, -1)
}

// markDraw fills a dot under the drawing fingertip.
func markDraw(frame *gocv.Mat, g gesture.Gesture, col color.RGBA) {
	gocv.Circle(frame, g.Index, drawCursorRadius, col, -1)
}

// markThickness shows the pinch line and a brush-sized dot at its midpoint.
func markThickness(frame *gocv.Mat, g gesture.Gesture, col color.RGBA, thickness int) {
	mid := image.Pt((g.Thumb.X+g.Index.X)/2, (g.Thumb.Y+g.Index.Y)/2)
	gocv.Line(frame, g.Thumb, g.Index, col, 3)
	gocv.Circle(frame, mid, thickness/2, col, -1)
}
