// Package canvas provides the persistent ink raster and the compositor that
// merges it over live video using GoCV (OpenCV).
package canvas

import (
	"errors"
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"
)

// ErrClosed is returned when a closed canvas is used.
var ErrClosed = errors.New("canvas is closed")

// Canvas is a BGR raster accumulating strokes across frames.
// A zero pixel means "no ink".
type Canvas struct {
	mat    gocv.Mat
	width  int
	height int
	closed bool
	mu     sync.Mutex
}

// New creates a blank canvas of the given size.
func New(width, height int) *Canvas {
	return &Canvas{
		mat:    gocv.Zeros(height, width, gocv.MatTypeCV8UC3),
		width:  width,
		height: height,
	}
}

// Size returns the canvas dimensions.
func (c *Canvas) Size() image.Point {
	return image.Pt(c.width, c.height)
}

// DrawLine appends a straight segment from -> to in the given color and
// thickness. Drawing the same segment twice leaves the raster unchanged.
func (c *Canvas) DrawLine(from, to image.Point, col color.RGBA, thickness int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if thickness < 1 {
		thickness = 1
	}

	gocv.Line(&c.mat, from, to, col, thickness)
	return nil
}

// Clear resets every pixel to blank.
func (c *Canvas) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	c.mat.SetTo(gocv.NewScalar(0, 0, 0, 0))
	return nil
}

// IsBlank reports whether the canvas holds no ink at all.
func (c *Canvas) IsBlank() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return true
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(c.mat, &gray, gocv.ColorBGRToGray)

	return gocv.CountNonZero(gray) == 0
}

// Snapshot returns a copy of the raster. The caller must close it.
func (c *Canvas) Snapshot() (gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return gocv.NewMat(), ErrClosed
	}
	return c.mat.Clone(), nil
}

// Close releases the native buffer. Closing twice is a no-op.
func (c *Canvas) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.mat.Close()
}

// withMat runs fn with the raster locked.
func (c *Canvas) withMat(fn func(m gocv.Mat) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	return fn(c.mat)
}
