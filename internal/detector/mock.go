package detector

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	hands    []HandLandmarks
	sequence [][]HandLandmarks
	err      error
	calls    int
	mu       sync.Mutex
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by every Detect call.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
	m.sequence = nil
}

// SetSequence queues per-call results. Once the queue drains, Detect falls
// back to the hands set with SetHands.
func (m *MockDetector) SetSequence(seq [][]HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = seq
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls reports how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.sequence) > 0 {
		next := m.sequence[0]
		m.sequence = m.sequence[1:]
		return next, nil
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Fingers in pose order: thumb, index, middle, ring, pinky.
const (
	FingerThumb = iota
	FingerIndex
	FingerMiddle
	FingerRing
	FingerPinky
)

// PosePoints builds a right-hand skeleton in pixel space whose index
// fingertip sits at tip. Each entry of up selects whether that finger is
// extended under the painter's heuristics.
func PosePoints(tip image.Point, up [5]bool) [NumLandmarks]image.Point {
	var p [NumLandmarks]image.Point
	at := func(dx, dy int) image.Point { return image.Pt(tip.X+dx, tip.Y+dy) }

	p[Wrist] = at(-40, 260)

	p[ThumbCMC] = at(30, 230)
	p[ThumbMCP] = at(50, 190)
	p[ThumbIP] = at(60, 140)
	if up[FingerThumb] {
		p[ThumbTip] = at(20, 110)
	} else {
		p[ThumbTip] = at(90, 150)
	}

	// mcp, pip, dip, tip for index..pinky, spaced leftwards
	for f := FingerIndex; f <= FingerPinky; f++ {
		base := IndexMCP + (f-FingerIndex)*4
		dx := -35 * (f - FingerIndex)
		p[base] = at(dx, 150)
		p[base+1] = at(dx, 100)
		p[base+2] = at(dx, 50)
		if up[f] {
			p[base+3] = at(dx, 0)
		} else {
			p[base+3] = at(dx, 130)
		}
	}

	return p
}

// PoseLandmarks is PosePoints normalized for a frame of the given size, so
// that HandLandmarks.Pixels recovers the same non-negative pixel coordinates.
func PoseLandmarks(tip image.Point, up [5]bool, width, height int) HandLandmarks {
	pts := PosePoints(tip, up)
	lm := HandLandmarks{Handedness: "Right", Score: 0.95}
	for i, pt := range pts {
		lm.Points[i] = Point3D{
			X: (float64(pt.X) + 0.5) / float64(width),
			Y: (float64(pt.Y) + 0.5) / float64(height),
		}
	}
	return lm
}
