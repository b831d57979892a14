// Package testdata synthesizes frames and hand poses for end-to-end tests.
package testdata

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/ayusman/chitra/internal/detector"
	"github.com/ayusman/chitra/internal/painter"
)

// IndexUp is the draw pose: only the index finger extended.
var IndexUp = [5]bool{false, true, false, false, false}

// Frame returns a flat gray BGR frame. The caller must close it.
func Frame(width, height int, level float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(level, level, level, 0), height, width, gocv.MatTypeCV8UC3)
}

// EncodedFrame returns a gray frame as a base64 JPEG data URL, the form a
// browser client uploads.
func EncodedFrame(width, height int, level float64) (string, error) {
	frame := Frame(width, height, level)
	defer frame.Close()

	img, err := painter.EncodeFrame(frame)
	if err != nil {
		return "", fmt.Errorf("encode %dx%d frame: %w", width, height, err)
	}
	return "data:image/jpeg;base64," + img, nil
}

// Stroke returns one detection per step moving a drawing index finger from
// from to to, suitable for MockDetector.SetSequence.
func Stroke(from, to image.Point, steps, width, height int) [][]detector.HandLandmarks {
	if steps < 2 {
		steps = 2
	}
	seq := make([][]detector.HandLandmarks, steps)
	for i := range seq {
		pt := image.Pt(
			from.X+(to.X-from.X)*i/(steps-1),
			from.Y+(to.Y-from.Y)*i/(steps-1),
		)
		seq[i] = []detector.HandLandmarks{detector.PoseLandmarks(pt, IndexUp, width, height)}
	}
	return seq
}
