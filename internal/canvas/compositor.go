package canvas

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// InkThreshold is the gray level above which a canvas pixel counts as ink.
const InkThreshold = 50

var (
	// ErrSizeMismatch is returned when frame and canvas dimensions differ.
	ErrSizeMismatch = errors.New("frame and canvas size mismatch")
	// ErrFrameFormat is returned for frames that are not 8-bit BGR.
	ErrFrameFormat = errors.New("frame must be 8-bit 3-channel")
)

// Composite merges the canvas over frame in place.
//
// Algorithm:
// 1. Convert the canvas to grayscale
// 2. Inverse binary threshold at InkThreshold: ink -> 0, empty -> 255
// 3. Expand the mask back to 3 channels
// 4. AND the frame with the mask to cut holes where ink is present
// 5. OR the canvas into the holes
//
// Edges are hard; there is no alpha blending.
func Composite(frame *gocv.Mat, c *Canvas) error {
	if frame == nil || frame.Empty() {
		return ErrFrameFormat
	}
	if frame.Type() != gocv.MatTypeCV8UC3 {
		return ErrFrameFormat
	}
	if frame.Cols() != c.width || frame.Rows() != c.height {
		return fmt.Errorf("%w: frame %dx%d, canvas %dx%d",
			ErrSizeMismatch, frame.Cols(), frame.Rows(), c.width, c.height)
	}

	return c.withMat(func(ink gocv.Mat) error {
		gray := gocv.NewMat()
		defer gray.Close()
		gocv.CvtColor(ink, &gray, gocv.ColorBGRToGray)

		inv := gocv.NewMat()
		defer inv.Close()
		gocv.Threshold(gray, &inv, InkThreshold, 255, gocv.ThresholdBinaryInv)

		mask := gocv.NewMat()
		defer mask.Close()
		gocv.CvtColor(inv, &mask, gocv.ColorGrayToBGR)

		gocv.BitwiseAnd(*frame, mask, frame)
		gocv.BitwiseOr(*frame, ink, frame)
		return nil
	})
}

// OverlayHeader copies header verbatim into the top-left of frame.
func OverlayHeader(frame *gocv.Mat, header gocv.Mat) error {
	if header.Empty() {
		return nil
	}
	if frame == nil || frame.Empty() {
		return ErrFrameFormat
	}
	if header.Cols() > frame.Cols() || header.Rows() > frame.Rows() {
		return fmt.Errorf("%w: header %dx%d larger than frame %dx%d",
			ErrSizeMismatch, header.Cols(), header.Rows(), frame.Cols(), frame.Rows())
	}
	if header.Type() != frame.Type() {
		return ErrFrameFormat
	}

	roi := frame.Region(image.Rect(0, 0, header.Cols(), header.Rows()))
	defer roi.Close()
	header.CopyTo(&roi)

	return nil
}
