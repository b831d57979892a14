package painter

import (
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"

	"gocv.io/x/gocv"
)

// ErrDecode is the sentinel wrapped by every DecodeError.
var ErrDecode = errors.New("decode error")

// DecodeError reports an uploaded frame that could not be turned into an
// image. Session state is never touched when it is returned.
type DecodeError struct {
	Stage string // "base64" or "image"
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode error: %s: %v", e.Stage, e.Err)
	}
	return "decode error: " + e.Stage
}

// Unwrap lets errors.Is match both ErrDecode and the cause.
func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDecode}
	}
	return []error{ErrDecode, e.Err}
}

// DecodeFrame turns a base64 image payload into a BGR frame of the given
// size. A "data:image/...;base64," prefix is accepted. Frames of another
// size are resized. The caller must close the returned Mat.
func DecodeFrame(payload string, width, height int) (gocv.Mat, error) {
	if i := strings.Index(payload, ","); i >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[i+1:]
	}
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return gocv.NewMat(), &DecodeError{Stage: "base64", Err: errors.New("empty payload")}
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return gocv.NewMat(), &DecodeError{Stage: "base64", Err: err}
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		mat.Close()
		return gocv.NewMat(), &DecodeError{Stage: "image", Err: err}
	}
	if mat.Empty() {
		mat.Close()
		return gocv.NewMat(), &DecodeError{Stage: "image", Err: errors.New("not a supported image")}
	}

	if mat.Cols() != width || mat.Rows() != height {
		resized := gocv.NewMat()
		gocv.Resize(mat, &resized, image.Pt(width, height), 0, 0, gocv.InterpolationLinear)
		mat.Close()
		mat = resized
	}

	return mat, nil
}

// EncodeFrame encodes a frame as base64 JPEG.
func EncodeFrame(frame gocv.Mat) (string, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
	if err != nil {
		return "", fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()
	return base64.StdEncoding.EncodeToString(buf.GetBytes()), nil
}
