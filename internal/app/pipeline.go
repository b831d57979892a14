package app

import (
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/chitra/internal/capture"
	"github.com/ayusman/chitra/internal/detector"
	"github.com/ayusman/chitra/internal/painter"
)

// runPipeline reads, paints and publishes one frame per tick until stopCh
// closes. A failed read ends the loop; subscribers simply stop receiving
// frames.
func (a *App) runPipeline(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	fps := a.camera.FPS()
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			frame, err := a.camera.ReadFrame()
			if err != nil {
				a.logger.Error("frame acquisition failed, stopping pipeline", "err", err)
				a.fail(fmt.Errorf("read frame: %w", err))
				return
			}

			if _, err := a.step(frame); err != nil {
				a.logger.Warn("process frame", "err", err)
			}
			frame.Close()
		}
	}
}

// step paints one camera frame in place and publishes the result.
func (a *App) step(frame *gocv.Mat) (painter.State, error) {
	sess, err := a.Session()
	if err != nil {
		return painter.State{}, err
	}

	hands := a.detect(frame)

	st, err := sess.Process(frame, hands)
	if err != nil {
		return painter.State{}, err
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return st, err
	}
	jpeg := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	a.publish(jpeg, st)
	return st, nil
}

// detect returns the hands in frame. Detector failures are logged and yield
// no hands so the frame is still composited.
func (a *App) detect(frame *gocv.Mat) []detector.HandLandmarks {
	if !a.IsEnabled() {
		return nil
	}
	d := a.Detector()
	if d == nil {
		return nil
	}

	hands, err := d.Detect(frame)
	if err != nil {
		a.logger.Warn("detect hands", "err", err)
		return nil
	}
	return hands
}
