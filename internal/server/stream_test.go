package server

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/chitra/internal/gesture"
	"github.com/ayusman/chitra/internal/painter"
)

// fakeSource hands out subscription channels the test can feed.
type fakeSource struct {
	mu         sync.Mutex
	frames     chan []byte
	states     chan painter.State
	subscribed chan struct{}
	cancelled  chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		frames:     make(chan []byte, 4),
		states:     make(chan painter.State, 4),
		subscribed: make(chan struct{}, 4),
		cancelled:  make(chan struct{}, 4),
	}
}

func (f *fakeSource) SubscribeFrames() (<-chan []byte, func()) {
	f.subscribed <- struct{}{}
	return f.frames, func() { f.cancelled <- struct{}{} }
}

func (f *fakeSource) SubscribeStates() (<-chan painter.State, func()) {
	f.subscribed <- struct{}{}
	return f.states, func() { f.cancelled <- struct{}{} }
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestStreamHandler_MJPEG(t *testing.T) {
	src := newFakeSource()
	ts := httptest.NewServer(New(Config{Source: src}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/video_feed", nil)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("GET /video_feed error = %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "multipart/x-mixed-replace; boundary=frame" {
		t.Errorf("Content-Type = %q", ct)
	}

	waitFor(t, src.subscribed, "stream subscription")
	jpeg := []byte{0xFF, 0xD8, 0x01, 0x02, 0xFF, 0xD9}
	src.frames <- jpeg

	r := bufio.NewReader(resp.Body)
	line, err := r.ReadString('\n')
	if err != nil || strings.TrimSpace(line) != "--frame" {
		t.Fatalf("boundary line = %q, %v", line, err)
	}
	for {
		line, err = r.ReadString('\n')
		if err != nil {
			t.Fatalf("read part header: %v", err)
		}
		if line == "\r\n" {
			break
		}
	}
	body := make([]byte, len(jpeg))
	if _, err := io.ReadFull(r, body); err != nil {
		t.Fatalf("read part body: %v", err)
	}
	if !bytes.Equal(body, jpeg) {
		t.Errorf("part body = %x, want %x", body, jpeg)
	}

	cancel()
	waitFor(t, src.cancelled, "stream unsubscribe")
}

func TestStreamHandler_MethodNotAllowed(t *testing.T) {
	h := NewStreamHandler(newFakeSource())

	req := httptest.NewRequest(http.MethodPost, "/video_feed", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestStateHandler_WebSocket(t *testing.T) {
	src := newFakeSource()
	ts := httptest.NewServer(New(Config{Source: src}))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}

	waitFor(t, src.subscribed, "state subscription")
	src.states <- painter.State{SessionID: "local", Mode: gesture.ModeDraw, Color: "red", Thickness: 20, Frames: 9}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got painter.State
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if got.Mode != gesture.ModeDraw || got.Frames != 9 || got.SessionID != "local" {
		t.Errorf("state = %+v", got)
	}

	conn.Close()
	waitFor(t, src.cancelled, "state unsubscribe")
}
