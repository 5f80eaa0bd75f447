package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-edgeview/internal/log"
	"github.com/teslashibe/go-edgeview/pkg/pipeline"
	"github.com/teslashibe/go-edgeview/pkg/processor"
	"github.com/teslashibe/go-edgeview/pkg/source"
)

var fakeJPEG = []byte{0xFF, 0xD8, 0xFF, 0xE0, 'e', 'd', 'g', 'e', 0xFF, 0xD9}

func newTestServer(snapshot func(int) ([]byte, error)) *Server {
	return NewServer(Config{
		WorkerStats: func() pipeline.WorkerStats {
			return pipeline.WorkerStats{Processed: 12, Failed: 1}
		},
		ProcessorStats: func() processor.Stats {
			return processor.Stats{Frames: 12, Width: 640, Height: 480}
		},
		Snapshot:       snapshot,
		Sources:        source.NewManager(source.DefaultConfig()),
		FrameInterval:  20 * time.Millisecond,
		StatusInterval: 20 * time.Millisecond,
		Logger:         log.Discard(),
	})
}

func okSnapshot(int) ([]byte, error) { return fakeJPEG, nil }

func TestStatusEndpoint(t *testing.T) {
	s := newTestServer(okSnapshot)

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/status", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var st Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, s.session, st.Session)
	require.NotNil(t, st.Worker)
	assert.Equal(t, uint64(12), st.Worker.Processed)
	require.NotNil(t, st.Processor)
	assert.Equal(t, 640, st.Processor.Width)
	assert.False(t, st.Streaming, "hubs run only once the server is serving")
	assert.Zero(t, st.Dropped)
}

func TestSessionIDsAreUnique(t *testing.T) {
	a := newTestServer(okSnapshot)
	b := newTestServer(okSnapshot)
	assert.NotEqual(t, a.session, b.session)
	assert.Len(t, a.session, 36)
}

func TestFrameEndpoint(t *testing.T) {
	var gotQuality int
	s := newTestServer(func(q int) ([]byte, error) {
		gotQuality = q
		return fakeJPEG, nil
	})

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/frame.jpg?quality=55", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fakeJPEG, body)
	assert.Equal(t, 55, gotQuality)
}

func TestFrameEndpoint_NoOutputYet(t *testing.T) {
	s := newTestServer(func(int) ([]byte, error) { return nil, processor.ErrNoOutput })

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/frame.jpg", nil))
	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode)
}

func TestFrameEndpoint_EncodeFailure(t *testing.T) {
	s := newTestServer(func(int) ([]byte, error) { return nil, errors.New("boom") })

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/frame.jpg", nil))
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
}

func TestFrameEndpoint_NotConfigured(t *testing.T) {
	s := NewServer(Config{Logger: log.Discard()})

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/frame.jpg", nil))
	require.NoError(t, err)
	assert.Equal(t, 501, resp.StatusCode)

	resp, err = s.App().Test(httptest.NewRequest("GET", "/api/config", nil))
	require.NoError(t, err)
	assert.Equal(t, 501, resp.StatusCode)
}

func TestConfigEndpoints(t *testing.T) {
	s := newTestServer(okSnapshot)

	var applied source.Config
	s.cfg.Sources.OnConfigChange = func(cfg source.Config) error {
		applied = cfg
		return nil
	}

	req := httptest.NewRequest("POST", "/api/config", strings.NewReader(`{"preset":"qvga","framerate":15}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var cfg source.Config
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cfg))
	assert.Equal(t, 320, cfg.Width)
	assert.Equal(t, 240, cfg.Height)
	assert.Equal(t, 15, cfg.Framerate)
	assert.Equal(t, cfg, applied)

	resp, err = s.App().Test(httptest.NewRequest("GET", "/api/config", nil))
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cfg))
	assert.Equal(t, 320, cfg.Width)
}

func TestConfigEndpoint_Rejects(t *testing.T) {
	s := newTestServer(okSnapshot)

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"width":`},
		{"odd width", `{"width":641}`},
		{"unknown preset", `{"preset":"8k"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/config", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := s.App().Test(req)
			require.NoError(t, err)
			assert.Equal(t, 400, resp.StatusCode)
		})
	}

	assert.Equal(t, source.DefaultConfig(), s.cfg.Sources.GetConfig())
}

func TestPresetsEndpoint(t *testing.T) {
	s := newTestServer(okSnapshot)

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/presets", nil))
	require.NoError(t, err)

	var names []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&names))
	assert.Contains(t, names, "vga")
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	s := newTestServer(okSnapshot)

	resp, err := s.App().Test(httptest.NewRequest("GET", "/ws/frames", nil))
	require.NoError(t, err)
	assert.Equal(t, 426, resp.StatusCode)
}

func serve(t *testing.T, s *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go s.Serve(ln)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Shutdown(ctx)
	})
	time.Sleep(100 * time.Millisecond)
	return ln.Addr().String()
}

func TestFramesWebSocket(t *testing.T) {
	s := newTestServer(okSnapshot)
	addr := serve(t, s)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws/frames", nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, kind)
	assert.Equal(t, fakeJPEG, data)
}

func TestStatusWebSocket(t *testing.T) {
	s := newTestServer(okSnapshot)
	addr := serve(t, s)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws/status", nil)
	require.NoError(t, err)
	defer conn.Close()

	// Initial snapshot, then periodic updates.
	for i := 0; i < 2; i++ {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var st Status
		require.NoError(t, conn.ReadJSON(&st))
		assert.Equal(t, s.session, st.Session)
		assert.True(t, st.Streaming)
	}
}

func TestWatch(t *testing.T) {
	s := newTestServer(okSnapshot)
	addr := serve(t, s)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	errDone := errors.New("done")
	var got [][]byte
	err := Watch(ctx, "ws://"+addr+"/ws/frames", func(jpeg []byte) error {
		got = append(got, jpeg)
		if len(got) == 3 {
			return errDone
		}
		return nil
	})
	assert.ErrorIs(t, err, errDone)
	require.Len(t, got, 3)
	assert.Equal(t, fakeJPEG, got[2])
}

func TestWatch_Cancelled(t *testing.T) {
	s := newTestServer(func(int) ([]byte, error) { return nil, processor.ErrNoOutput })
	addr := serve(t, s)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := Watch(ctx, "ws://"+addr+"/ws/frames", func([]byte) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
