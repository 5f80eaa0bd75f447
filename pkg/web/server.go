// Package web serves a live preview of the edge pipeline: status and
// config over HTTP, processed frames and stats over websockets.
package web

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-edgeview/internal/log"
	"github.com/teslashibe/go-edgeview/pkg/hub"
	"github.com/teslashibe/go-edgeview/pkg/pipeline"
	"github.com/teslashibe/go-edgeview/pkg/processor"
	"github.com/teslashibe/go-edgeview/pkg/source"
)

// Defaults for the preview streams.
const (
	DefaultFrameInterval  = 100 * time.Millisecond
	DefaultStatusInterval = time.Second
	DefaultQuality        = 70
)

// Config wires the server to the running pipeline. Nil callbacks disable
// the matching endpoints.
type Config struct {
	Port string

	WorkerStats    func() pipeline.WorkerStats
	ProcessorStats func() processor.Stats
	Snapshot       func(quality int) ([]byte, error)
	Sources        *source.Manager

	FrameInterval  time.Duration
	StatusInterval time.Duration
	Quality        int
	Logger         *slog.Logger
}

// Status is the JSON body of /api/status and /ws/status.
type Status struct {
	Session   string                `json:"session"`
	Uptime    string                `json:"uptime"`
	Worker    *pipeline.WorkerStats `json:"worker,omitempty"`
	Processor *processor.Stats      `json:"processor,omitempty"`
	Viewers   int                   `json:"viewers"`
	Streaming bool                  `json:"streaming"`
	Dropped   uint64                `json:"broadcast_dropped"`
}

// Server is the preview server
type Server struct {
	app     *fiber.App
	cfg     Config
	logger  *slog.Logger
	session string
	started time.Time

	frameHub  *hub.Hub
	statusHub *hub.Hub

	stopOnce sync.Once
	stop     chan struct{}
}

// NewServer creates the preview server
func NewServer(cfg Config) *Server {
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = DefaultFrameInterval
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = DefaultStatusInterval
	}
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = DefaultQuality
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Component("web")
	}

	s := &Server{
		cfg:       cfg,
		logger:    logger,
		session:   uuid.NewString(),
		started:   time.Now(),
		frameHub:  hub.New("frames"),
		statusHub: hub.New("status"),
		stop:      make(chan struct{}),
	}

	app := fiber.New(fiber.Config{
		AppName:               "edgeview",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/frame.jpg", s.handleFrame)
	api.Get("/config", s.handleGetConfig)
	api.Post("/config", s.handleUpdateConfig)
	api.Get("/presets", s.handlePresets)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/frames", websocket.New(s.handleFramesWS))
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Start listens on cfg.Port and blocks until the server stops.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", ":"+s.cfg.Port)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve runs the hubs and stream loops, then serves on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("web preview listening", "addr", ln.Addr().String(), "session", s.session)

	go s.frameHub.Run()
	go s.statusHub.Run()
	go s.streamFrames()
	go s.streamStatus()

	return s.app.Listener(ln)
}

// StartAsync starts the server in a goroutine
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("web server error", "error", err)
		}
	}()
}

// Shutdown stops the stream loops, hubs and HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	s.frameHub.Stop()
	s.statusHub.Stop()
	return s.app.ShutdownWithContext(ctx)
}

// Status assembles the current status.
func (s *Server) Status() Status {
	st := Status{
		Session:   s.session,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Viewers:   s.frameHub.ClientCount(),
		Streaming: s.frameHub.IsRunning() && s.statusHub.IsRunning(),
		Dropped:   s.frameHub.Dropped() + s.statusHub.Dropped(),
	}
	if s.cfg.WorkerStats != nil {
		ws := s.cfg.WorkerStats()
		st.Worker = &ws
	}
	if s.cfg.ProcessorStats != nil {
		ps := s.cfg.ProcessorStats()
		st.Processor = &ps
	}
	return st
}

// streamFrames encodes and broadcasts the latest output while anyone is
// watching.
func (s *Server) streamFrames() {
	if s.cfg.Snapshot == nil {
		return
	}
	ticker := time.NewTicker(s.cfg.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if s.frameHub.ClientCount() == 0 {
				continue
			}
			data, err := s.cfg.Snapshot(s.cfg.Quality)
			if err != nil {
				continue
			}
			s.frameHub.BroadcastBinary(data)
		}
	}
}

func (s *Server) streamStatus() {
	ticker := time.NewTicker(s.cfg.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if s.statusHub.ClientCount() == 0 {
				continue
			}
			if err := s.statusHub.BroadcastJSON(s.Status()); err != nil {
				s.logger.Warn("status encode failed", "error", err)
			}
		}
	}
}
