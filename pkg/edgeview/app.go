package edgeview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-edgeview/internal/log"
	"github.com/teslashibe/go-edgeview/pkg/debug"
	"github.com/teslashibe/go-edgeview/pkg/display"
	"github.com/teslashibe/go-edgeview/pkg/pipeline"
	"github.com/teslashibe/go-edgeview/pkg/processor"
	"github.com/teslashibe/go-edgeview/pkg/source"
	"github.com/teslashibe/go-edgeview/pkg/texture"
	"github.com/teslashibe/go-edgeview/pkg/web"
)

// device is a texture.Device that can also create and delete textures.
type device interface {
	texture.Device
	GenTexture() texture.Handle
	DeleteTexture(texture.Handle)
}

// App is the main application orchestrator.
// It manages all components and their lifecycle.
type App struct {
	config Config
	logger *slog.Logger

	renderer *display.Renderer // nil when headless
	device   device
	tex      texture.Handle

	proc    *processor.Processor
	mailbox *pipeline.Mailbox
	worker  *pipeline.Worker
	sources *source.Manager

	webServer *web.Server

	// Current source and the goroutine feeding it into the mailbox.
	feedMu     sync.Mutex
	src        source.Source
	runCtx     context.Context
	feedCancel context.CancelFunc
	feedDone   chan struct{}
}

// New creates a new application with the given configuration.
func New(cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Title == "" {
		cfg.Title = DefaultTitle
	}
	debug.Configure(cfg.Debug, cfg.DebugFrames)
	debug.Log("🐛 Debug mode enabled\n")

	return &App{
		config: cfg,
		logger: log.Component("edgeview"),
	}, nil
}

// Init creates all components.
// Call this after New() and before Run().
func (a *App) Init() error {
	if a.config.Headless {
		a.device = texture.NewRegistry()
	} else {
		a.renderer = display.NewRenderer()
		a.device = a.renderer
	}
	a.tex = a.device.GenTexture()

	proc, err := processor.New(processor.Config{Device: a.device})
	if err != nil {
		return fmt.Errorf("processor: %w", err)
	}
	a.proc = proc

	a.mailbox = pipeline.NewMailbox()
	a.worker, err = pipeline.NewWorker(pipeline.WorkerConfig{
		Processor: a.proc,
		Mailbox:   a.mailbox,
		Texture:   a.tex,
	})
	if err != nil {
		return fmt.Errorf("worker: %w", err)
	}
	a.worker.OnResult(a.onResult)

	src, err := source.Open(a.config.Source)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	a.src = src

	a.sources = source.NewManager(a.config.Source)
	a.sources.OnConfigChange = a.applySource

	if a.config.WebPort != "" {
		a.webServer = web.NewServer(web.Config{
			Port:           a.config.WebPort,
			WorkerStats:    a.worker.Stats,
			ProcessorStats: a.proc.Stats,
			Snapshot:       a.proc.EncodeJPEG,
			Sources:        a.sources,
			Quality:        a.config.Quality,
		})
	}

	a.logger.Info("initialized",
		"source", a.config.Source.Kind,
		"device", a.config.Source.Device,
		"width", a.config.Source.Width,
		"height", a.config.Source.Height,
		"fps", a.config.Source.Framerate,
		"headless", a.config.Headless,
		"web_port", a.config.WebPort,
	)
	return nil
}

// Run starts the pipeline and blocks until ctx is cancelled or the window
// is closed. With a window it must be called from the main goroutine.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workerDone := make(chan error, 1)
	go func() { workerDone <- a.worker.Run(ctx) }()

	a.feedMu.Lock()
	a.runCtx = ctx
	a.startFeedLocked()
	a.feedMu.Unlock()

	if a.webServer != nil {
		a.webServer.StartAsync()
	}

	if a.renderer != nil {
		context.AfterFunc(ctx, a.renderer.Stop)
		if err := a.renderer.Run(a.config.Title); err != nil {
			return fmt.Errorf("display: %w", err)
		}
		cancel()
	} else {
		<-ctx.Done()
	}

	if err := <-workerDone; err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// Shutdown stops all components.
func (a *App) Shutdown() {
	a.feedMu.Lock()
	a.stopFeedLocked()
	if a.src != nil {
		a.src.Close()
	}
	a.feedMu.Unlock()

	if a.webServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := a.webServer.Shutdown(ctx); err != nil {
			a.logger.Warn("web shutdown", "error", err)
		}
		cancel()
	}
	if a.proc != nil {
		a.device.DeleteTexture(a.tex)
		a.proc.Forget(a.tex)
		a.proc.Close()
	}
	a.logger.Info("shut down")
}

// Stats returns the worker counters.
func (a *App) Stats() pipeline.WorkerStats {
	return a.worker.Stats()
}

func (a *App) onResult(ev pipeline.Event) {
	if ev.Err != nil {
		return
	}
	debug.FrameLog("🎞️  frame %d: %dms, latency %s\n", ev.Seq, ev.Result.ElapsedMillis(), ev.Latency)
}

// applySource reopens the source after a config change. The old source
// keeps running if the new one fails to open.
func (a *App) applySource(cfg source.Config) error {
	src, err := source.Open(cfg)
	if err != nil {
		return err
	}

	a.feedMu.Lock()
	defer a.feedMu.Unlock()

	a.stopFeedLocked()
	if a.src != nil {
		a.src.Close()
	}
	a.src = src
	a.config.Source = cfg
	if a.runCtx != nil && a.runCtx.Err() == nil {
		a.startFeedLocked()
	}

	a.logger.Info("source changed", "kind", cfg.Kind, "width", cfg.Width, "height", cfg.Height, "fps", cfg.Framerate)
	return nil
}

func (a *App) startFeedLocked() {
	ctx, cancel := context.WithCancel(a.runCtx)
	done := make(chan struct{})
	a.feedCancel, a.feedDone = cancel, done

	src := a.src
	go func() {
		defer close(done)
		err := pipeline.Feed(ctx, src, a.mailbox)
		switch {
		case err == nil, errors.Is(err, context.Canceled):
		case errors.Is(err, source.ErrExhausted):
			a.logger.Info("source exhausted")
		default:
			a.logger.Error("feed stopped", "error", err)
		}
	}()
}

func (a *App) stopFeedLocked() {
	if a.feedCancel == nil {
		return
	}
	a.feedCancel()
	<-a.feedDone
	a.feedCancel, a.feedDone = nil, nil
}
