// edgeview shows a live Canny edge view of a camera, video file or
// synthetic pattern, with an optional web preview.
package main

import (
	"context"
	"flag"
	stdlog "log"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-edgeview/internal/config"
	"github.com/teslashibe/go-edgeview/internal/log"
	"github.com/teslashibe/go-edgeview/pkg/edgeview"
	"github.com/teslashibe/go-edgeview/pkg/source"
)

func main() {
	cfg := parseFlags()

	app, err := edgeview.New(cfg)
	if err != nil {
		stdlog.Fatalf("❌ Configuration error: %v", err)
	}

	if err := app.Init(); err != nil {
		stdlog.Fatalf("❌ Initialization failed: %v", err)
	}
	defer app.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx); err != nil {
		stdlog.Fatalf("❌ Runtime error: %v", err)
	}
}

// parseFlags parses command line flags over the environment defaults.
func parseFlags() edgeview.Config {
	cfg := edgeview.DefaultConfig()
	env := config.Load()

	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	debugFrames := flag.Bool("debug-frames", false, "Print a line per processed frame")
	src := flag.String("source", env.Source, "Frame source: synthetic, a camera index, a file path or a URL")
	preset := flag.String("preset", "", "Resolution preset: default, qvga, vga, 720p, 1080p")
	width := flag.Int("width", cfg.Source.Width, "Frame width (even)")
	height := flag.Int("height", cfg.Source.Height, "Frame height (even)")
	fps := flag.Int("fps", cfg.Source.Framerate, "Source framerate")
	loop := flag.Bool("loop", false, "Rewind video files at the end")
	headless := flag.Bool("headless", false, "Process without opening a window")
	port := flag.String("port", cfg.WebPort, "Web preview port (empty disables)")
	quality := flag.Int("quality", 0, "JPEG quality for the web preview")
	flag.Parse()

	level := env.LogLevel
	if *debug {
		level = "debug"
	}
	log.Init(level)

	cfg.Debug, cfg.DebugFrames = *debug, *debugFrames
	cfg.Source.Kind, cfg.Source.Device = source.ParseSource(*src)
	cfg.Source.Width, cfg.Source.Height, cfg.Source.Framerate = *width, *height, *fps
	cfg.Source.Loop = *loop
	if *preset != "" {
		if p, ok := source.GetPreset(*preset, cfg.Source); ok {
			cfg.Source = p
		} else {
			stdlog.Fatalf("❌ Unknown preset %q", *preset)
		}
	}
	cfg.Headless = *headless
	cfg.WebPort = *port
	cfg.Quality = *quality
	return cfg
}
