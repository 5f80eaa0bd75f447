// edgewatch connects to a running edgeview web preview and saves the
// streamed edge frames as numbered JPEG files.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/teslashibe/go-edgeview/internal/config"
	"github.com/teslashibe/go-edgeview/internal/httpc"
	"github.com/teslashibe/go-edgeview/internal/log"
	"github.com/teslashibe/go-edgeview/pkg/source"
	"github.com/teslashibe/go-edgeview/pkg/web"
)

var errEnough = errors.New("frame limit reached")

func main() {
	env := config.Load()

	addr := flag.String("addr", "localhost:"+env.WebPort, "edgeview web preview address")
	dir := flag.String("dir", ".", "Directory for saved frames")
	count := flag.Int("count", 0, "Stop after this many frames (0 = until Ctrl+C)")
	every := flag.Int("every", 1, "Save every Nth frame")
	preset := flag.String("preset", "", "Switch the source to this resolution preset first")
	flag.Parse()

	log.Init(env.LogLevel)

	if *every < 1 {
		*every = 1
	}
	if err := os.MkdirAll(*dir, 0755); err != nil {
		stdlog.Fatalf("❌ %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	api := fmt.Sprintf("http://%s/api", *addr)
	if *preset != "" {
		var cfg source.Config
		if err := httpc.PostJSON(ctx, api+"/config", map[string]string{"preset": *preset}, &cfg); err != nil {
			stdlog.Fatalf("❌ Preset: %v", err)
		}
		fmt.Printf("🔧 Source now %s %dx%d @ %d fps\n", cfg.Kind, cfg.Width, cfg.Height, cfg.Framerate)
	}
	var status web.Status
	if err := httpc.GetJSON(ctx, api+"/status", &status); err != nil {
		stdlog.Fatalf("❌ Status: %v", err)
	}
	fmt.Printf("🔗 Session %s, up %s\n", status.Session, status.Uptime)

	url := fmt.Sprintf("ws://%s/ws/frames", *addr)
	fmt.Printf("👀 Watching %s\n", url)

	var received, saved int
	start := time.Now()
	err := web.Watch(ctx, url, func(jpeg []byte) error {
		received++
		if (received-1)%*every != 0 {
			return nil
		}
		name := filepath.Join(*dir, fmt.Sprintf("edge_%05d.jpg", received))
		if err := os.WriteFile(name, jpeg, 0644); err != nil {
			return err
		}
		saved++
		fps := float64(received) / time.Since(start).Seconds()
		fmt.Printf("\r📷 Frame %d | %.1f fps | %d bytes     ", received, fps, len(jpeg))
		if *count > 0 && saved >= *count {
			return errEnough
		}
		return nil
	})
	fmt.Println()

	switch {
	case err == nil, errors.Is(err, errEnough), errors.Is(err, context.Canceled):
		fmt.Printf("✅ Saved %d of %d frames to %s\n", saved, received, *dir)
	default:
		stdlog.Fatalf("❌ %v", err)
	}
}
