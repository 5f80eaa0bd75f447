// edgebench runs the edge processor headless against a source and prints
// a timing summary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/teslashibe/go-edgeview/internal/config"
	"github.com/teslashibe/go-edgeview/internal/log"
	"github.com/teslashibe/go-edgeview/pkg/bridge"
	"github.com/teslashibe/go-edgeview/pkg/debug"
	"github.com/teslashibe/go-edgeview/pkg/frame"
	"github.com/teslashibe/go-edgeview/pkg/processor"
	"github.com/teslashibe/go-edgeview/pkg/source"
	"github.com/teslashibe/go-edgeview/pkg/texture"
)

func main() {
	env := config.Load()

	src := flag.String("source", env.Source, "Frame source: synthetic, a camera index, a file path or a URL")
	width := flag.Int("width", env.Width, "Frame width (even)")
	height := flag.Int("height", env.Height, "Frame height (even)")
	fps := flag.Int("fps", source.MaxFramerate, "Source framerate (synthetic pacing)")
	frames := flag.Int("frames", 300, "Number of frames to process")
	viaBridge := flag.Bool("bridge", false, "Call through the int64 processFrame entry point")
	out := flag.String("out", "", "Write the last edge frame to this JPEG file")
	trace := flag.Bool("trace", false, "Print a line per processed frame")
	flag.Parse()

	log.Init(env.LogLevel)
	debug.Configure(false, *trace)
	debug.SetOutput(os.Stdout)

	cfg := source.DefaultConfig()
	cfg.Kind, cfg.Device = source.ParseSource(*src)
	cfg.Width, cfg.Height, cfg.Framerate = *width, *height, *fps

	s, err := source.Open(cfg)
	if err != nil {
		stdlog.Fatalf("❌ Source: %v", err)
	}
	defer s.Close()

	reg := texture.NewRegistry()
	tex := reg.GenTexture()
	proc, err := processor.New(processor.Config{Device: reg})
	if err != nil {
		stdlog.Fatalf("❌ Processor: %v", err)
	}
	defer proc.Close()
	if *viaBridge {
		bridge.Install(proc)
		defer bridge.Install(nil)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Printf("⏱️  edgebench: %s %dx%d, %d frames\n", cfg.Kind, cfg.Width, cfg.Height, *frames)

	var (
		times  []time.Duration
		failed int
	)
	for i := 0; i < *frames; i++ {
		f, err := s.Next(ctx)
		if err != nil {
			if !errors.Is(err, source.ErrExhausted) && ctx.Err() == nil {
				log.Error("read frame", "error", err)
			}
			break
		}

		elapsed, err := run(proc, f, tex, *viaBridge)
		f.Recycle()
		if err != nil {
			failed++
			continue
		}
		times = append(times, elapsed)
	}

	printSummary(times, failed, proc.Stats(), reg, tex)

	if *out != "" {
		data, err := proc.EncodeJPEG(processor.DefaultQuality)
		if err != nil {
			stdlog.Fatalf("❌ Encode: %v", err)
		}
		if err := os.WriteFile(*out, data, 0644); err != nil {
			stdlog.Fatalf("❌ Write: %v", err)
		}
		fmt.Printf("✅ Saved to: %s\n", *out)
	}
}

func run(proc *processor.Processor, f frame.Frame, tex texture.Handle, viaBridge bool) (time.Duration, error) {
	if !viaBridge {
		res, err := proc.Process(f.Buffer(), f.Width, f.Height, tex)
		return res.Elapsed, err
	}
	code := bridge.ProcessFrame(f.Data, int32(f.Width), int32(f.Height), int32(tex))
	if code < 0 {
		return 0, fmt.Errorf("processFrame returned %d", code)
	}
	return time.Duration(code) * time.Millisecond, nil
}

func printSummary(times []time.Duration, failed int, st processor.Stats, reg *texture.Registry, tex texture.Handle) {
	fmt.Println("==================================")
	fmt.Printf("Processed: %d  Failed: %d\n", len(times), failed)
	if len(times) == 0 {
		return
	}

	sorted := append([]time.Duration(nil), times...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	var total time.Duration
	for _, t := range sorted {
		total += t
	}
	pct := func(p float64) time.Duration {
		return sorted[int(p*float64(len(sorted)-1))]
	}

	fmt.Printf("Min: %v  Avg: %v  P50: %v  P95: %v  Max: %v\n",
		sorted[0], total/time.Duration(len(sorted)), pct(0.50), pct(0.95), sorted[len(sorted)-1])
	if total > 0 {
		fmt.Printf("Throughput: %.1f fps\n", float64(len(sorted))/total.Seconds())
	}
	fmt.Printf("Buffers reallocated: %d  Full uploads: %d  Sub uploads: %d\n",
		st.Reallocations, st.FullUploads, st.SubUploads)
	if info, ok := reg.Info(tex); ok {
		fmt.Printf("Texture %d: %dx%d, %d allocations\n", tex, info.Width, info.Height, info.Allocs)
	}
}
