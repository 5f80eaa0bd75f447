package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-edgeview/internal/log"
	"github.com/teslashibe/go-edgeview/pkg/frame"
	"github.com/teslashibe/go-edgeview/pkg/processor"
	"github.com/teslashibe/go-edgeview/pkg/texture"
)

// FrameProcessor is the part of processor.Processor the worker needs.
type FrameProcessor interface {
	Process(buf frame.Buffer, width, height int, tex texture.Handle) (processor.Result, error)
}

// Event is published after every frame the worker handles.
type Event struct {
	Seq     uint64
	Result  processor.Result
	Err     error
	Latency time.Duration // frame timestamp to end of processing, 0 if unstamped
}

// WorkerConfig configures a Worker.
type WorkerConfig struct {
	Processor FrameProcessor
	Mailbox   *Mailbox
	Texture   texture.Handle
	Logger    *slog.Logger
}

// WorkerStats are the worker counters plus its mailbox's.
type WorkerStats struct {
	ID          string        `json:"id"`
	Processed   uint64        `json:"processed"`
	Failed      uint64        `json:"failed"`
	LastSeq     uint64        `json:"last_seq"`
	LastElapsed time.Duration `json:"last_elapsed_ns"`
	AvgElapsed  time.Duration `json:"avg_elapsed_ns"`
	LastError   string        `json:"last_error,omitempty"`
	Mailbox     MailboxStats  `json:"mailbox"`
}

// Worker is the single consumer of a Mailbox.
type Worker struct {
	id      string
	proc    FrameProcessor
	mailbox *Mailbox
	tex     atomic.Uint32
	logger  *slog.Logger
	running atomic.Bool

	mu          sync.Mutex
	subscribers []func(Event)
	stats       WorkerStats
	totalTime   time.Duration
}

// ErrAlreadyRunning is returned when Run is called twice.
var ErrAlreadyRunning = errors.New("pipeline: worker already running")

// NewWorker creates a worker. Processor and Mailbox are required.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Processor == nil || cfg.Mailbox == nil {
		return nil, fmt.Errorf("pipeline: processor and mailbox are required")
	}
	id := uuid.NewString()
	logger := cfg.Logger
	if logger == nil {
		logger = log.Component("worker")
	}
	w := &Worker{
		id:      id,
		proc:    cfg.Processor,
		mailbox: cfg.Mailbox,
		logger:  logger.With("worker", id[:8]),
	}
	w.tex.Store(uint32(cfg.Texture))
	w.stats.ID = id
	return w, nil
}

// ID is the worker's unique id.
func (w *Worker) ID() string { return w.id }

// SetTexture changes the target texture for subsequent frames.
func (w *Worker) SetTexture(h texture.Handle) {
	w.tex.Store(uint32(h))
}

// OnResult registers a callback run on the worker goroutine after each
// frame. Callbacks must not block.
func (w *Worker) OnResult(fn func(Event)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.subscribers = append(w.subscribers, fn)
}

// Run consumes frames until ctx is done, then closes the mailbox.
func (w *Worker) Run(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer w.running.Store(false)

	stop := context.AfterFunc(ctx, w.mailbox.Close)
	defer stop()

	w.logger.Info("worker started")
	for {
		f, ok := w.mailbox.Next()
		if !ok {
			w.logger.Info("worker stopped", "processed", w.Stats().Processed)
			return ctx.Err()
		}
		w.handle(f)
	}
}

func (w *Worker) handle(f frame.Frame) {
	tex := texture.Handle(w.tex.Load())
	res, err := w.proc.Process(f.Buffer(), f.Width, f.Height, tex)
	// Process releases what it acquired; this covers early rejections.
	f.Recycle()

	ev := Event{Seq: f.Seq, Result: res, Err: err}
	if !f.Timestamp.IsZero() {
		ev.Latency = time.Since(f.Timestamp)
	}

	w.mu.Lock()
	w.stats.LastSeq = f.Seq
	if err != nil {
		w.stats.Failed++
		w.stats.LastError = err.Error()
	} else {
		w.stats.Processed++
		w.stats.LastElapsed = res.Elapsed
		w.totalTime += res.Elapsed
		w.stats.AvgElapsed = w.totalTime / time.Duration(w.stats.Processed)
	}
	subs := append([]func(Event){}, w.subscribers...)
	w.mu.Unlock()

	if err != nil {
		w.logger.Warn("frame failed", "seq", f.Seq, "error", err)
	}
	for _, fn := range subs {
		fn(ev)
	}
}

// Stats returns a snapshot of the counters.
func (w *Worker) Stats() WorkerStats {
	w.mu.Lock()
	st := w.stats
	w.mu.Unlock()
	st.Mailbox = w.mailbox.Stats()
	return st
}
