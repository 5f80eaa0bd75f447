package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-edgeview/internal/log"
	"github.com/teslashibe/go-edgeview/pkg/frame"
	"github.com/teslashibe/go-edgeview/pkg/processor"
	"github.com/teslashibe/go-edgeview/pkg/source"
	"github.com/teslashibe/go-edgeview/pkg/texture"
)

// fakeProcessor records calls and flags any overlap between them.
type fakeProcessor struct {
	mu       sync.Mutex
	inFlight int
	overlap  bool
	seen     []int
	textures []texture.Handle
	delay    time.Duration
	err      error
}

func (p *fakeProcessor) Process(buf frame.Buffer, w, h int, tex texture.Handle) (processor.Result, error) {
	p.mu.Lock()
	p.inFlight++
	if p.inFlight > 1 {
		p.overlap = true
	}
	p.mu.Unlock()

	data, err := buf.Acquire()
	if err == nil {
		buf.Release(frame.ReleaseAbort)
	}
	time.Sleep(p.delay)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.inFlight--
	p.seen = append(p.seen, int(data[0]))
	p.textures = append(p.textures, tex)
	if p.err != nil {
		return processor.Result{}, p.err
	}
	return processor.Result{Elapsed: time.Millisecond, Width: w, Height: h, Texture: tex}, nil
}

func frameWithMarker(b byte) frame.Frame {
	f := frame.Solid(4, 2, b, frame.NeutralChroma, frame.NeutralChroma)
	f.Seq = uint64(b)
	return f
}

func TestMailbox_KeepsLatest(t *testing.T) {
	mb := NewMailbox()

	require.True(t, mb.Publish(frameWithMarker(1)))
	require.True(t, mb.Publish(frameWithMarker(2)))
	require.True(t, mb.Publish(frameWithMarker(3)))

	f, ok := mb.Next()
	require.True(t, ok)
	assert.Equal(t, uint64(3), f.Seq)

	st := mb.Stats()
	assert.Equal(t, uint64(3), st.Published)
	assert.Equal(t, uint64(1), st.Consumed)
	assert.Equal(t, uint64(2), st.Dropped)
	assert.Zero(t, st.ConsecutiveDrops, "consume resets the streak")
}

func TestMailbox_CloseWakesConsumer(t *testing.T) {
	mb := NewMailbox()
	done := make(chan bool)

	go func() {
		_, ok := mb.Next()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	mb.Close()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("consumer not woken by Close")
	}
	assert.False(t, mb.Publish(frameWithMarker(1)), "publish after close is rejected")
	mb.Close()
}

func TestNewWorker_RequiresDeps(t *testing.T) {
	_, err := NewWorker(WorkerConfig{})
	assert.Error(t, err)
}

func TestWorker_SingleConsumer(t *testing.T) {
	proc := &fakeProcessor{delay: 2 * time.Millisecond}
	mb := NewMailbox()
	w, err := NewWorker(WorkerConfig{Processor: proc, Mailbox: mb, Texture: 5, Logger: log.Discard()})
	require.NoError(t, err)

	var events []Event
	var evMu sync.Mutex
	w.OnResult(func(ev Event) {
		evMu.Lock()
		events = append(events, ev)
		evMu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()

	for i := 1; i <= 50; i++ {
		mb.Publish(frameWithMarker(byte(i)))
		time.Sleep(200 * time.Microsecond)
	}
	// Let the last frame drain.
	require.Eventually(t, func() bool {
		st := w.Stats()
		return st.Mailbox.Consumed > 0 && st.LastSeq == 50
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	proc.mu.Lock()
	defer proc.mu.Unlock()
	assert.False(t, proc.overlap, "Process must never run concurrently")
	for _, tex := range proc.textures {
		assert.Equal(t, texture.Handle(5), tex)
	}

	st := w.Stats()
	assert.Equal(t, st.Mailbox.Consumed, st.Processed)
	assert.Equal(t, uint64(50), st.Mailbox.Published)
	assert.Equal(t, st.Mailbox.Published, st.Mailbox.Consumed+st.Mailbox.Dropped)
	assert.Equal(t, time.Millisecond, st.AvgElapsed)
	assert.NotEmpty(t, st.ID)

	evMu.Lock()
	assert.Len(t, events, int(st.Processed))
	evMu.Unlock()
}

func TestWorker_RecordsFailures(t *testing.T) {
	boom := errors.New("boom")
	proc := &fakeProcessor{err: boom}
	mb := NewMailbox()
	w, err := NewWorker(WorkerConfig{Processor: proc, Mailbox: mb, Texture: 1, Logger: log.Discard()})
	require.NoError(t, err)

	got := make(chan Event, 1)
	w.OnResult(func(ev Event) { got <- ev })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	f := frameWithMarker(7)
	f.Timestamp = time.Now()
	mb.Publish(f)

	select {
	case ev := <-got:
		assert.ErrorIs(t, ev.Err, boom)
		assert.Equal(t, uint64(7), ev.Seq)
		assert.Greater(t, ev.Latency, time.Duration(0))
	case <-time.After(time.Second):
		t.Fatal("no event")
	}

	st := w.Stats()
	assert.Equal(t, uint64(1), st.Failed)
	assert.Equal(t, "boom", st.LastError)
}

func TestWorker_SetTexture(t *testing.T) {
	proc := &fakeProcessor{}
	mb := NewMailbox()
	w, err := NewWorker(WorkerConfig{Processor: proc, Mailbox: mb, Texture: 1, Logger: log.Discard()})
	require.NoError(t, err)

	got := make(chan Event, 2)
	w.OnResult(func(ev Event) { got <- ev })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	mb.Publish(frameWithMarker(1))
	<-got
	w.SetTexture(9)
	mb.Publish(frameWithMarker(2))
	ev := <-got

	assert.Equal(t, texture.Handle(9), ev.Result.Texture)
}

func TestWorker_RunTwice(t *testing.T) {
	mb := NewMailbox()
	w, err := NewWorker(WorkerConfig{Processor: &fakeProcessor{}, Mailbox: mb, Logger: log.Discard()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)
	require.Eventually(t, func() bool { return w.running.Load() }, time.Second, time.Millisecond)

	assert.ErrorIs(t, w.Run(ctx), ErrAlreadyRunning)
	cancel()
}

// finiteSource yields n frames then ErrExhausted.
type finiteSource struct {
	n    int
	sent int
}

func (s *finiteSource) Next(ctx context.Context) (frame.Frame, error) {
	if s.sent >= s.n {
		return frame.Frame{}, source.ErrExhausted
	}
	s.sent++
	return frame.Solid(4, 2, byte(s.sent), frame.NeutralChroma, frame.NeutralChroma), nil
}

func (s *finiteSource) Close() error { return nil }

func TestFeed_NumbersFramesUntilExhausted(t *testing.T) {
	mb := NewMailbox()
	err := Feed(context.Background(), &finiteSource{n: 3}, mb)
	assert.ErrorIs(t, err, source.ErrExhausted)

	f, ok := mb.Next()
	require.True(t, ok)
	assert.Equal(t, uint64(3), f.Seq)
	assert.Equal(t, uint64(2), mb.Stats().Dropped)
}

func TestFeed_StopsWhenMailboxCloses(t *testing.T) {
	mb := NewMailbox()
	mb.Close()
	assert.NoError(t, Feed(context.Background(), &finiteSource{n: 3}, mb))
}

func TestMailbox_RecyclesPooledFrames(t *testing.T) {
	pool := frame.NewPool(4, 2)
	mb := NewMailbox()

	var bufs []*frame.Pooled
	for i := 0; i < 3; i++ {
		f := pool.NewFrame()
		bufs = append(bufs, f.Buffer().(*frame.Pooled))
		require.True(t, mb.Publish(f))
	}
	assert.True(t, bufs[0].Released(), "replaced frames go back to the pool")
	assert.True(t, bufs[1].Released())
	assert.False(t, bufs[2].Released(), "latest frame is still pending")

	mb.Close()
	assert.True(t, bufs[2].Released(), "close recycles the pending frame")

	late := pool.NewFrame()
	assert.False(t, mb.Publish(late))
	assert.True(t, late.Buffer().(*frame.Pooled).Released())
}

func TestWorker_ReleasesPooledFrames(t *testing.T) {
	pool := frame.NewPool(4, 2)
	mb := NewMailbox()

	// A failing processor that never acquires still must not leak storage.
	proc := &rejectingProcessor{}
	w, err := NewWorker(WorkerConfig{Processor: proc, Mailbox: mb, Texture: 1, Logger: log.Discard()})
	require.NoError(t, err)

	got := make(chan Event, 1)
	w.OnResult(func(ev Event) { got <- ev })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	f := pool.NewFrame()
	buf := f.Buffer().(*frame.Pooled)
	mb.Publish(f)

	select {
	case ev := <-got:
		assert.ErrorIs(t, ev.Err, processor.ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("no event")
	}
	assert.True(t, buf.Released())
}

// rejectingProcessor fails without touching the buffer, like a closed
// processor.
type rejectingProcessor struct{}

func (rejectingProcessor) Process(frame.Buffer, int, int, texture.Handle) (processor.Result, error) {
	return processor.Result{}, processor.ErrClosed
}
