package bridge

import (
	"testing"

	"github.com/teslashibe/go-edgeview/internal/log"
	"github.com/teslashibe/go-edgeview/pkg/frame"
	"github.com/teslashibe/go-edgeview/pkg/processor"
	"github.com/teslashibe/go-edgeview/pkg/texture"
)

func TestProcessFrame_NotInstalled(t *testing.T) {
	prev := Install(nil)
	defer Install(prev)

	if got := ProcessFrame(make([]byte, 12), 4, 2, 1); got != CodeNotInstalled {
		t.Errorf("got %d, want %d", got, CodeNotInstalled)
	}
}

func TestProcessFrame_Codes(t *testing.T) {
	reg := texture.NewRegistry()
	tex := reg.GenTexture()
	p, err := processor.New(processor.Config{Device: reg, Logger: log.Discard()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer p.Close()

	prev := Install(p)
	defer Install(prev)

	f := frame.Solid(32, 16, 100, frame.NeutralChroma, frame.NeutralChroma)

	tests := []struct {
		name   string
		buf    []byte
		w, h   int32
		tex    int32
		expect func(int64) bool
	}{
		{"success", f.Data, 32, 16, int32(tex), func(v int64) bool { return v >= 0 }},
		{"nil buffer", nil, 32, 16, int32(tex), func(v int64) bool { return v == CodeAcquireFailed }},
		{"bad size", f.Data, 0, 16, int32(tex), func(v int64) bool { return v == CodeInvalidInput }},
		{"short buffer", f.Data[:10], 32, 16, int32(tex), func(v int64) bool { return v == CodeInvalidInput }},
		{"unknown texture", f.Data, 32, 16, 999, func(v int64) bool { return v == CodeStageFailed }},
		{"zero texture", f.Data, 32, 16, 0, func(v int64) bool { return v == CodeInvalidInput }},
		{"negative texture", f.Data, 32, 16, -1, func(v int64) bool { return v == CodeInvalidInput }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ProcessFrame(tc.buf, tc.w, tc.h, tc.tex)
			if !tc.expect(got) {
				t.Errorf("ProcessFrame returned %d", got)
			}
		})
	}
}

func TestProcessFrame_InvalidTextureSkipsProcessor(t *testing.T) {
	reg := texture.NewRegistry()
	p, err := processor.New(processor.Config{Device: reg, Logger: log.Discard()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer p.Close()

	prev := Install(p)
	defer Install(prev)

	f := frame.Solid(32, 16, 100, frame.NeutralChroma, frame.NeutralChroma)
	if got := ProcessFrame(f.Data, 32, 16, 0); got != CodeInvalidInput {
		t.Errorf("got %d, want %d", got, CodeInvalidInput)
	}
	if st := p.Stats(); st.Frames != 0 || st.StageErrors != 0 || st.InputErrors != 0 {
		t.Errorf("processor ran for texture 0: %+v", st)
	}
}
