package debug

import (
	"bytes"
	"testing"
)

func TestSwitches(t *testing.T) {
	var buf bytes.Buffer
	prev := SetOutput(&buf)
	defer SetOutput(prev)
	defer Configure(false, false)

	Configure(false, false)
	Log("a")
	FrameLog("b")
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}

	Configure(true, false)
	Log("a%d", 1)
	FrameLog("b")
	if got := buf.String(); got != "a1" {
		t.Errorf("debug only: got %q", got)
	}

	buf.Reset()
	Configure(false, true)
	if !Enabled() {
		t.Error("frame tracing should enable debug output")
	}
	Log("a")
	FrameLog("b")
	if got := buf.String(); got != "ab" {
		t.Errorf("frame tracing: got %q", got)
	}
}
