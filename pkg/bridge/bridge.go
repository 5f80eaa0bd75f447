// Package bridge keeps the original managed-side entry point:
//
//	processFrame(frameBuffer, width, height, textureHandle) -> elapsed ms
//
// Callers on the other side of a foreign-function boundary only see an
// int64, so failures come back as negative codes. Go callers should use
// processor.Processor directly and get typed errors instead.
package bridge

import (
	"sync"

	"github.com/teslashibe/go-edgeview/internal/log"
	"github.com/teslashibe/go-edgeview/pkg/frame"
	"github.com/teslashibe/go-edgeview/pkg/processor"
	"github.com/teslashibe/go-edgeview/pkg/texture"
)

// Negative return codes.
const (
	CodeAcquireFailed int64 = -1
	CodeInvalidInput  int64 = -2
	CodeStageFailed   int64 = -3
	CodeNotInstalled  int64 = -4
)

var (
	mu      sync.RWMutex
	current *processor.Processor
)

// Install sets the processor ProcessFrame routes to and returns the
// previous one, which the caller may close.
func Install(p *processor.Processor) *processor.Processor {
	mu.Lock()
	defer mu.Unlock()
	prev := current
	current = p
	return prev
}

// ProcessFrame runs one NV21 frame into the texture and returns the
// elapsed milliseconds, or a negative code.
func ProcessFrame(frameBuffer []byte, width, height, textureHandle int32) int64 {
	mu.RLock()
	p := current
	mu.RUnlock()
	if p == nil {
		log.Error("processFrame called before a processor was installed")
		return CodeNotInstalled
	}
	if textureHandle <= 0 {
		log.Warn("processFrame called with invalid texture handle", "texture", textureHandle)
		return CodeInvalidInput
	}

	res, err := p.Process(frame.Bytes(frameBuffer), int(width), int(height), texture.Handle(textureHandle))
	return Code(res, err)
}

// Code maps a Process outcome onto the entry point's int64 contract.
func Code(res processor.Result, err error) int64 {
	switch processor.KindOf(err) {
	case processor.KindNone:
		return res.ElapsedMillis()
	case processor.KindAcquire:
		return CodeAcquireFailed
	case processor.KindInput:
		return CodeInvalidInput
	default:
		return CodeStageFailed
	}
}
