package processor

import (
	"errors"
	"fmt"

	"github.com/teslashibe/go-edgeview/pkg/frame"
)

// Stage names one step of the pipeline, for error reporting.
type Stage string

const (
	StageAcquire   Stage = "acquire"
	StageValidate  Stage = "validate"
	StageWrap      Stage = "wrap"
	StageToRGBA    Stage = "nv21_to_rgba"
	StageToGray    Stage = "rgba_to_gray"
	StageBlur      Stage = "blur"
	StageCanny     Stage = "canny"
	StageToDisplay Stage = "edges_to_rgba"
	StageBind      Stage = "bind"
	StageUpload    Stage = "upload"
	StageFinish    Stage = "finish"
)

var (
	// ErrBufferAcquisition means the input bytes could not be borrowed.
	// Nothing was converted or uploaded.
	ErrBufferAcquisition = errors.New("processor: buffer acquisition failed")

	// ErrInvalidDimensions and ErrShortBuffer reject malformed input.
	ErrInvalidDimensions = frame.ErrInvalidDimensions
	ErrShortBuffer       = frame.ErrShortBuffer

	errNilBuffer = errors.New("buffer returned no data")

	// ErrNoOutput is returned by EncodeJPEG before the first frame.
	ErrNoOutput = errors.New("processor: no output yet")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("processor: closed")
)

// StageError wraps a failure from OpenCV or the texture device with the
// stage it happened in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("processor: %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(s Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: s, Err: err}
}

// Kind classifies an error from Process for counters and the bridge.
type Kind int

const (
	KindNone Kind = iota
	KindAcquire
	KindInput
	KindStage
)

// KindOf maps an error returned by Process to its Kind.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrBufferAcquisition):
		return KindAcquire
	case errors.Is(err, ErrInvalidDimensions), errors.Is(err, ErrShortBuffer):
		return KindInput
	default:
		return KindStage
	}
}
