package processor

import (
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-edgeview/pkg/frame"
)

// wrapNV21 views NV21 bytes as a (h + h/2) x w single-channel Mat. The Mat
// shares data's memory.
func wrapNV21(data []byte, width, height int) (gocv.Mat, error) {
	return gocv.NewMatFromBytes(height+height/2, width, gocv.MatTypeCV8UC1, data[:frame.NV21Size(width, height)])
}

func nv21ToRGBA(nv21 gocv.Mat, dst *gocv.Mat) error {
	return stageErr(StageToRGBA, gocv.CvtColor(nv21, dst, gocv.ColorYUVToRGBANV21))
}

// ToRGBA converts a frame to a new RGBA Mat without running the edge
// filter. On success the caller closes the result; on error there is
// nothing to close.
func ToRGBA(f frame.Frame) (gocv.Mat, error) {
	if err := f.Validate(); err != nil {
		return gocv.Mat{}, err
	}
	nv21, err := wrapNV21(f.Data, f.Width, f.Height)
	if err != nil {
		return gocv.Mat{}, stageErr(StageWrap, err)
	}
	defer nv21.Close()

	rgba := gocv.NewMat()
	if err := nv21ToRGBA(nv21, &rgba); err != nil {
		rgba.Close()
		return gocv.Mat{}, err
	}
	return rgba, nil
}
