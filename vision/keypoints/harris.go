package keypoints

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/oxislam/oxislam-go/logging"
	"github.com/oxislam/oxislam-go/rimage"
	"github.com/oxislam/oxislam-go/utils"
)

const (
	// images smaller than this along either axis have no room for a response after the Sobel
	// and Gaussian stages and yield no corners.
	minHarrisImageSize = 5
	// Sobel and Gaussian each trim one pixel from every border.
	harrisCoordOffset = 2.0
)

// HarrisConfig holds the parameters of the Harris corner detector.
type HarrisConfig struct {
	// K weights the trace term of the response det(M) - K*trace(M)^2.
	K float64 `json:"k"`
	// Alpha is the fraction of the strongest response a corner must exceed.
	Alpha float64 `json:"alpha"`
	// MinThreshold is the absolute floor of the response threshold.
	MinThreshold float64 `json:"min_threshold"`
}

// DefaultHarrisConfig returns the usual parameters: k = 0.04, alpha = 0.01 and a 1e-6 floor.
func DefaultHarrisConfig() *HarrisConfig {
	return &HarrisConfig{K: 0.04, Alpha: 0.01, MinThreshold: 1e-6}
}

// HarrisDetector finds corners as strict local maxima of the Harris response.
type HarrisDetector struct {
	k, alpha, minThreshold float32
	ev                     utils.Evaluator
	logger                 logging.Logger
}

// NewHarrisDetector validates cfg and returns a detector. A nil ev evaluates sequentially and a
// nil logger discards everything.
func NewHarrisDetector(cfg *HarrisConfig, ev utils.Evaluator, logger logging.Logger) (*HarrisDetector, error) {
	if cfg == nil {
		cfg = DefaultHarrisConfig()
	}
	if err := cfg.Validate("harris"); err != nil {
		return nil, err
	}
	if ev == nil {
		ev = utils.Sequential{}
	}
	if logger == nil {
		logger = logging.NewBlankLogger("harris")
	}
	return &HarrisDetector{
		k:            float32(cfg.K),
		alpha:        float32(cfg.Alpha),
		minThreshold: float32(cfg.MinThreshold),
		ev:           ev,
		logger:       logger,
	}, nil
}

// ResponseMap computes det(M) - k*trace(M)^2 of the Gaussian-smoothed structure tensor. The map
// is 4 pixels smaller than img along both axes; response (x, y) belongs to image pixel
// (x+2, y+2).
func (hd *HarrisDetector) ResponseMap(img rimage.View[rimage.Gray[float32]]) (*rimage.Image[rimage.Gray[float32]], error) {
	if img.Width() < minHarrisImageSize || img.Height() < minHarrisImageSize {
		return nil, errors.Errorf("image must be at least %dx%d, got %dx%d",
			minHarrisImageSize, minHarrisImageSize, img.Width(), img.Height())
	}
	ix, iy, err := rimage.Sobel(hd.ev, img)
	if err != nil {
		return nil, err
	}
	ix2, err := rimage.Mul(hd.ev, ix.View(), ix.View())
	if err != nil {
		return nil, err
	}
	iy2, err := rimage.Mul(hd.ev, iy.View(), iy.View())
	if err != nil {
		return nil, err
	}
	ixiy, err := rimage.Mul(hd.ev, ix.View(), iy.View())
	if err != nil {
		return nil, err
	}
	sxx, err := rimage.Gaussian3x3(hd.ev, ix2.View())
	if err != nil {
		return nil, err
	}
	syy, err := rimage.Gaussian3x3(hd.ev, iy2.View())
	if err != nil {
		return nil, err
	}
	sxy, err := rimage.Gaussian3x3(hd.ev, ixiy.View())
	if err != nil {
		return nil, err
	}

	w, h := sxx.Width(), sxx.Height()
	xx, yy, xy := sxx.Data(), syy.Data(), sxy.Data()
	k := hd.k
	data := utils.CollectRows(hd.ev, w, h, func(x, y int) rimage.Gray[float32] {
		i := y*w + x
		det := xx[i].Value*yy[i].Value - utils.Square(xy[i].Value)
		trace := xx[i].Value + yy[i].Value
		return rimage.Gray[float32]{Value: det - k*trace*trace}
	})
	return rimage.NewImage(w, h, w, data)
}

// Detect returns the Harris corners of img. Images smaller than 5×5 have no corners.
func (hd *HarrisDetector) Detect(img rimage.View[rimage.Gray[float32]]) ([]Keypoint, error) {
	if img.Width() < minHarrisImageSize || img.Height() < minHarrisImageSize {
		hd.logger.Debugw("image too small for harris corners", "width", img.Width(), "height", img.Height())
		return []Keypoint{}, nil
	}
	response, err := hd.ResponseMap(img)
	if err != nil {
		return nil, errors.Wrap(err, "harris response")
	}

	w, h := response.Width(), response.Height()
	data := response.Data()
	maxResponse := utils.MaxFloat32(hd.ev, h, func(y int) float32 {
		m := float32(math.Inf(-1))
		for _, p := range data[y*w : (y+1)*w] {
			if p.Value > m {
				m = p.Value
			}
		}
		return m
	})
	threshold := max(hd.minThreshold, hd.alpha*maxResponse)

	kps := utils.FlatMap(hd.ev, h, func(y int) []Keypoint {
		var row []Keypoint
		for x := 0; x < w; x++ {
			r := data[y*w+x].Value
			if !(r > threshold) || !isLocalMax(data, w, h, x, y, r) {
				continue
			}
			row = append(row, Keypoint{
				Position: r2.Vec{X: float64(x) + harrisCoordOffset, Y: float64(y) + harrisCoordOffset},
				Scale:    1,
				Response: float64(r),
			})
		}
		return row
	})
	hd.logger.Debugw("harris corners", "keypoints", len(kps), "threshold", threshold, "max_response", maxResponse)
	return kps, nil
}

// isLocalMax reports whether r is strictly greater than each of its existing 8 neighbours.
// Neighbours past the border don't exist and are not compared.
func isLocalMax(data []rimage.Gray[float32], w, h, x, y int, r float32) bool {
	for dy := -1; dy <= 1; dy++ {
		ny := y + dy
		if ny < 0 || ny >= h {
			continue
		}
		for dx := -1; dx <= 1; dx++ {
			nx := x + dx
			if (dx == 0 && dy == 0) || nx < 0 || nx >= w {
				continue
			}
			if !(r > data[ny*w+nx].Value) {
				return false
			}
		}
	}
	return true
}
