package keypoints

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"testing"

	"go.viam.com/test"

	"github.com/oxislam/oxislam-go/logging"
	"github.com/oxislam/oxislam-go/rimage"
	"github.com/oxislam/oxislam-go/utils"
)

// createSquareImage returns a black w×h image with a white square covering the inclusive
// rectangle (x0, y0)-(x1, y1).
func createSquareImage(t *testing.T, w, h, x0, y0, x1, y1 int) *rimage.Image[rimage.Gray[float32]] {
	t.Helper()
	rectImage := image.NewGray(image.Rect(0, 0, w, h))
	whiteRect := image.Rect(x0, y0, x1+1, y1+1)
	draw.Draw(rectImage, rectImage.Bounds(), &image.Uniform{color.Gray{0}}, image.Point{0, 0}, draw.Src)
	draw.Draw(rectImage, whiteRect, &image.Uniform{color.Gray{255}}, image.Point{0, 0}, draw.Src)
	gray, err := rimage.NewGrayImageFromStd(rectImage)
	test.That(t, err, test.ShouldBeNil)
	return rimage.GrayToFloat(nil, gray.View())
}

func near(kp Keypoint, x, y float64) bool {
	return math.Abs(kp.Position.X-x) <= 1 && math.Abs(kp.Position.Y-y) <= 1
}

func TestHarrisSingleCorner(t *testing.T) {
	img := createSquareImage(t, 10, 10, 0, 0, 4, 4)
	detector, err := NewHarrisDetector(DefaultHarrisConfig(), utils.Sequential{}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	kps, err := detector.Detect(img.View())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, kps, test.ShouldHaveLength, 1)
	test.That(t, near(kps[0], 4, 4), test.ShouldBeTrue)
	test.That(t, kps[0].Scale, test.ShouldEqual, 1.0)
	test.That(t, kps[0].Oriented, test.ShouldBeFalse)
	test.That(t, kps[0].Response, test.ShouldBeGreaterThan, 0)
}

func TestHarrisFourCorners(t *testing.T) {
	img := createSquareImage(t, 30, 30, 10, 10, 19, 19)
	corners := [][2]float64{{10, 10}, {19, 10}, {10, 19}, {19, 19}}
	for name, ev := range map[string]utils.Evaluator{
		"sequential": utils.Sequential{},
		"parallel":   utils.NewParallel(),
		"nil":        nil,
	} {
		t.Run(name, func(t *testing.T) {
			detector, err := NewHarrisDetector(nil, ev, nil)
			test.That(t, err, test.ShouldBeNil)
			kps, err := detector.Detect(img.View())
			test.That(t, err, test.ShouldBeNil)
			test.That(t, kps, test.ShouldHaveLength, 4)
			// every corner is claimed by exactly one keypoint
			for _, c := range corners {
				hits := 0
				for _, kp := range kps {
					if near(kp, c[0], c[1]) {
						hits++
					}
				}
				test.That(t, hits, test.ShouldEqual, 1)
			}
		})
	}
}

func TestHarrisMinimumSize(t *testing.T) {
	detector, err := NewHarrisDetector(nil, nil, nil)
	test.That(t, err, test.ShouldBeNil)
	for _, dims := range [][2]int{{1, 1}, {4, 4}, {4, 30}, {30, 4}} {
		img, err := rimage.NewFilledImage(dims[0], dims[1], rimage.NewGray[float32](1))
		test.That(t, err, test.ShouldBeNil)
		kps, err := detector.Detect(img.View())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, kps, test.ShouldBeEmpty)

		_, err = detector.ResponseMap(img.View())
		test.That(t, err, test.ShouldNotBeNil)
	}

	// 5x5 is just big enough for a single response
	img := createSquareImage(t, 5, 5, 0, 0, 2, 2)
	response, err := detector.ResponseMap(img.View())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, response.Width(), test.ShouldEqual, 1)
	test.That(t, response.Height(), test.ShouldEqual, 1)
}

func TestHarrisFlatImage(t *testing.T) {
	img, err := rimage.NewFilledImage(12, 9, rimage.NewGray[float32](0.3))
	test.That(t, err, test.ShouldBeNil)
	logger, logs := logging.NewObservedTestLogger(t)
	detector, err := NewHarrisDetector(nil, nil, logger)
	test.That(t, err, test.ShouldBeNil)

	response, err := detector.ResponseMap(img.View())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, response.Width(), test.ShouldEqual, 8)
	test.That(t, response.Height(), test.ShouldEqual, 5)

	kps, err := detector.Detect(img.View())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, kps, test.ShouldBeEmpty)
	test.That(t, logs.FilterMessage("harris corners").Len(), test.ShouldEqual, 1)
}

func TestIsLocalMax(t *testing.T) {
	// 3x3 response map
	grid := func(vals ...float32) []rimage.Gray[float32] {
		out := make([]rimage.Gray[float32], len(vals))
		for i, v := range vals {
			out[i] = rimage.NewGray(v)
		}
		return out
	}
	data := grid(
		5, 1, 1,
		1, 4, 1,
		1, 1, 4,
	)
	// border pixels are only compared to the neighbours that exist
	test.That(t, isLocalMax(data, 3, 3, 0, 0, 5), test.ShouldBeTrue)
	test.That(t, isLocalMax(data, 3, 3, 1, 1, 4), test.ShouldBeFalse)
	// equal neighbours suppress each other
	test.That(t, isLocalMax(data, 3, 3, 2, 2, 4), test.ShouldBeFalse)

	data = grid(
		0, 0, 0,
		0, 2, 0,
		0, 0, 0,
	)
	test.That(t, isLocalMax(data, 3, 3, 1, 1, 2), test.ShouldBeTrue)
	test.That(t, isLocalMax(data, 3, 3, 0, 1, 0), test.ShouldBeFalse)
}

func TestHarrisParallelMatchesSequential(t *testing.T) {
	data := make([]rimage.Gray[float32], 64*48)
	for i := range data {
		x, y := i%64, i/64
		data[i] = rimage.NewGray(float32((x*x*7+y*13+x*y)%97) / 97)
	}
	img := rimage.MustNewImage(64, 48, 64, data)

	seq, err := NewHarrisDetector(nil, utils.Sequential{}, nil)
	test.That(t, err, test.ShouldBeNil)
	par, err := NewHarrisDetector(nil, utils.Parallel{Workers: 5}, nil)
	test.That(t, err, test.ShouldBeNil)

	seqResponse, err := seq.ResponseMap(img.View())
	test.That(t, err, test.ShouldBeNil)
	parResponse, err := par.ResponseMap(img.View())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, parResponse, test.ShouldResemble, seqResponse)

	seqKps, err := seq.Detect(img.View())
	test.That(t, err, test.ShouldBeNil)
	parKps, err := par.Detect(img.View())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, seqKps, test.ShouldNotBeEmpty)
	test.That(t, parKps, test.ShouldResemble, seqKps)
}

func TestNewHarrisDetectorValidates(t *testing.T) {
	for _, cfg := range []*HarrisConfig{
		{K: 0, Alpha: 0.01, MinThreshold: 1e-6},
		{K: 0.04, Alpha: -0.1, MinThreshold: 1e-6},
		{K: 0.04, Alpha: 1.5, MinThreshold: 1e-6},
		{K: 0.04, Alpha: 0.01, MinThreshold: -1},
	} {
		_, err := NewHarrisDetector(cfg, nil, nil)
		test.That(t, err, test.ShouldNotBeNil)
	}
}
