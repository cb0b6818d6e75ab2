package keypoints

import (
	"math"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat"

	"github.com/oxislam/oxislam-go/logging"
	"github.com/oxislam/oxislam-go/rimage"
	"github.com/oxislam/oxislam-go/utils"
)

func kpAt(x, y float64) Keypoint {
	return Keypoint{Position: r2.Vec{X: x, Y: y}, Scale: 1, Response: 1}
}

func indexImage(w, h int) *rimage.Image[rimage.Gray[float32]] {
	data := make([]rimage.Gray[float32], w*h)
	for i := range data {
		data[i] = rimage.NewGray(float32(i))
	}
	return rimage.MustNewImage(w, h, w, data)
}

func descriptorStats(d FloatDescriptor) (float64, float64) {
	values := make([]float64, len(d))
	for i, v := range d {
		values[i] = float64(v)
	}
	return stat.PopMeanStdDev(values, nil)
}

func TestPatchConfig(t *testing.T) {
	ex, err := NewPatchExtractor(nil, nil, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ex.PatchSize(), test.ShouldEqual, 7)
	test.That(t, ex.DescriptorLength(), test.ShouldEqual, 49)

	for _, cfg := range []*PatchConfig{
		{PatchSize: 1, DescriptorLength: 1},
		{PatchSize: 4, DescriptorLength: 16},
		{PatchSize: 5, DescriptorLength: 24},
		{PatchSize: -3, DescriptorLength: 9},
	} {
		_, err := NewPatchExtractor(cfg, nil, nil)
		test.That(t, err, test.ShouldNotBeNil)
	}
}

func TestDescribeOneRaw(t *testing.T) {
	img := indexImage(5, 4)
	ex, err := NewPatchExtractor(&PatchConfig{PatchSize: 3, DescriptorLength: 9}, nil, nil)
	test.That(t, err, test.ShouldBeNil)

	d, ok := ex.DescribeOne(img.View(), kpAt(2, 1))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, d.Kind(), test.ShouldEqual, DescriptorFloat)
	test.That(t, d, test.ShouldResemble, FloatDescriptor{1, 2, 3, 6, 7, 8, 11, 12, 13})

	// centers are rounded to the nearest pixel
	d, ok = ex.DescribeOne(img.View(), kpAt(2.6, 1.4))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, d[0], test.ShouldEqual, float32(2))

	_, ok = ex.DescribeOne(img.View(), kpAt(0, 1))
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = ex.DescribeOne(img.View(), kpAt(2, 3))
	test.That(t, ok, test.ShouldBeFalse)
}

func TestNormalizeKnownPatch(t *testing.T) {
	img := indexImage(3, 3)
	ex, err := NewPatchExtractor(&PatchConfig{PatchSize: 3, DescriptorLength: 9, Normalize: true}, nil, nil)
	test.That(t, err, test.ShouldBeNil)
	d, ok := ex.DescribeOne(img.View(), kpAt(1, 1))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, d, test.ShouldHaveLength, 9)
	mean, std := descriptorStats(d)
	test.That(t, mean, test.ShouldAlmostEqual, 0, 1e-5)
	test.That(t, std, test.ShouldAlmostEqual, 1, 1e-5)
	// ordering survives normalization
	test.That(t, d[0], test.ShouldBeLessThan, d[8])

	textured := make([]rimage.Gray[float32], 11*11)
	for i := range textured {
		textured[i] = rimage.NewGray(float32(math.Sin(float64(i)*0.7)) * 0.3)
	}
	timg := rimage.MustNewImage(11, 11, 11, textured)
	ex, err = NewPatchExtractor(nil, nil, nil)
	test.That(t, err, test.ShouldBeNil)
	d, ok = ex.DescribeOne(timg.View(), kpAt(5, 5))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, d, test.ShouldHaveLength, 49)
	mean, std = descriptorStats(d)
	test.That(t, mean, test.ShouldAlmostEqual, 0, 1e-5)
	test.That(t, std, test.ShouldAlmostEqual, 1, 1e-5)
}

func TestNormalizeUniformPatch(t *testing.T) {
	img, err := rimage.NewFilledImage(3, 3, rimage.NewGray[float32](0.5))
	test.That(t, err, test.ShouldBeNil)
	ex, err := NewPatchExtractor(&PatchConfig{PatchSize: 3, DescriptorLength: 9, Normalize: true}, nil, nil)
	test.That(t, err, test.ShouldBeNil)
	d, ok := ex.DescribeOne(img.View(), kpAt(1, 1))
	test.That(t, ok, test.ShouldBeTrue)
	for _, v := range d {
		test.That(t, math.IsNaN(float64(v)), test.ShouldBeFalse)
		test.That(t, v, test.ShouldEqual, float32(0))
	}
}

func TestDescribeDiscardsBorderKeypoints(t *testing.T) {
	img := indexImage(20, 20)
	logger, logs := logging.NewObservedTestLogger(t)
	kps := []Keypoint{
		kpAt(0, 0),
		kpAt(3, 3),
		kpAt(2, 10),
		kpAt(10, 10),
		kpAt(16, 16),
		kpAt(17, 10),
		kpAt(10, 19.6),
		kpAt(1e19, 1e19),
		kpAt(-1e19, -1e19),
		kpAt(1e300, 10),
		kpAt(10, -1e300),
	}
	for name, ev := range map[string]utils.Evaluator{"sequential": utils.Sequential{}, "parallel": utils.NewParallel()} {
		t.Run(name, func(t *testing.T) {
			ex, err := NewPatchExtractor(&PatchConfig{PatchSize: 7, DescriptorLength: 49}, ev, logger)
			test.That(t, err, test.ShouldBeNil)
			features := ex.Describe(img.View(), kps)
			test.That(t, features, test.ShouldHaveLength, 3)
			test.That(t, len(kps)-len(features), test.ShouldEqual, 8)

			// survivors keep their order and their own descriptor
			for i, pos := range [][2]float64{{3, 3}, {10, 10}, {16, 16}} {
				f := features[i]
				test.That(t, f.Keypoint, test.ShouldResemble, kpAt(pos[0], pos[1]))
				test.That(t, f.Descriptor[24], test.ShouldEqual, float32(pos[1]*20+pos[0]))
			}
		})
	}

	discards := logs.FilterMessage("discarded keypoints near the border").All()
	test.That(t, discards, test.ShouldHaveLength, 2)
	test.That(t, discards[0].ContextMap()["discarded"], test.ShouldEqual, int64(8))
}

func TestDescribeAllKeepsAllInBounds(t *testing.T) {
	img := indexImage(9, 9)
	ex, err := NewPatchExtractor(&PatchConfig{PatchSize: 3, DescriptorLength: 9}, nil, nil)
	test.That(t, err, test.ShouldBeNil)
	var kps []Keypoint
	for y := 1; y < 8; y++ {
		for x := 1; x < 8; x++ {
			kps = append(kps, kpAt(float64(x), float64(y)))
		}
	}
	features := DescribeAll[rimage.Gray[float32], FloatDescriptor](utils.Parallel{Workers: 4}, ex, img.View(), kps)
	test.That(t, features, test.ShouldHaveLength, len(kps))
	for i, f := range features {
		test.That(t, f.Keypoint, test.ShouldResemble, kps[i])
		test.That(t, f.Descriptor, test.ShouldHaveLength, 9)
	}
	test.That(t, DescribeAll[rimage.Gray[float32], FloatDescriptor](nil, ex, img.View(), nil), test.ShouldBeEmpty)
}
