package rimage

import (
	"github.com/pkg/errors"

	"github.com/oxislam/oxislam-go/utils"
)

// Kernel is an immutable square table of correlation weights with an odd side length.
type Kernel struct {
	size    int
	weights []float32
}

// NewKernel copies rows into a Kernel. rows must be square with an odd, non-zero side.
func NewKernel(rows [][]float32) (Kernel, error) {
	n := len(rows)
	if n == 0 || n%2 == 0 {
		return Kernel{}, errors.Errorf("kernel size must be odd, got %d", n)
	}
	weights := make([]float32, 0, n*n)
	for i, row := range rows {
		if len(row) != n {
			return Kernel{}, errors.Errorf("kernel must be square, row %d has %d weights instead of %d", i, len(row), n)
		}
		weights = append(weights, row...)
	}
	return Kernel{size: n, weights: weights}, nil
}

func mustNewKernel(rows [][]float32) Kernel {
	k, err := NewKernel(rows)
	if err != nil {
		panic(err)
	}
	return k
}

// Size returns the side length N of the N×N kernel.
func (k Kernel) Size() int {
	return k.size
}

// At returns the weight in column kx of row ky.
func (k Kernel) At(kx, ky int) float32 {
	return k.weights[index(kx, ky, k.size, k.size, k.size)]
}

// Sum returns the sum of all weights.
func (k Kernel) Sum() float32 {
	var sum float32
	for _, w := range k.weights {
		sum += w
	}
	return sum
}

// Normalize returns a copy of the kernel scaled so its weights sum to 1. Kernels whose weights
// sum to zero, like Sobel, are returned unchanged.
func (k Kernel) Normalize() Kernel {
	sum := k.Sum()
	weights := make([]float32, len(k.weights))
	copy(weights, k.weights)
	if sum == 0 {
		return Kernel{size: k.size, weights: weights}
	}
	for i := range weights {
		weights[i] /= sum
	}
	return Kernel{size: k.size, weights: weights}
}

var (
	sobelX = mustNewKernel([][]float32{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	})
	sobelY = mustNewKernel([][]float32{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	})
	gaussian3 = mustNewKernel([][]float32{
		{1, 2, 1},
		{2, 4, 2},
		{1, 2, 1},
	}).Normalize()
	gaussian5 = mustNewKernel([][]float32{
		{1, 4, 6, 4, 1},
		{4, 16, 24, 16, 4},
		{6, 24, 36, 24, 6},
		{4, 16, 24, 16, 4},
		{1, 4, 6, 4, 1},
	}).Normalize()
)

// GetSobelX returns the Kernel corresponding to the Sobel kernel in the x direction.
func GetSobelX() Kernel {
	return sobelX
}

// GetSobelY returns the Kernel corresponding to the Sobel kernel in the y direction.
func GetSobelY() Kernel {
	return sobelY
}

// GetGaussian3 returns the 3×3 binomial Gaussian kernel, normalized by 16.
func GetGaussian3() Kernel {
	return gaussian3
}

// GetGaussian5 returns the 5×5 binomial Gaussian kernel, normalized by 256.
func GetGaussian5() Kernel {
	return gaussian5
}

// ApplyKernel correlates img with kernel without padding: only positions where the whole
// kernel fits are evaluated, so the output is (width-N+1)×(height-N+1) and output pixel (x, y)
// is Σ img[x+kx, y+ky]·kernel[ky][kx]. The kernel is not flipped.
func ApplyKernel(ev utils.Evaluator, img View[Gray[float32]], kernel Kernel) (*Image[Gray[float32]], error) {
	n := kernel.size
	if n == 0 {
		return nil, errors.New("cannot apply an empty kernel")
	}
	if img.width < n || img.height < n {
		return nil, errors.Errorf("image must be at least %dx%d, got %dx%d", n, n, img.width, img.height)
	}

	outW := img.width - (n - 1)
	outH := img.height - (n - 1)
	stride, data, weights := img.stride, img.data, kernel.weights
	out := utils.CollectRows(ev, outW, outH, func(x, y int) Gray[float32] {
		var sum float32
		for ky := 0; ky < n; ky++ {
			row := data[(y+ky)*stride+x : (y+ky)*stride+x+n]
			kRow := weights[ky*n : (ky+1)*n]
			for kx, kE := range kRow {
				sum += row[kx].Value * kE
			}
		}
		return Gray[float32]{Value: sum}
	})
	return &Image[Gray[float32]]{width: outW, height: outH, stride: outW, data: out}, nil
}

// Sobel returns the horizontal and vertical gradients of img, each 2 pixels smaller than img
// along both axes.
func Sobel(ev utils.Evaluator, img View[Gray[float32]]) (*Image[Gray[float32]], *Image[Gray[float32]], error) {
	ix, err := ApplyKernel(ev, img, sobelX)
	if err != nil {
		return nil, nil, errors.Wrap(err, "sobel x")
	}
	iy, err := ApplyKernel(ev, img, sobelY)
	if err != nil {
		return nil, nil, errors.Wrap(err, "sobel y")
	}
	return ix, iy, nil
}

// Gaussian3x3 smooths img with the 3×3 Gaussian kernel.
func Gaussian3x3(ev utils.Evaluator, img View[Gray[float32]]) (*Image[Gray[float32]], error) {
	return ApplyKernel(ev, img, gaussian3)
}

// Gaussian5x5 smooths img with the 5×5 Gaussian kernel.
func Gaussian5x5(ev utils.Evaluator, img View[Gray[float32]]) (*Image[Gray[float32]], error) {
	return ApplyKernel(ev, img, gaussian5)
}
