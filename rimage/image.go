package rimage

import (
	"iter"
	"math"

	"github.com/pkg/errors"
)

// Image is an owned, row-strided grid of pixels. The pixel at (x, y) lives at y*stride+x; the
// columns [width, stride) of each row are padding and are never visited.
type Image[P any] struct {
	width, height, stride int
	data                  []P
}

// View is a borrowed, read-only window onto someone else's pixels. Sub-views share the
// parent's stride and backing array, so creating one never copies.
type View[P any] struct {
	width, height, stride int
	data                  []P
}

// MutView is a borrowed, writable window onto someone else's pixels.
type MutView[P any] struct {
	View[P]
}

func checkGeometry(width, height, stride, length, required int) error {
	if width <= 0 || height <= 0 {
		return errors.Errorf("image dimensions must be positive, got %dx%d", width, height)
	}
	if stride < width {
		return errors.Errorf("stride %d is smaller than width %d", stride, width)
	}
	if length < required {
		return errors.Errorf("backing data of length %d is too short for %dx%d with stride %d (need %d)",
			length, width, height, stride, required)
	}
	return nil
}

// NewImage adopts data as a width×height image with the given stride. data must hold at least
// stride*height pixels.
func NewImage[P any](width, height, stride int, data []P) (*Image[P], error) {
	if err := checkGeometry(width, height, stride, len(data), stride*height); err != nil {
		return nil, err
	}
	return &Image[P]{width: width, height: height, stride: stride, data: data}, nil
}

// MustNewImage is NewImage for callers that have already established the geometry; it panics
// when the geometry is invalid.
func MustNewImage[P any](width, height, stride int, data []P) *Image[P] {
	img, err := NewImage(width, height, stride, data)
	if err != nil {
		panic(err)
	}
	return img
}

// NewFilledImage returns a compact width×height image with every pixel set to p.
func NewFilledImage[P any](width, height int, p P) (*Image[P], error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("image dimensions must be positive, got %dx%d", width, height)
	}
	data := make([]P, width*height)
	for i := range data {
		data[i] = p
	}
	return NewImage(width, height, width, data)
}

// NewView borrows data as a width×height view. The last row only needs width pixels, so a
// rectangle cut out of a larger buffer is accepted.
func NewView[P any](data []P, width, height, stride int) (View[P], error) {
	required := 0
	if width > 0 && height > 0 {
		required = (height-1)*stride + width
	}
	if err := checkGeometry(width, height, stride, len(data), required); err != nil {
		return View[P]{}, err
	}
	return View[P]{width: width, height: height, stride: stride, data: data}, nil
}

// Width returns the number of columns.
func (i *Image[P]) Width() int { return i.width }

// Height returns the number of rows.
func (i *Image[P]) Height() int { return i.height }

// Stride returns the row pitch in pixels.
func (i *Image[P]) Stride() int { return i.stride }

// Data returns the backing slice, padding included.
func (i *Image[P]) Data() []P { return i.data }

// Index returns the offset of (x, y) in Data. It panics if (x, y) is outside the image.
func (i *Image[P]) Index(x, y int) int {
	return index(x, y, i.width, i.height, i.stride)
}

// At returns the pixel at (x, y).
func (i *Image[P]) At(x, y int) P {
	return i.data[i.Index(x, y)]
}

// Set overwrites the pixel at (x, y).
func (i *Image[P]) Set(x, y int, p P) {
	i.data[i.Index(x, y)] = p
}

// View borrows the whole image.
func (i *Image[P]) View() View[P] {
	return View[P]{width: i.width, height: i.height, stride: i.stride, data: i.data}
}

// MutView borrows the whole image for writing.
func (i *Image[P]) MutView() MutView[P] {
	return MutView[P]{i.View()}
}

// Pixels visits every pixel in row-major order.
func (i *Image[P]) Pixels() iter.Seq[P] {
	return i.View().Pixels()
}

// Rows visits every row; see View.Rows.
func (i *Image[P]) Rows() iter.Seq2[int, []P] {
	return i.View().Rows()
}

func index(x, y, width, height, stride int) int {
	if x < 0 || y < 0 || x >= width || y >= height {
		panic(errors.Errorf("pixel (%d, %d) is out of bounds for %dx%d image", x, y, width, height))
	}
	return y*stride + x
}

// Width returns the number of columns.
func (v View[P]) Width() int { return v.width }

// Height returns the number of rows.
func (v View[P]) Height() int { return v.height }

// Stride returns the row pitch in pixels.
func (v View[P]) Stride() int { return v.stride }

// Data returns the borrowed slice starting at the view's first pixel.
func (v View[P]) Data() []P { return v.data }

// Empty reports whether the view is the zero View.
func (v View[P]) Empty() bool { return v.width == 0 || v.height == 0 }

// Index returns the offset of (x, y) in Data. It panics if (x, y) is outside the view.
func (v View[P]) Index(x, y int) int {
	return index(x, y, v.width, v.height, v.stride)
}

// At returns the pixel at (x, y).
func (v View[P]) At(x, y int) P {
	return v.data[v.Index(x, y)]
}

// Subview returns the width×height rectangle whose top-left corner is (x, y). It reports false
// if the rectangle is empty or does not fit inside v.
func (v View[P]) Subview(x, y, width, height int) (View[P], bool) {
	if width <= 0 || height <= 0 {
		return View[P]{}, false
	}
	if x < 0 || y < 0 || x > v.width-width || y > v.height-height {
		return View[P]{}, false
	}
	offset := y*v.stride + x
	return View[P]{width: width, height: height, stride: v.stride, data: v.data[offset:]}, true
}

// Patch returns the size×size square centered on (cx, cy) rounded to the nearest pixel. It
// reports false if any part of the square would fall outside v. size must be odd.
func (v View[P]) Patch(cx, cy float64, size int) (View[P], bool) {
	if size <= 0 || size%2 == 0 {
		panic(errors.Errorf("patch size must be a positive odd number, got %d", size))
	}
	if math.IsNaN(cx) || math.IsNaN(cy) || math.IsInf(cx, 0) || math.IsInf(cy, 0) {
		return View[P]{}, false
	}
	half := size / 2
	rx, ry := math.Round(cx), math.Round(cy)
	// Reject in float space so huge finite centers never reach the int conversion.
	if rx < float64(half) || ry < float64(half) ||
		rx+float64(half) >= float64(v.width) || ry+float64(half) >= float64(v.height) {
		return View[P]{}, false
	}
	return v.Subview(int(rx)-half, int(ry)-half, size, size)
}

// Pixels visits every pixel in row-major order, skipping stride padding. The sequence can be
// ranged over any number of times.
func (v View[P]) Pixels() iter.Seq[P] {
	return func(yield func(P) bool) {
		for y := 0; y < v.height; y++ {
			start := y * v.stride
			for _, p := range v.data[start : start+v.width] {
				if !yield(p) {
					return
				}
			}
		}
	}
}

// Rows visits every row as a width-long slice aliasing the backing data.
func (v View[P]) Rows() iter.Seq2[int, []P] {
	return func(yield func(int, []P) bool) {
		for y := 0; y < v.height; y++ {
			start := y * v.stride
			if !yield(y, v.data[start:start+v.width:start+v.width]) {
				return
			}
		}
	}
}

// NewMutView borrows data as a writable width×height view.
func NewMutView[P any](data []P, width, height, stride int) (MutView[P], error) {
	view, err := NewView(data, width, height, stride)
	if err != nil {
		return MutView[P]{}, err
	}
	return MutView[P]{view}, nil
}

// Set overwrites the pixel at (x, y).
func (v MutView[P]) Set(x, y int, p P) {
	v.data[v.Index(x, y)] = p
}

// Subview returns a writable sub-rectangle; see View.Subview.
func (v MutView[P]) Subview(x, y, width, height int) (MutView[P], bool) {
	sub, ok := v.View.Subview(x, y, width, height)
	return MutView[P]{sub}, ok
}

// NewGrayFromRaw copies a flat scalar buffer into a gray image with the same geometry.
func NewGrayFromRaw[T Scalar](width, height, stride int, raw []T) (*Image[Gray[T]], error) {
	if err := checkGeometry(width, height, stride, len(raw), stride*height); err != nil {
		return nil, err
	}
	data := make([]Gray[T], len(raw))
	for i, v := range raw {
		data[i] = Gray[T]{Value: v}
	}
	return &Image[Gray[T]]{width: width, height: height, stride: stride, data: data}, nil
}

// RawGray copies a gray image's backing buffer, padding included, into a flat scalar slice.
func RawGray[T Scalar](img *Image[Gray[T]]) []T {
	raw := make([]T, len(img.data))
	for i, p := range img.data {
		raw[i] = p.Value
	}
	return raw
}
