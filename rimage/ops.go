package rimage

import (
	"github.com/pkg/errors"

	"github.com/oxislam/oxislam-go/utils"
)

// Map applies f to every pixel of src, row by row under ev, and returns a compact image of the
// results with src's width and height. It panics on an empty view.
func Map[P, Q any](ev utils.Evaluator, src View[P], f func(P) Q) *Image[Q] {
	mustNotBeEmpty(src)
	w, h, stride, data := src.width, src.height, src.stride, src.data
	out := utils.CollectRows(ev, w, h, func(x, y int) Q {
		return f(data[y*stride+x])
	})
	return &Image[Q]{width: w, height: h, stride: w, data: out}
}

// Map2 applies f pairwise to the pixels of a and b, which must have the same dimensions.
func Map2[P, Q, R any](ev utils.Evaluator, a View[P], b View[Q], f func(P, Q) R) (*Image[R], error) {
	if a.width != b.width || a.height != b.height {
		return nil, errors.Errorf("images aren't the same size (%d %d) != (%d %d)",
			a.width, a.height, b.width, b.height)
	}
	mustNotBeEmpty(a)
	w, h := a.width, a.height
	out := utils.CollectRows(ev, w, h, func(x, y int) R {
		return f(a.data[y*a.stride+x], b.data[y*b.stride+x])
	})
	return &Image[R]{width: w, height: h, stride: w, data: out}, nil
}

func mustNotBeEmpty[P any](v View[P]) {
	if v.Empty() {
		panic(errors.New("cannot evaluate an empty image view"))
	}
}

// Mul multiplies two same-sized float gray images pixel by pixel.
func Mul(ev utils.Evaluator, a, b View[Gray[float32]]) (*Image[Gray[float32]], error) {
	return Map2(ev, a, b, func(p, q Gray[float32]) Gray[float32] {
		return Gray[float32]{Value: p.Value * q.Value}
	})
}

// Add sums two same-sized float gray images pixel by pixel.
func Add(ev utils.Evaluator, a, b View[Gray[float32]]) (*Image[Gray[float32]], error) {
	return Map2(ev, a, b, func(p, q Gray[float32]) Gray[float32] {
		return Gray[float32]{Value: p.Value + q.Value}
	})
}

// Sub subtracts b from a pixel by pixel; both must be the same size.
func Sub(ev utils.Evaluator, a, b View[Gray[float32]]) (*Image[Gray[float32]], error) {
	return Map2(ev, a, b, func(p, q Gray[float32]) Gray[float32] {
		return Gray[float32]{Value: p.Value - q.Value}
	})
}
