package rimage

// Scalar is the closed set of channel element types a pixel can hold.
type Scalar interface {
	uint8 | float32
}

// Gray is a single channel pixel.
type Gray[T Scalar] struct {
	Value T
}

// Rgb is a three channel pixel.
type Rgb[T Scalar] struct {
	R, G, B T
}

// Pixel is the closed set of supported pixel layouts.
type Pixel interface {
	Gray[uint8] | Gray[float32] | Rgb[uint8] | Rgb[float32]
}

// NewGray returns a gray pixel holding v.
func NewGray[T Scalar](v T) Gray[T] {
	return Gray[T]{Value: v}
}

// NewRgb returns an rgb pixel.
func NewRgb[T Scalar](r, g, b T) Rgb[T] {
	return Rgb[T]{R: r, G: g, B: b}
}

// Luma returns the pixel's intensity in [0, 1] for 8-bit pixels, or as-is for float pixels.
func (p Gray[T]) Luma() float32 {
	switch v := any(p.Value).(type) {
	case uint8:
		return float32(v) / 255.0
	case float32:
		return v
	}
	panic("unreachable")
}

// Luma returns the pixel's intensity. 8-bit pixels use the fixed point ITU-R 601 approximation
// (77, 150, 29) >> 8 and are then scaled to [0, 1].
func (p Rgb[T]) Luma() float32 {
	switch any(p.R).(type) {
	case uint8:
		r, g, b := uint32(any(p.R).(uint8)), uint32(any(p.G).(uint8)), uint32(any(p.B).(uint8))
		return float32((r*77+g*150+b*29)>>8) / 255.0
	case float32:
		r, g, b := any(p.R).(float32), any(p.G).(float32), any(p.B).(float32)
		return 0.299*r + 0.587*g + 0.114*b
	}
	panic("unreachable")
}
