package rimage

import (
	"github.com/oxislam/oxislam-go/utils"
)

// LumaPixel is any supported pixel that can report its intensity.
type LumaPixel interface {
	Pixel
	Luma() float32
}

// Clone copies src into a compact image (stride == width).
func Clone[P any](ev utils.Evaluator, src View[P]) *Image[P] {
	return Map(ev, src, func(p P) P { return p })
}

// GrayToFloat scales 8-bit gray pixels to [0, 1].
func GrayToFloat(ev utils.Evaluator, src View[Gray[uint8]]) *Image[Gray[float32]] {
	return Map(ev, src, func(p Gray[uint8]) Gray[float32] {
		return Gray[float32]{Value: float32(p.Value) / 255.0}
	})
}

// GrayToByte scales float gray pixels by 255, clamping to the 8-bit range and truncating.
func GrayToByte(ev utils.Evaluator, src View[Gray[float32]]) *Image[Gray[uint8]] {
	return Map(ev, src, func(p Gray[float32]) Gray[uint8] {
		return Gray[uint8]{Value: toByte(p.Value)}
	})
}

// RgbToFloat scales 8-bit rgb pixels to [0, 1] per channel.
func RgbToFloat(ev utils.Evaluator, src View[Rgb[uint8]]) *Image[Rgb[float32]] {
	return Map(ev, src, func(p Rgb[uint8]) Rgb[float32] {
		return Rgb[float32]{R: float32(p.R) / 255.0, G: float32(p.G) / 255.0, B: float32(p.B) / 255.0}
	})
}

// RgbToByte scales float rgb pixels by 255 per channel, clamping to the 8-bit range.
func RgbToByte(ev utils.Evaluator, src View[Rgb[float32]]) *Image[Rgb[uint8]] {
	return Map(ev, src, func(p Rgb[float32]) Rgb[uint8] {
		return Rgb[uint8]{R: toByte(p.R), G: toByte(p.G), B: toByte(p.B)}
	})
}

// RgbToGray converts 8-bit rgb straight to float gray in one pass with the ITU-R 601 weights.
func RgbToGray(ev utils.Evaluator, src View[Rgb[uint8]]) *Image[Gray[float32]] {
	return Map(ev, src, func(p Rgb[uint8]) Gray[float32] {
		return Gray[float32]{Value: (float32(p.R)*0.299 + float32(p.G)*0.587 + float32(p.B)*0.114) / 255.0}
	})
}

// RgbFloatToGray converts float rgb to float gray with the ITU-R 601 weights.
func RgbFloatToGray(ev utils.Evaluator, src View[Rgb[float32]]) *Image[Gray[float32]] {
	return Map(ev, src, func(p Rgb[float32]) Gray[float32] {
		return Gray[float32]{Value: p.R*0.299 + p.G*0.587 + p.B*0.114}
	})
}

// LumaImage converts any supported pixel type to float gray using the pixel's own Luma.
func LumaImage[P LumaPixel](ev utils.Evaluator, src View[P]) *Image[Gray[float32]] {
	return Map(ev, src, func(p P) Gray[float32] {
		return Gray[float32]{Value: p.Luma()}
	})
}

func toByte(v float32) uint8 {
	return uint8(utils.ClampF32(v*255.0, 0, 255))
}
