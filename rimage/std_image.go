package rimage

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
)

// NewRgbImageFromStd copies any standard library image into a compact 8-bit RGB image. Alpha is
// dropped without premultiplying.
func NewRgbImageFromStd(img image.Image) (*Image[Rgb[uint8]], error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, errors.Errorf("cannot convert empty image with bounds %v", b)
	}
	data := make([]Rgb[uint8], w*h)
	switch src := img.(type) {
	case *image.NRGBA:
		for y := 0; y < h; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+4*w]
			for x := 0; x < w; x++ {
				data[y*w+x] = Rgb[uint8]{R: row[4*x], G: row[4*x+1], B: row[4*x+2]}
			}
		}
	case *image.Gray:
		for y := 0; y < h; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+w]
			for x, v := range row {
				data[y*w+x] = Rgb[uint8]{R: v, G: v, B: v}
			}
		}
	default:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				data[y*w+x] = Rgb[uint8]{R: c.R, G: c.G, B: c.B}
			}
		}
	}
	return NewImage(w, h, w, data)
}

// NewGrayImageFromStd copies an *image.Gray, keeping its stride so that row padding survives.
func NewGrayImageFromStd(img *image.Gray) (*Image[Gray[uint8]], error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, errors.Errorf("cannot convert empty image with bounds %v", b)
	}
	// sub-images don't carry the padding after their last row
	data := make([]Gray[uint8], img.Stride*h)
	for i := 0; i < len(data) && i < len(img.Pix); i++ {
		data[i] = Gray[uint8]{Value: img.Pix[i]}
	}
	return NewImage(w, h, img.Stride, data)
}

// ToStdGray copies a view into a new *image.Gray anchored at the origin.
func ToStdGray(v View[Gray[uint8]]) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, v.width, v.height))
	for y, row := range v.Rows() {
		for x, p := range row {
			out.Pix[y*out.Stride+x] = p.Value
		}
	}
	return out
}
