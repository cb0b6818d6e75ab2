// Package keypoints contains the implementation of keypoints in an image. For now:
// - Harris corners
// - normalized patch descriptors
package keypoints

import (
	"image"

	"github.com/fogleman/gg"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/oxislam/oxislam-go/rimage"
)

// Keypoint is a distinctive image location. Position is in the coordinate frame of the image
// the detector was given.
type Keypoint struct {
	Position    r2.Vec  `json:"position"`
	Scale       float64 `json:"scale"`
	Orientation float64 `json:"orientation,omitempty"`
	// Oriented reports whether Orientation was computed; Harris corners are not oriented.
	Oriented bool    `json:"oriented"`
	Response float64 `json:"response"`
}

// KeypointDetector finds keypoints in images of pixel type P.
type KeypointDetector[P any] interface {
	Detect(img rimage.View[P]) ([]Keypoint, error)
}

// PlotKeypoints plots keypoints on image.
func PlotKeypoints(img image.Image, kps []Keypoint, outName string) error {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()

	dc := gg.NewContext(w, h)
	dc.DrawImage(img, 0, 0)

	// draw keypoints on image
	dc.SetRGBA(0, 0, 1, 0.5)
	for _, kp := range kps {
		dc.DrawCircle(kp.Position.X, kp.Position.Y, 3.0)
		dc.Fill()
	}
	return dc.SavePNG(outName)
}
