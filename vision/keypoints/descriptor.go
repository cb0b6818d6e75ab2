package keypoints

import (
	"github.com/oxislam/oxislam-go/rimage"
	"github.com/oxislam/oxislam-go/utils"
)

// DescriptorKind distinguishes binary descriptors, compared by Hamming distance, from float
// descriptors, compared by Euclidean distance.
type DescriptorKind int

const (
	// DescriptorBinary is a bit string packed into bytes.
	DescriptorBinary DescriptorKind = iota
	// DescriptorFloat is a vector of float32 values.
	DescriptorFloat
)

func (k DescriptorKind) String() string {
	switch k {
	case DescriptorBinary:
		return "binary"
	case DescriptorFloat:
		return "float"
	default:
		return "unknown"
	}
}

// Descriptor is implemented by every descriptor representation.
type Descriptor interface {
	Kind() DescriptorKind
	Len() int
}

// BinaryDescriptor is a packed bit string.
type BinaryDescriptor []uint8

// Kind returns DescriptorBinary.
func (BinaryDescriptor) Kind() DescriptorKind { return DescriptorBinary }

// Len returns the number of bytes.
func (d BinaryDescriptor) Len() int { return len(d) }

// FloatDescriptor is a real-valued descriptor vector.
type FloatDescriptor []float32

// Kind returns DescriptorFloat.
func (FloatDescriptor) Kind() DescriptorKind { return DescriptorFloat }

// Len returns the number of values.
func (d FloatDescriptor) Len() int { return len(d) }

// AsBinary returns the bytes of a binary descriptor.
func AsBinary(d Descriptor) ([]uint8, bool) {
	b, ok := d.(BinaryDescriptor)
	return b, ok
}

// AsFloat returns the values of a float descriptor.
func AsFloat(d Descriptor) ([]float32, bool) {
	f, ok := d.(FloatDescriptor)
	return f, ok
}

// DescriptorExtractor describes single keypoints of images of pixel type P.
type DescriptorExtractor[P any, D Descriptor] interface {
	// DescribeOne returns false when kp cannot be described, usually because it is too close
	// to the image border.
	DescribeOne(img rimage.View[P], kp Keypoint) (D, bool)
}

// DescribeAll describes every keypoint under ev, one unit per keypoint. Keypoints the extractor
// rejects are dropped; the rest keep their input order and are paired with their own
// descriptor.
func DescribeAll[P any, D Descriptor](
	ev utils.Evaluator, ex DescriptorExtractor[P, D], img rimage.View[P], kps []Keypoint,
) []Feature[D] {
	return utils.FilterMap(ev, kps, func(kp Keypoint) (Feature[D], bool) {
		d, ok := ex.DescribeOne(img, kp)
		if !ok {
			return Feature[D]{}, false
		}
		return Feature[D]{Keypoint: kp, Descriptor: d}, true
	})
}
