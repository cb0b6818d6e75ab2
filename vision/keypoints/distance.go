package keypoints

import (
	"math"
	"math/bits"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DescriptorDistance computes the distance between two descriptors of the same kind: the number
// of differing bits for binary descriptors and the Euclidean distance for float descriptors.
func DescriptorDistance(d1, d2 Descriptor) (float64, error) {
	switch a := d1.(type) {
	case BinaryDescriptor:
		b, ok := d2.(BinaryDescriptor)
		if !ok {
			return -1, errors.Errorf("cannot compare %T with %T", d1, d2)
		}
		return HammingDistance(a, b)
	case FloatDescriptor:
		b, ok := d2.(FloatDescriptor)
		if !ok {
			return -1, errors.Errorf("cannot compare %T with %T", d1, d2)
		}
		return EuclideanDistance(a, b)
	default:
		return -1, errors.Errorf("unsupported descriptor type %T", d1)
	}
}

// HammingDistance computes the number of differing bits between two binary descriptors.
func HammingDistance(d1, d2 BinaryDescriptor) (float64, error) {
	if len(d1) != len(d2) {
		return -1, errors.New("must have same length")
	}
	distance := 0
	for i := range d1 {
		distance += bits.OnesCount8(d1[i] ^ d2[i])
	}
	return float64(distance), nil
}

// EuclideanDistance computes the euclidean distance between 2 float descriptors.
func EuclideanDistance(d1, d2 FloatDescriptor) (float64, error) {
	if len(d1) != len(d2) {
		return -1, errors.New("must have same length")
	}
	diff := make([]float64, len(d1))
	for i := range d1 {
		diff[i] = float64(d1[i]) - float64(d2[i])
	}
	// squared diff vector
	floats.Mul(diff, diff)
	return math.Sqrt(floats.Sum(diff)), nil
}

// PairwiseDistance computes the distances between every descriptor of ds1 (rows) and every
// descriptor of ds2 (columns).
func PairwiseDistance[D Descriptor](ds1, ds2 []D) (*mat.Dense, error) {
	if len(ds1) == 0 || len(ds2) == 0 {
		return nil, errors.New("cannot compute distances of an empty descriptor set")
	}
	distances := mat.NewDense(len(ds1), len(ds2), nil)
	for i, d1 := range ds1 {
		for j, d2 := range ds2 {
			d, err := DescriptorDistance(d1, d2)
			if err != nil {
				return nil, err
			}
			distances.Set(i, j, d)
		}
	}
	return distances, nil
}

// GetArgMinDistancesPerRow returns in a slice of int the index of the column with minimum
// distance for each row.
func GetArgMinDistancesPerRow(distances *mat.Dense) []int {
	nRows, _ := distances.Dims()
	indices := make([]int, nRows)
	for i := 0; i < nRows; i++ {
		row := mat.Row(nil, i, distances)
		indices[i] = floats.MinIdx(row)
	}
	return indices
}
