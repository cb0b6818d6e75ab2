package keypoints

import (
	"gonum.org/v1/gonum/stat"

	"github.com/oxislam/oxislam-go/logging"
	"github.com/oxislam/oxislam-go/rimage"
	"github.com/oxislam/oxislam-go/utils"
)

// patches whose standard deviation is at or below this are treated as flat.
const minPatchStdDev = 1e-10

// PatchConfig holds the parameters of the patch descriptor.
type PatchConfig struct {
	// PatchSize is the odd side length of the square patch, at least 3.
	PatchSize int `json:"patch_size"`
	// DescriptorLength must equal PatchSize*PatchSize.
	DescriptorLength int `json:"descriptor_length"`
	// Normalize z-scores every descriptor to zero mean and unit standard deviation.
	Normalize bool `json:"normalize"`
}

// DefaultPatchConfig returns a normalized 7×7 patch.
func DefaultPatchConfig() *PatchConfig {
	return &PatchConfig{PatchSize: 7, DescriptorLength: 49, Normalize: true}
}

// PatchExtractor describes a keypoint by the raw intensities of the square patch centered on it.
type PatchExtractor struct {
	size, length int
	normalize    bool
	ev           utils.Evaluator
	logger       logging.Logger
}

// NewPatchExtractor validates cfg and returns an extractor. A nil ev evaluates sequentially and
// a nil logger discards everything.
func NewPatchExtractor(cfg *PatchConfig, ev utils.Evaluator, logger logging.Logger) (*PatchExtractor, error) {
	if cfg == nil {
		cfg = DefaultPatchConfig()
	}
	if err := cfg.Validate("patch"); err != nil {
		return nil, err
	}
	if ev == nil {
		ev = utils.Sequential{}
	}
	if logger == nil {
		logger = logging.NewBlankLogger("patch")
	}
	return &PatchExtractor{
		size:      cfg.PatchSize,
		length:    cfg.DescriptorLength,
		normalize: cfg.Normalize,
		ev:        ev,
		logger:    logger,
	}, nil
}

// PatchSize returns the side length of the patch.
func (pe *PatchExtractor) PatchSize() int { return pe.size }

// DescriptorLength returns the number of values in every descriptor.
func (pe *PatchExtractor) DescriptorLength() int { return pe.length }

// DescribeOne copies the patch around kp in row-major order. It returns false when the patch
// does not fit inside img.
func (pe *PatchExtractor) DescribeOne(img rimage.View[rimage.Gray[float32]], kp Keypoint) (FloatDescriptor, bool) {
	patch, ok := img.Patch(kp.Position.X, kp.Position.Y, pe.size)
	if !ok {
		return nil, false
	}
	desc := make(FloatDescriptor, 0, pe.length)
	for p := range patch.Pixels() {
		desc = append(desc, p.Value)
	}
	if pe.normalize {
		normalizeDescriptor(desc)
	}
	return desc, true
}

// Describe describes every keypoint whose patch fits inside img. Keypoints too close to the
// border are dropped silently.
func (pe *PatchExtractor) Describe(img rimage.View[rimage.Gray[float32]], kps []Keypoint) []Feature[FloatDescriptor] {
	features := DescribeAll[rimage.Gray[float32], FloatDescriptor](pe.ev, pe, img, kps)
	if discarded := len(kps) - len(features); discarded > 0 {
		pe.logger.Debugw("discarded keypoints near the border", "discarded", discarded, "kept", len(features))
	}
	return features
}

// normalizeDescriptor rewrites desc as z-scores using the population standard deviation. A flat
// descriptor becomes all zeros.
func normalizeDescriptor(desc FloatDescriptor) {
	values := make([]float64, len(desc))
	for i, v := range desc {
		values[i] = float64(v)
	}
	mean, std := stat.PopMeanStdDev(values, nil)
	if !(std > minPatchStdDev) {
		for i := range desc {
			desc[i] = 0
		}
		return
	}
	for i, v := range values {
		desc[i] = float32((v - mean) / std)
	}
}
