package keypoints

import (
	"time"

	"github.com/pkg/errors"

	"github.com/oxislam/oxislam-go/logging"
	"github.com/oxislam/oxislam-go/rimage"
	"github.com/oxislam/oxislam-go/utils"
)

// Feature pairs a keypoint with its descriptor.
type Feature[D Descriptor] struct {
	Keypoint   Keypoint `json:"keypoint"`
	Descriptor D        `json:"descriptor"`
}

// FeatureExtractor turns an image into described features.
type FeatureExtractor[P any, D Descriptor] interface {
	Extract(img rimage.View[P]) ([]Feature[D], error)
}

// Pipeline is a FeatureExtractor that runs a detector and then describes what it found.
type Pipeline[P any, D Descriptor] struct {
	detector  KeypointDetector[P]
	describer DescriptorExtractor[P, D]
	ev        utils.Evaluator
	logger    logging.Logger
}

// NewPipeline combines a detector and a descriptor extractor. A nil ev evaluates sequentially
// and a nil logger discards everything.
func NewPipeline[P any, D Descriptor](
	detector KeypointDetector[P],
	describer DescriptorExtractor[P, D],
	ev utils.Evaluator,
	logger logging.Logger,
) *Pipeline[P, D] {
	if ev == nil {
		ev = utils.Sequential{}
	}
	if logger == nil {
		logger = logging.NewBlankLogger("features")
	}
	return &Pipeline[P, D]{detector: detector, describer: describer, ev: ev, logger: logger}
}

// Extract detects keypoints in img and describes the ones that can be described.
func (p *Pipeline[P, D]) Extract(img rimage.View[P]) ([]Feature[D], error) {
	start := time.Now()
	kps, err := p.detector.Detect(img)
	if err != nil {
		return nil, errors.Wrap(err, "cannot detect keypoints")
	}
	detected := time.Now()
	features := DescribeAll(p.ev, p.describer, img, kps)
	p.logger.Debugw("extracted features",
		"keypoints", len(kps),
		"features", len(features),
		"discarded", len(kps)-len(features),
		"detect_time", detected.Sub(start),
		"describe_time", time.Since(detected),
	)
	return features, nil
}
