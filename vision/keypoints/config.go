package keypoints

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/oxislam/oxislam-go/logging"
	"github.com/oxislam/oxislam-go/rimage"
	"github.com/oxislam/oxislam-go/utils"
)

// FeaturesConfig contains the parameters / configs needed to compute Harris corners with patch
// descriptors.
type FeaturesConfig struct {
	Harris *HarrisConfig `json:"harris"`
	Patch  *PatchConfig  `json:"patch"`
}

// DefaultFeaturesConfig returns the default Harris and patch parameters.
func DefaultFeaturesConfig() *FeaturesConfig {
	return &FeaturesConfig{Harris: DefaultHarrisConfig(), Patch: DefaultPatchConfig()}
}

// LoadFeaturesConfiguration loads a FeaturesConfig from a json file.
func LoadFeaturesConfiguration(file string) (*FeaturesConfig, error) {
	var config FeaturesConfig
	filePath := filepath.Clean(file)
	configFile, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer goutils.UncheckedErrorFunc(configFile.Close)
	jsonParser := json.NewDecoder(configFile)
	err = jsonParser.Decode(&config)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot parse %s", filePath)
	}
	err = config.Validate(file)
	if err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate ensures all parts of the FeaturesConfig are valid.
func (config *FeaturesConfig) Validate(path string) error {
	if config.Harris == nil {
		return goutils.NewConfigValidationFieldRequiredError(path, "harris")
	}
	if config.Patch == nil {
		return goutils.NewConfigValidationFieldRequiredError(path, "patch")
	}
	if err := config.Harris.Validate(path + ".harris"); err != nil {
		return err
	}
	return config.Patch.Validate(path + ".patch")
}

// Validate ensures all parts of the HarrisConfig are valid.
func (config *HarrisConfig) Validate(path string) error {
	if config.K <= 0 {
		return goutils.NewConfigValidationError(path, errors.New("k should be > 0"))
	}
	if config.Alpha < 0 || config.Alpha > 1 {
		return goutils.NewConfigValidationError(path, errors.New("alpha should be in [0, 1]"))
	}
	if config.MinThreshold < 0 {
		return goutils.NewConfigValidationError(path, errors.New("min_threshold should be >= 0"))
	}
	return nil
}

// Validate ensures all parts of the PatchConfig are valid.
func (config *PatchConfig) Validate(path string) error {
	if config.PatchSize < 3 || config.PatchSize%2 == 0 {
		return goutils.NewConfigValidationError(path, errors.New("patch_size should be an odd number >= 3"))
	}
	if config.DescriptorLength != config.PatchSize*config.PatchSize {
		return goutils.NewConfigValidationError(path,
			errors.Errorf("descriptor_length should be patch_size squared (%d), got %d",
				config.PatchSize*config.PatchSize, config.DescriptorLength))
	}
	return nil
}

// NewFeaturePipeline builds the Harris + patch pipeline described by cfg.
func NewFeaturePipeline(
	cfg *FeaturesConfig, ev utils.Evaluator, logger logging.Logger,
) (*Pipeline[rimage.Gray[float32], FloatDescriptor], error) {
	if cfg == nil {
		cfg = DefaultFeaturesConfig()
	}
	if err := cfg.Validate("features"); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewBlankLogger("features")
	}
	detector, err := NewHarrisDetector(cfg.Harris, ev, logger.Sublogger("harris"))
	if err != nil {
		return nil, err
	}
	describer, err := NewPatchExtractor(cfg.Patch, ev, logger.Sublogger("patch"))
	if err != nil {
		return nil, err
	}
	return NewPipeline[rimage.Gray[float32], FloatDescriptor](detector, describer, ev, logger), nil
}
