package keypoints

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "features.json")
	test.That(t, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)
	return path
}

func TestLoadFeaturesConfiguration(t *testing.T) {
	path := writeConfig(t, `{
		"harris": {"k": 0.05, "alpha": 0.02, "min_threshold": 0.0001},
		"patch": {"patch_size": 5, "descriptor_length": 25, "normalize": true}
	}`)
	cfg, err := LoadFeaturesConfiguration(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Harris.K, test.ShouldEqual, 0.05)
	test.That(t, cfg.Harris.Alpha, test.ShouldEqual, 0.02)
	test.That(t, cfg.Harris.MinThreshold, test.ShouldEqual, 0.0001)
	test.That(t, cfg.Patch.PatchSize, test.ShouldEqual, 5)
	test.That(t, cfg.Patch.DescriptorLength, test.ShouldEqual, 25)
	test.That(t, cfg.Patch.Normalize, test.ShouldBeTrue)

	pipeline, err := NewFeaturePipeline(cfg, nil, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pipeline, test.ShouldNotBeNil)
}

func TestLoadFeaturesConfigurationErrors(t *testing.T) {
	_, err := LoadFeaturesConfiguration(filepath.Join(t.TempDir(), "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)

	_, err = LoadFeaturesConfiguration(writeConfig(t, `{"harris": `))
	test.That(t, err, test.ShouldNotBeNil)

	_, err = LoadFeaturesConfiguration(writeConfig(t, `{"harris": {"k": 0.04, "alpha": 0.01}}`))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "patch")

	_, err = LoadFeaturesConfiguration(writeConfig(t, `{"patch": {"patch_size": 7, "descriptor_length": 49}}`))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "harris")

	_, err = LoadFeaturesConfiguration(writeConfig(t, `{
		"harris": {"k": 0.04, "alpha": 0.01},
		"patch": {"patch_size": 6, "descriptor_length": 36}
	}`))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "patch_size")

	_, err = LoadFeaturesConfiguration(writeConfig(t, `{
		"harris": {"k": 0.04, "alpha": 0.01},
		"patch": {"patch_size": 7, "descriptor_length": 48}
	}`))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "descriptor_length")

	_, err = LoadFeaturesConfiguration(writeConfig(t, `{
		"harris": {"k": -1, "alpha": 0.01},
		"patch": {"patch_size": 7, "descriptor_length": 49}
	}`))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDefaultFeaturesConfig(t *testing.T) {
	cfg := DefaultFeaturesConfig()
	test.That(t, cfg.Validate("features"), test.ShouldBeNil)
	test.That(t, cfg.Harris, test.ShouldResemble, &HarrisConfig{K: 0.04, Alpha: 0.01, MinThreshold: 1e-6})
	test.That(t, cfg.Patch, test.ShouldResemble, &PatchConfig{PatchSize: 7, DescriptorLength: 49, Normalize: true})

	_, err := NewFeaturePipeline(&FeaturesConfig{Harris: DefaultHarrisConfig()}, nil, nil)
	test.That(t, err, test.ShouldNotBeNil)
}
