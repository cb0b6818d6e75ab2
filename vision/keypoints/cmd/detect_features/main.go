// Package main detects Harris corners in image files, describes them with normalized patches and
// writes the keypoints drawn on top of each image.
package main

import (
	"context"
	"encoding/json"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	_ "github.com/lmittmann/ppm" // register ppm
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	_ "github.com/xfmoulet/qoi" // register qoi
	"go.uber.org/multierr"
	_ "golang.org/x/image/webp" // register webp

	"github.com/oxislam/oxislam-go/logging"
	"github.com/oxislam/oxislam-go/rimage"
	"github.com/oxislam/oxislam-go/utils"
	"github.com/oxislam/oxislam-go/vision/keypoints"
)

const (
	// Flags.
	flagConfig     = "config"
	flagOutDir     = "out-dir"
	flagMaxDim     = "max-dim"
	flagSequential = "sequential"
	flagJSON       = "json"
	flagDebug      = "debug"
	flagLogFile    = "log-file"
)

// options are the parsed command line settings shared by every input image.
type options struct {
	outDir    string
	maxDim    int
	writeJSON bool
}

// detector bundles everything needed to process one image. It is safe to share between the
// goroutines processing different images.
type detector struct {
	pipeline *keypoints.Pipeline[rimage.Gray[float32], keypoints.FloatDescriptor]
	ev       utils.Evaluator
	logger   logging.Logger
}

func newDetector(cfg *keypoints.FeaturesConfig, ev utils.Evaluator, logger logging.Logger) (*detector, error) {
	pipeline, err := keypoints.NewFeaturePipeline(cfg, ev, logger)
	if err != nil {
		return nil, err
	}
	return &detector{pipeline: pipeline, ev: ev, logger: logger}, nil
}

// process runs detection on the image at path and writes <stem>_features.png, plus
// <stem>_features.json when requested.
func (d *detector) process(path string, opts options) error {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", path)
	}
	if opts.maxDim > 0 {
		img = imaging.Fit(img, opts.maxDim, opts.maxDim, imaging.Lanczos)
	}
	bounds := img.Bounds()
	d.logger.Infow("loaded image", "path", path, "width", bounds.Dx(), "height", bounds.Dy())

	rgb, err := rimage.NewRgbImageFromStd(img)
	if err != nil {
		return errors.Wrapf(err, "cannot convert %s", path)
	}
	gray := rimage.LumaImage(d.ev, rgb.View())

	start := time.Now()
	features, err := d.pipeline.Extract(gray.View())
	if err != nil {
		return errors.Wrapf(err, "cannot extract features from %s", path)
	}
	d.logger.Infow("processed image",
		"path", path,
		"features", len(features),
		"elapsed", time.Since(start),
	)
	if len(features) == 0 {
		d.logger.Warnw("no features found", "path", path)
	}

	return d.write(path, img, features, opts)
}

func (d *detector) write(path string, img image.Image, features []keypoints.Feature[keypoints.FloatDescriptor], opts options) error {
	dir := opts.outDir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	outPath := filepath.Join(dir, stem+"_features.png")

	kps := lo.Map(features, func(f keypoints.Feature[keypoints.FloatDescriptor], _ int) keypoints.Keypoint {
		return f.Keypoint
	})
	if err := keypoints.PlotKeypoints(img, kps, outPath); err != nil {
		return errors.Wrapf(err, "failed to save %s", outPath)
	}
	d.logger.Infow("saved annotated image", "path", outPath)

	if !opts.writeJSON {
		return nil
	}
	jsonPath := filepath.Join(dir, stem+"_features.json")
	out, err := json.MarshalIndent(features, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(jsonPath, out, 0o600); err != nil {
		return errors.Wrapf(err, "failed to save %s", jsonPath)
	}
	d.logger.Infow("saved features", "path", jsonPath)
	return nil
}

func run(c *cli.Context, logger logging.Logger) error {
	paths := c.Args().Slice()
	if len(paths) == 0 {
		return errors.New("at least one IMAGE is required")
	}

	cfg := keypoints.DefaultFeaturesConfig()
	if cfgPath := c.String(flagConfig); cfgPath != "" {
		var err error
		if cfg, err = keypoints.LoadFeaturesConfiguration(cfgPath); err != nil {
			return err
		}
	}

	var ev utils.Evaluator = utils.NewParallel()
	if c.Bool(flagSequential) {
		ev = utils.Sequential{}
	}

	opts := options{
		outDir:    c.String(flagOutDir),
		maxDim:    c.Int(flagMaxDim),
		writeJSON: c.Bool(flagJSON),
	}
	if opts.outDir != "" {
		if err := os.MkdirAll(opts.outDir, 0o750); err != nil {
			return err
		}
	}

	d, err := newDetector(cfg, ev, logger)
	if err != nil {
		return err
	}
	return processAll(c.Context, d, paths, opts)
}

// processAll processes every image concurrently and combines their errors.
func processAll(ctx context.Context, d *detector, paths []string, opts options) error {
	fs := lo.Map(paths, func(path string, _ int) utils.SimpleFunc {
		return func(context.Context) error {
			return d.process(path, opts)
		}
	})
	elapsed, err := utils.RunInParallel(ctx, fs)
	d.logger.Infow("done", "images", len(paths), "elapsed", elapsed)
	return err
}

func main() {
	var logger logging.Logger
	var logFile *logging.FileAppender

	app := &cli.App{
		Name:      "detect_features",
		Usage:     "detect Harris corners and describe them with image patches",
		ArgsUsage: "IMAGE...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load feature configuration from `FILE`",
			},
			&cli.StringFlag{
				Name:  flagOutDir,
				Usage: "write results to `DIR` instead of next to each image",
			},
			&cli.IntFlag{
				Name:  flagMaxDim,
				Usage: "downscale images so neither side exceeds `N` pixels (0 keeps the original size)",
			},
			&cli.BoolFlag{
				Name:  flagSequential,
				Usage: "evaluate every image stage on a single goroutine",
			},
			&cli.BoolFlag{
				Name:  flagJSON,
				Usage: "also write the features as JSON",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also write logs to `FILE`, rotated every 10MB",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger = logging.NewDebugLogger("detect_features")
			} else {
				logger = logging.NewLogger("detect_features")
			}
			if path := c.String(flagLogFile); path != "" {
				logFile = logging.NewFileAppender(path, 10, 3)
				logger.AddAppender(logFile)
			}
			return nil
		},
		After: func(c *cli.Context) error {
			if logFile == nil {
				return nil
			}
			return multierr.Combine(logger.Sync(), logFile.Close())
		},
		Action: func(c *cli.Context) error {
			return run(c, logger)
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
