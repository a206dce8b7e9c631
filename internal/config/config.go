// Package config holds the pipeline defaults of the stereo MCP server.
package config

import (
	"encoding/json"
	"os"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/ironsheep/stereo-objects-mcp/internal/colorparams"
	"github.com/ironsheep/stereo-objects-mcp/internal/detection"
	"github.com/ironsheep/stereo-objects-mcp/internal/stereo"
)

// Config holds the defaults used when a tool call does not override them.
type Config struct {
	CalibrationPath string `json:"calibration_path"`
	ColorParamsPath string `json:"color_params_path"`

	// Segmentation.
	MinPixels        int     `json:"min_pixels"`
	MaxPixels        int     `json:"max_pixels"`
	ROIFactor        float64 `json:"roi_factor"`
	MorphologyRadius int     `json:"morphology_radius"`
	Parallel         bool    `json:"parallel"`

	// Region filters. Zero values disable each check.
	MinFill           float64 `json:"min_fill"`
	MinAspect         float64 `json:"min_aspect"`
	TextureMinDensity float64 `json:"texture_min_density"`
	TexturedDensity   float64 `json:"textured_density"`

	// Stereo matching.
	MinZ                float64 `json:"min_z"`
	MaxZ                float64 `json:"max_z"`
	MaxEpipolarDistance float64 `json:"max_epipolar_distance"`
	Rectified           bool    `json:"rectified"`
	UseDistortion       bool    `json:"use_distortion"`
	// Workspace, when set, drops 3D objects outside the box.
	Workspace *Workspace `json:"workspace,omitempty"`

	// Classifiers.
	ClassifierBucketSize  int     `json:"classifier_bucket_size"`
	ClassifierMaxLeaves   int     `json:"classifier_max_leaves"`
	ClassifierMaxDistance float64 `json:"classifier_max_distance"`
	OCREnabled            bool    `json:"ocr_enabled"`
	OCRLanguage           string  `json:"ocr_language"`
	OCRMinConfidence      float64 `json:"ocr_min_confidence"`

	LogLevel string `json:"log_level"`
}

// Workspace is an axis-aligned box in calibration units, bounds included.
type Workspace struct {
	Min [3]float64 `json:"min"`
	Max [3]float64 `json:"max"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		MinPixels:            50,
		ROIFactor:            detection.ROIDisabled,
		MorphologyRadius:     1,
		MinZ:                 100,
		MaxZ:                 5000,
		MaxEpipolarDistance:  5,
		ClassifierBucketSize: 8,
		ClassifierMaxLeaves:  32,
		OCRLanguage:          "eng",
		OCRMinConfidence:     0.5,
		LogLevel:             "info",
	}
}

// Validate reports every inconsistent setting.
func (c Config) Validate() error {
	var err error
	if c.MinPixels < 0 {
		err = multierr.Append(err, errors.Errorf("min_pixels must not be negative, got %d", c.MinPixels))
	}
	if c.MaxPixels > 0 && c.MaxPixels < c.MinPixels {
		err = multierr.Append(err, errors.Errorf("max_pixels %d is below min_pixels %d", c.MaxPixels, c.MinPixels))
	}
	if c.MorphologyRadius < 0 {
		err = multierr.Append(err, errors.Errorf("morphology_radius must not be negative, got %d", c.MorphologyRadius))
	}
	if c.MaxZ <= c.MinZ {
		err = multierr.Append(err, errors.Errorf("max_z %g must exceed min_z %g", c.MaxZ, c.MinZ))
	}
	if c.MaxEpipolarDistance <= 0 {
		err = multierr.Append(err, errors.Errorf("max_epipolar_distance must be positive, got %g", c.MaxEpipolarDistance))
	}
	if c.MinFill < 0 || c.MinFill > 1 {
		err = multierr.Append(err, errors.Errorf("min_fill must be within [0,1], got %g", c.MinFill))
	}
	if c.MinAspect < 0 || c.MinAspect > 1 {
		err = multierr.Append(err, errors.Errorf("min_aspect must be within [0,1], got %g", c.MinAspect))
	}
	if c.TextureMinDensity < 0 || c.TexturedDensity < 0 {
		err = multierr.Append(err, errors.New("texture densities must not be negative"))
	}
	if w := c.Workspace; w != nil {
		for i, axis := range []string{"x", "y", "z"} {
			if w.Min[i] > w.Max[i] {
				err = multierr.Append(err, errors.Errorf("workspace %s range [%g,%g] is empty", axis, w.Min[i], w.Max[i]))
			}
		}
	}
	if c.ClassifierBucketSize <= 0 {
		err = multierr.Append(err, errors.Errorf("classifier_bucket_size must be positive, got %d", c.ClassifierBucketSize))
	}
	if c.OCRMinConfidence < 0 || c.OCRMinConfidence > 1 {
		err = multierr.Append(err, errors.Errorf("ocr_min_confidence must be within [0,1], got %g", c.OCRMinConfidence))
	}
	return err
}

// LoadFile reads a JSON configuration. Missing fields keep their defaults;
// unknown fields are an error.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return cfg, errors.Wrap(err, "opening config")
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Default(), errors.Wrapf(err, "parsing config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return Default(), errors.Wrapf(err, "invalid config %s", path)
	}
	return cfg, nil
}

// FinalizeOptions returns the stereo matching options for color.
func (c Config) FinalizeOptions(color colorparams.Color) stereo.FinalizeOptions {
	return stereo.FinalizeOptions{
		MinZ:                c.MinZ,
		MaxZ:                c.MaxZ,
		Rectified:           c.Rectified,
		Color:               color,
		MaxEpipolarDistance: c.MaxEpipolarDistance,
		UseDistortion:       c.UseDistortion,
	}
}

// RegionFilter returns the region filter described by the configuration, or
// nil when every region check is disabled.
func (c Config) RegionFilter() detection.RegionFilter {
	var chain detection.FilterChain
	if c.MinFill > 0 || c.MinAspect > 0 {
		chain = append(chain, detection.SizeFilter{MinFill: c.MinFill, MinAspect: c.MinAspect})
	}
	if c.TextureMinDensity > 0 || c.TexturedDensity > 0 {
		chain = append(chain, detection.TextureFilter{
			MinDensity:      c.TextureMinDensity,
			TexturedDensity: c.TexturedDensity,
		})
	}
	if len(chain) == 0 {
		return nil
	}
	return chain
}

// EntryFilter returns the 3D entry filter described by the configuration, or
// nil when no workspace is set.
func (c Config) EntryFilter() stereo.EntryFilter {
	if c.Workspace == nil {
		return nil
	}
	w := c.Workspace
	return stereo.WorkspaceFilter{
		Min: r3.Vector{X: w.Min[0], Y: w.Min[1], Z: w.Min[2]},
		Max: r3.Vector{X: w.Max[0], Y: w.Max[1], Z: w.Max[2]},
	}
}
