package audio

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gopxl/beep"
	"gopkg.in/yaml.v2"

	"github.com/mtclare/Storm-Machine/asset"
	"github.com/mtclare/Storm-Machine/constant"
	"github.com/mtclare/Storm-Machine/core"
	"github.com/mtclare/Storm-Machine/sink"
)

// Config holds engine settings, loaded from YAML then overridden by env
type Config struct {
	Enabled       bool               `yaml:"enabled"`
	SampleRate    int                `yaml:"sample_rate"`
	Backend       string             `yaml:"backend"` // auto, speaker, pipe, offline, portaudio
	MasterVolume  float64            `yaml:"master_volume"`
	Levels        map[string]float64 `yaml:"levels"`
	Synthesis     string             `yaml:"synthesis"` // buffer or procedural
	LoaderWorkers int                `yaml:"loader_workers"`

	ThunderInterval   time.Duration `yaml:"thunder_interval"`
	LightningInterval time.Duration `yaml:"lightning_interval"`

	// Assets maps layer names to locators; empty uses asset.DefaultManifest
	Assets map[string][]string `yaml:"assets"`
}

// DefaultConfig returns the built-in settings
func DefaultConfig() *Config {
	return &Config{
		Enabled:           true,
		SampleRate:        constant.AudioSampleRate,
		Backend:           "auto",
		MasterVolume:      constant.DefaultMasterVolume,
		Levels:            map[string]float64{},
		Synthesis:         SynthesisBuffer,
		LoaderWorkers:     constant.DefaultLoaderWorkers,
		ThunderInterval:   constant.ThunderRollInterval,
		LightningInterval: constant.LightningRollInterval,
	}
}

// LoadConfig reads a YAML file over the defaults. On error the defaults
// are returned together with the error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate normalizes ranges and rejects unknown names
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		c.SampleRate = constant.AudioSampleRate
	}
	if c.LoaderWorkers <= 0 {
		c.LoaderWorkers = constant.DefaultLoaderWorkers
	}
	if c.ThunderInterval <= 0 {
		c.ThunderInterval = constant.ThunderRollInterval
	}
	if c.LightningInterval <= 0 {
		c.LightningInterval = constant.LightningRollInterval
	}
	if c.Backend == "" {
		c.Backend = "auto"
	}
	if c.Backend != "auto" && !slices.Contains(sink.Names(), c.Backend) {
		return fmt.Errorf("%w: %q", sink.ErrUnknownSink, c.Backend)
	}
	c.MasterVolume = clampUnit(c.MasterVolume)

	switch c.Synthesis {
	case "":
		c.Synthesis = SynthesisBuffer
	case SynthesisBuffer, SynthesisProcedural:
	default:
		return fmt.Errorf("unknown synthesis style %q", c.Synthesis)
	}

	for name, v := range c.Levels {
		if _, err := core.ParseLayer(name); err != nil {
			return err
		}
		c.Levels[name] = clampUnit(v)
	}
	for name := range c.Assets {
		if _, err := core.ParseLayer(name); err != nil {
			return err
		}
	}
	return nil
}

// ApplyEnv overrides fields from STORM_* environment variables.
// Malformed values are ignored.
func (c *Config) ApplyEnv() {
	// Check if audio is enabled
	if enabled := os.Getenv("STORM_AUDIO_ENABLED"); enabled != "" {
		if val, err := strconv.ParseBool(enabled); err == nil {
			c.Enabled = val
		}
	}

	// Load master volume (0-100 converted to 0.0-1.0)
	if volume := os.Getenv("STORM_MASTER_VOLUME"); volume != "" {
		if val, err := strconv.Atoi(volume); err == nil {
			c.MasterVolume = clampUnit(float64(val) / 100.0)
		}
	}

	// Load layer levels from JSON
	if levels := os.Getenv("STORM_LAYER_LEVELS"); levels != "" {
		var parsed map[string]float64
		if err := json.Unmarshal([]byte(levels), &parsed); err == nil {
			if c.Levels == nil {
				c.Levels = map[string]float64{}
			}
			for name, v := range parsed {
				if layer, err := core.ParseLayer(name); err == nil {
					c.Levels[layer.String()] = clampUnit(v)
				}
			}
		}
	}

	if backend := os.Getenv("STORM_BACKEND"); backend != "" {
		c.Backend = strings.ToLower(backend)
	}

	// Load sample rate
	if sampleRate := os.Getenv("STORM_SAMPLE_RATE"); sampleRate != "" {
		if val, err := strconv.Atoi(sampleRate); err == nil && val > 0 {
			c.SampleRate = val
		}
	}
}

// Format returns the stereo 16-bit stream format at the configured rate
func (c *Config) Format() beep.Format {
	return beep.Format{
		SampleRate:  beep.SampleRate(c.SampleRate),
		NumChannels: constant.AudioChannels,
		Precision:   constant.AudioPrecision,
	}
}

// LayerLevels returns the configured initial level per layer
func (c *Config) LayerLevels() [core.LayerCount]float64 {
	var out [core.LayerCount]float64
	for name, v := range c.Levels {
		if layer, err := core.ParseLayer(name); err == nil {
			out[layer] = clampUnit(v)
		}
	}
	return out
}

// Manifest returns the configured asset manifest or the default one
func (c *Config) Manifest() (asset.Manifest, error) {
	if len(c.Assets) == 0 {
		return asset.DefaultManifest(), nil
	}
	return asset.FromNames(c.Assets)
}
