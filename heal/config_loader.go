package heal

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Params holds the tunable thresholds for overlap resolution and gap closing.
// All distances are in pixels of the source video; angles are in radians.
type Params struct {
	// BinSize is the collision grid cell size in pixels.
	BinSize float64 `yaml:"binSize" json:"binSize"`

	// SignalPerPixel is the minimum photometric score a gap-crossing curve
	// must reach to be considered a valid bridge.
	SignalPerPixel float64 `yaml:"signalPerPixel" json:"signalPerPixel"`

	// MaxDist is the maximum endpoint distance a bridge may traverse.
	MaxDist float64 `yaml:"maxDist" json:"maxDist"`

	// MaxAngle is the maximum angular deviation (radians) between an
	// endpoint tangent and the line connecting the two ends.
	MaxAngle float64 `yaml:"maxAngle" json:"maxAngle"`

	// OverlapThresh is the fraction of a segment's length that a mutual
	// overlap must cover for the pair to count as duplicate traces.
	OverlapThresh float64 `yaml:"overlapThresh" json:"overlapThresh"`

	// Border is the margin in pixels inside the image edge; ends within the
	// margin are never offered as gap-closing candidates.
	Border float64 `yaml:"border" json:"border"`

	// Thick is the perpendicular fringe offset in pixels used by the
	// photometric bridge score.
	Thick float64 `yaml:"thick" json:"thick"`

	// MinScore is the minimum tracer score an end must carry to qualify as
	// a gap-closing candidate.
	MinScore float64 `yaml:"minScore" json:"minScore"`

	// Workers is the number of frames processed concurrently by the batch
	// driver. 1 reproduces strictly sequential behavior.
	Workers int `yaml:"workers" json:"workers"`
}

// DefaultParams returns the stock thresholds: 2 px bins, 60 px maximum
// gap, 20 degree maximum deviation, 80% overlap completeness.
func DefaultParams() Params {
	return Params{
		BinSize:        2,
		SignalPerPixel: 0,
		MaxDist:        60,
		MaxAngle:       20 * math.Pi / 180,
		OverlapThresh:  0.8,
		Border:         10,
		Thick:          2,
		MinScore:       0,
		Workers:        1,
	}
}

// Config is the on-disk configuration file.
type Config struct {
	// FramesDir is the directory holding one decoded grayscale image per
	// frame, ordered by filename.
	FramesDir string `yaml:"framesDir" json:"framesDir"`

	// Input and Output are segment-collection JSON paths.
	Input  string `yaml:"input" json:"input"`
	Output string `yaml:"output" json:"output"`

	Params Params `yaml:"params" json:"params"`
}

// LoadConfig loads and validates a YAML configuration file. Zero-valued
// threshold fields are filled from DefaultParams.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	def := DefaultParams()
	p := &config.Params
	if p.BinSize == 0 {
		p.BinSize = def.BinSize
	}
	if p.MaxDist == 0 {
		p.MaxDist = def.MaxDist
	}
	if p.MaxAngle == 0 {
		p.MaxAngle = def.MaxAngle
	}
	if p.OverlapThresh == 0 {
		p.OverlapThresh = def.OverlapThresh
	}
	if p.Border == 0 {
		p.Border = def.Border
	}
	if p.Thick == 0 {
		p.Thick = def.Thick
	}
	if p.Workers == 0 {
		p.Workers = def.Workers
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// SaveConfig writes the configuration to a YAML file.
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks threshold ranges.
func (p *Params) Validate() error {
	if p.BinSize <= 0 {
		return fmt.Errorf("binSize must be positive, got %g", p.BinSize)
	}
	if p.MaxDist < 0 {
		return fmt.Errorf("maxDist must be non-negative, got %g", p.MaxDist)
	}
	if p.OverlapThresh <= 0 || p.OverlapThresh > 1 {
		return fmt.Errorf("overlapThresh must be in (0, 1], got %g", p.OverlapThresh)
	}
	if p.Border < 0 {
		return fmt.Errorf("border must be non-negative, got %g", p.Border)
	}
	if p.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", p.Workers)
	}
	return nil
}
