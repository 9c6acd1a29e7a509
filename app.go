package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/kwv/whiskmend/heal"
)

// AppOptions carries the resolved CLI options into the App.
type AppOptions struct {
	ConfigFile string
	FramesDir  string
	Input      string
	Output     string
	BinSize    float64
	Thresh     float64
	MaxDist    float64
	MaxAngle   float64 // radians
	Border     float64
	Workers    int
	RenderDir  string

	// Explicit marks flags the user set on the command line; only those
	// override values from the config file.
	Explicit map[string]bool
}

// App encapsulates the application state and dependencies
type App struct {
	Params    heal.Params
	FramesDir string
	Input     string
	Output    string
	RenderDir string
}

// NewApp creates a new App instance
func NewApp() *App {
	return &App{Params: heal.DefaultParams()}
}

// ApplyOptions merges the config file (when given) with explicit CLI
// overrides and validates the result.
func (a *App) ApplyOptions(opts AppOptions) error {
	if opts.ConfigFile != "" {
		cfg, err := heal.LoadConfig(opts.ConfigFile)
		if err != nil {
			return err
		}
		a.Params = cfg.Params
		a.FramesDir = cfg.FramesDir
		a.Input = cfg.Input
		a.Output = cfg.Output
	}

	if opts.Explicit["frames"] || a.FramesDir == "" {
		a.FramesDir = opts.FramesDir
	}
	if opts.Explicit["input"] || a.Input == "" {
		a.Input = opts.Input
	}
	if opts.Explicit["output"] || a.Output == "" {
		a.Output = opts.Output
	}
	a.RenderDir = opts.RenderDir

	if opts.Explicit["binsize"] {
		a.Params.BinSize = opts.BinSize
	}
	if opts.Explicit["thresh"] {
		a.Params.SignalPerPixel = opts.Thresh
	}
	if opts.Explicit["maxdist"] {
		a.Params.MaxDist = opts.MaxDist
	}
	if opts.Explicit["maxangle"] {
		a.Params.MaxAngle = opts.MaxAngle
	}
	if opts.Explicit["border"] {
		a.Params.Border = opts.Border
	}
	if opts.Explicit["workers"] {
		a.Params.Workers = opts.Workers
	}

	if a.FramesDir == "" {
		return fmt.Errorf("a frame directory is required (--frames or framesDir in config)")
	}
	if a.Input == "" {
		return fmt.Errorf("an input segment file is required (--input or input in config)")
	}
	if a.Output == "" {
		a.Output = labelOutput(a.Input, "heal")
	}
	return a.Params.Validate()
}

// labelOutput derives a destination name from the source name by inserting
// a bracketed label before the extension: traces.json -> traces[heal].json.
func labelOutput(src, label string) string {
	ext := filepath.Ext(src)
	return strings.TrimSuffix(src, ext) + "[" + label + "]" + ext
}

// Run executes the batch: load segments, heal every frame, save results,
// and optionally write diagnostic renders.
func (a *App) Run() error {
	frames, err := heal.NewDirSource(a.FramesDir)
	if err != nil {
		return err
	}

	coll, err := heal.LoadSegments(a.Input)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := heal.FixAll(ctx, frames, coll, a.Params); err != nil {
		return err
	}

	if err := heal.SaveSegments(a.Output, coll); err != nil {
		return err
	}

	if a.RenderDir != "" {
		if err := a.renderAll(frames, coll); err != nil {
			return err
		}
	}
	return nil
}

// renderAll writes one diagnostic PNG per healed frame.
func (a *App) renderAll(frames heal.FrameSource, coll heal.Collection) error {
	if err := os.MkdirAll(a.RenderDir, 0755); err != nil {
		return fmt.Errorf("creating render directory: %w", err)
	}
	height, width := frames.Shape()
	r := heal.NewFrameRenderer()

	for fid, fs := range coll {
		ends := heal.FilterEnds(fs, a.Params.MinScore, height, width, a.Params.Border)
		path := filepath.Join(a.RenderDir, fmt.Sprintf("frame-%05d.png", fid))
		fh, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		err = r.RenderToPNG(fh, width, height, fs, ends, nil)
		if cerr := fh.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("rendering frame %d: %w", fid, err)
		}
	}
	return nil
}
