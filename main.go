package main

import (
	"flag"
	"fmt"
	"log"
	"math"
)

// Version is set at build time via -ldflags
var Version = "dev"

var (
	configFile = flag.String("config", "", "Path to optional YAML configuration file")
	framesDir  = flag.String("frames", "", "Directory of decoded frame images, one file per frame")
	inputFile  = flag.String("input", "", "Input segment collection JSON")
	outputFile = flag.String("output", "", "Output segment collection JSON (default: input name with [heal] label)")
	binSize    = flag.Float64("binsize", 2, "Bin size in pixels for determining when traces overlap")
	thresh     = flag.Float64("thresh", 0, "Minimum signal per pixel for a valid gap-crossing curve")
	maxDist    = flag.Float64("maxdist", 60, "Maximum length in pixels a gap crossing should traverse")
	maxAngle   = flag.Float64("maxangle", 20, "Maximum angle change for a gap crossing, in degrees")
	border     = flag.Float64("border", 10, "Image margin in pixels excluded from gap closing")
	workers    = flag.Int("workers", 1, "Number of frames processed concurrently")
	renderDir  = flag.String("render", "", "Optional directory for per-frame diagnostic PNGs")
)

func main() {
	flag.Parse()
	fmt.Printf("whiskmend version: %s\n", Version)

	// Flags explicitly set on the command line override the config file.
	explicit := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	app := NewApp()
	if err := app.ApplyOptions(AppOptions{
		ConfigFile: *configFile,
		FramesDir:  *framesDir,
		Input:      *inputFile,
		Output:     *outputFile,
		BinSize:    *binSize,
		Thresh:     *thresh,
		MaxDist:    *maxDist,
		MaxAngle:   *maxAngle * math.Pi / 180, // degrees on the CLI, radians inside
		Border:     *border,
		Workers:    *workers,
		RenderDir:  *renderDir,
		Explicit:   explicit,
	}); err != nil {
		log.Fatalf("Error: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
