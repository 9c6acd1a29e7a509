// Package heal reconciles whisker-trace segments produced by an upstream
// tracer. It resolves spatially overlapping duplicate traces and bridges
// occlusion gaps between segment endpoints with synthesized cubic curves.
package heal

import (
	"context"
	"log"
	"sort"
	"sync"
)

// FixAll heals every frame of the collection in place: duplicate traces are
// resolved to a fixed point, then qualifying gaps are bridged. Frames are
// independent, so they are distributed over Params.Workers goroutines; each
// worker owns its collision tables and no frame state is shared.
//
// A frame whose image cannot be provided is reported and skipped without
// aborting the batch. Cancellation is checked between frames; FixAll
// returns the context error once in-flight frames finish.
func FixAll(ctx context.Context, frames FrameSource, coll Collection, p Params) error {
	height, width := frames.Shape()

	fids := make([]int, 0, len(coll))
	for fid := range coll {
		fids = append(fids, fid)
	}
	sort.Ints(fids)

	workers := p.Workers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for fid := range jobs {
				if ctx.Err() != nil {
					continue
				}
				healFrame(frames, fid, len(fids), coll[fid], height, width, p)
			}
		}()
	}

	for _, fid := range fids {
		if ctx.Err() != nil {
			break
		}
		jobs <- fid
	}
	close(jobs)
	wg.Wait()

	return ctx.Err()
}

// healFrame runs the full per-frame pipeline: overlap resolution to a fixed
// point, then gap closing against the frame image.
func healFrame(frames FrameSource, fid, total int, fs *FrameSet, height, width int, p Params) {
	before := fs.Len()
	FixFrame(fs, height, width, p)

	im, err := frames.Frame(fid)
	if err != nil {
		log.Printf("frame %5d of %5d: %v; gap closing skipped", fid, total, err)
		return
	}
	bridged := CloseGaps(im, fs, p)
	log.Printf("frame %5d of %5d: %d -> %d segments, %d gap(s) bridged",
		fid, total, before, fs.Len(), bridged)
}
