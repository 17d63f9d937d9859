package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/MeKo-Tech/barscan/internal/utils"
)

// regionJob is one detected region waiting for its sweep.
type regionJob struct {
	index  int
	region utils.Region
}

// regionOutcome is what a region contributed. A nil sweep result is "none".
type regionOutcome struct {
	index     int
	region    utils.Region
	sweep     Sweep
	cancelled bool
	err       error
}

// decodeRegions sweeps every region on a bounded worker pool and returns
// outcomes indexed like regions. Angles within a region always run
// sequentially on one worker.
func (p *Pipeline) decodeRegions(ctx context.Context, img image.Image, regions []utils.Region,
	rd *RotationDecoder, step float64,
) []regionOutcome {
	outcomes := make([]regionOutcome, len(regions))
	if len(regions) == 0 {
		return outcomes
	}

	progress := p.cfg.Parallel.ProgressCallback
	if progress != nil {
		progress.OnStart(len(regions))
		defer progress.OnComplete()
	}

	workers := min(p.cfg.workers(), len(regions))
	jobs := make(chan regionJob, len(regions))
	results := make(chan regionOutcome, len(regions))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				results <- p.decodeRegion(ctx, img, job, rd, step)
			}
		}()
	}

	for i, r := range regions {
		jobs <- regionJob{index: i, region: r}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	done := 0
	for oc := range results {
		outcomes[oc.index] = oc
		done++
		if progress != nil {
			if oc.err != nil {
				progress.OnError(oc.index, oc.err)
			}
			progress.OnProgress(done, len(regions))
		}
	}
	return outcomes
}

// decodeRegion crops one region and sweeps it. Every failure, including a
// panic inside the decoder, becomes a "none" outcome.
func (p *Pipeline) decodeRegion(ctx context.Context, img image.Image, job regionJob,
	rd *RotationDecoder, step float64,
) (oc regionOutcome) {
	oc = regionOutcome{index: job.index, region: job.region}
	defer func() {
		if r := recover(); r != nil {
			oc.sweep.Result = nil
			oc.err = fmt.Errorf("panic: %v", r)
			slog.Error("Region decode panicked", "region", job.index, "panic", r, "stack", string(debug.Stack()))
		}
	}()

	if err := ctx.Err(); err != nil {
		oc.cancelled = true
		return oc
	}

	crop, clamped, err := utils.CropRegion(img, job.region)
	if err != nil {
		oc.err = err
		slog.Debug("Region crop failed", "region", job.index, "bounds", job.region.String(), "error", err)
		return oc
	}
	oc.region = clamped

	sweep, err := rd.DecodeWithRotation(ctx, crop, step)
	oc.sweep = sweep
	if err != nil {
		if ctx.Err() != nil {
			oc.cancelled = true
			oc.sweep.Result = nil
		}
		oc.err = err
		slog.Debug("Region sweep stopped", "region", job.index, "angles_tried", sweep.AnglesTried, "error", err)
		return oc
	}
	if sweep.Result == nil && sweep.Failures == sweep.AnglesTried && sweep.AnglesTried > 0 {
		oc.err = fmt.Errorf("decoder failed at all %d angles", sweep.AnglesTried)
		slog.Debug("Region decode failed", "region", job.index, "error", oc.err)
	}
	return oc
}
