// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"mzflow-core/msdata"
	"mzflow-core/trace"

	"mzflow/internal/common"
	"mzflow/internal/mzml"
)

// Config controls the per-sample detection stage.
type Config struct {
	Threads int // number of worker goroutines (>=1)
	Trace   trace.Config
	Refine  trace.RefineConfig
	Scorer  trace.Scorer // optional peak-shape scorer
	// ReadScans overrides the mzML reader; tests inject synthetic runs here.
	ReadScans func(path string) ([]msdata.Scan, error)
}

// Result is the outcome for one input file. Err is set when the sample
// failed; the run continues with the remaining samples.
type Result struct {
	Path     string
	SampleID string
	Set      *trace.SampleSet
	Warnings int
	Err      error
}

// ForEachSample runs detection and refinement over paths with a bounded
// worker pool and streams one Result per input file to visit, in input
// order. A sample that fails to parse or process yields a Result with
// Err set rather than aborting the run. It returns the first visit
// error or the context error on cancellation.
func ForEachSample(
	ctx context.Context,
	cfg Config,
	paths []string,
	visit func(Result) error,
) error {
	if cfg.Threads < 1 {
		cfg.Threads = 1
	}
	read := cfg.ReadScans
	if read == nil {
		read = mzml.Read
	}

	type job struct {
		idx  int
		path string
	}
	jobs := make(chan job, cfg.Threads*2)
	results := make([]Result, len(paths))
	done := make([]chan struct{}, len(paths))
	for i := range done {
		done[i] = make(chan struct{})
	}

	var wg sync.WaitGroup
	wg.Add(cfg.Threads)
	for w := 0; w < cfg.Threads; w++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case j, ok := <-jobs:
					if !ok {
						return
					}
					results[j.idx] = processOne(ctx, cfg, read, j.path)
					close(done[j.idx])
				}
			}
		}()
	}

	// Collector preserves input order regardless of completion order.
	var (
		cerr error
		cwg  sync.WaitGroup
	)
	cwg.Add(1)
	go func() {
		defer cwg.Done()
		for i := range paths {
			select {
			case <-ctx.Done():
				return
			case <-done[i]:
			}
			if cerr != nil {
				continue
			}
			if err := visit(results[i]); err != nil {
				cerr = err
			}
		}
	}()

feed:
	for i, p := range paths {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- job{idx: i, path: p}:
		}
	}

	close(jobs)
	wg.Wait()
	cwg.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return cerr
}

func processOne(ctx context.Context, cfg Config, read func(string) ([]msdata.Scan, error), path string) Result {
	res := Result{Path: path, SampleID: common.SampleID(path)}
	scans, err := read(path)
	if err != nil {
		res.Err = fmt.Errorf("read %s: %w", path, err)
		return res
	}
	builder := trace.NewBuilder(cfg.Trace)
	rois, err := builder.Build(ctx, msdata.SliceSource(scans))
	if err != nil {
		res.Err = fmt.Errorf("detect %s: %w", path, err)
		return res
	}
	set, warnings, err := trace.Refine(res.SampleID, rois, cfg.Refine, cfg.Scorer)
	if err != nil {
		res.Err = fmt.Errorf("refine %s: %w", path, err)
		return res
	}
	res.Set = set
	res.Warnings = warnings
	return res
}
