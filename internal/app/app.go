// internal/app/app.go
package app

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"

	"go.uber.org/zap"

	"mzflow-core/align"
	"mzflow-core/annotate"
	"mzflow-core/group"
	"mzflow-core/trace"

	"mzflow/internal/cli"
	"mzflow/internal/common"
	"mzflow/internal/config"
	"mzflow/internal/logx"
	"mzflow/internal/output"
	"mzflow/internal/pipeline"
	"mzflow/internal/quality"
	"mzflow/internal/speclib"
	"mzflow/internal/store"
	"mzflow/internal/version"
	"mzflow/internal/writers"
	"mzflow/pkg/api"
)

// Exit codes: 0 features written, 1 no features, 2 usage error,
// 3 runtime error, 130 canceled.
func RunContext(parent context.Context, argv []string, stdout, stderr io.Writer) int {
	outw := bufio.NewWriter(stdout)
	defer func() { _ = outw.Flush() }()

	fs := cli.NewFlagSet("mzflow")
	fs.SetOutput(io.Discard)

	if len(argv) == 0 {
		fs.SetOutput(outw)
		fs.Usage()
		return flushUsage(outw, stderr, 0)
	}

	opts, err := cli.ParseArgs(fs, argv)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fs.SetOutput(outw)
			fs.Usage()
			return flushUsage(outw, stderr, 0)
		}
		_, _ = fmt.Fprintln(stderr, err)
		fs.SetOutput(outw)
		fs.Usage()
		return flushUsage(outw, stderr, 2)
	}

	if opts.Version {
		_, _ = fmt.Fprintf(outw, "mzflow version %s\n", version.Version)
		return flushUsage(outw, stderr, 0)
	}

	params := config.Default()
	if opts.Params != "" {
		params, err = config.Load(opts.Params)
		if err != nil {
			_, _ = fmt.Fprintln(stderr, err)
			return 2
		}
	}
	applyOverrides(&params, opts)
	if err := params.Validate(); err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 2
	}

	logger := logx.New(stderr, opts.Verbose, opts.Quiet)
	defer func() { _ = logger.Sync() }()

	runID := common.NewRunID()
	logger.Info("run started",
		zap.String("run_id", runID),
		zap.Int("samples", len(opts.Samples)),
		zap.String("ion_mode", params.IonMode))

	var proj *store.Store
	if opts.Project != "" {
		proj, err = store.Open(opts.Project, logger)
		if err != nil {
			logger.Error("project open failed", zap.Error(err))
			return 3
		}
		defer proj.Close()
		if err := proj.RecordRun(runID, params); err != nil {
			logger.Error("record run failed", zap.Error(err))
			return 3
		}
	}

	summary := api.RunSummaryV1{RunID: runID, Samples: len(opts.Samples)}
	sets, code := detectAll(parent, opts, params, logger, proj, runID, &summary)
	if code != 0 {
		return code
	}
	if len(sets) == 0 {
		if len(summary.Failures) > 0 {
			logger.Error("every sample failed")
			return 3
		}
		logger.Warn("no traces detected in any sample")
		return 1
	}

	table, err := align.Align(sets, align.Config{
		MZTolerance:     params.AlignMZTolerance,
		RTTolerance:     params.AlignRTTolerance,
		DiscardShortROI: params.DiscardShortROI,
	})
	if err != nil {
		logger.Error("alignment failed", zap.Error(err))
		return 3
	}
	summary.Features = len(table.Features)

	groups := group.Run(table, group.Config{
		PPRThreshold:   params.PPRThreshold,
		MZTolerance:    params.GroupMZTol,
		RTTolerance:    params.GroupRTTol,
		MaxIsotopeRank: params.MaxIsotopeRank,
		Adducts:        group.AdductsForMode(params.IonMode),
	})
	summary.Groups = len(groups)

	if opts.Library != "" {
		lib, err := speclib.Load(opts.Library)
		if err != nil {
			logger.Error("library load failed", zap.Error(err))
			return 3
		}
		lib.PrecursorTol = params.MZToleranceMS1
		lib.FragmentTol = params.MZToleranceMS2
		n, err := annotate.Run(table, lib, annotate.Config{
			TopK:          params.AnnotationTopK,
			MinSimilarity: params.MinSimilarity,
		})
		if err != nil {
			logger.Error("annotation failed", zap.Error(err))
			return 3
		}
		summary.Annotated = n
	}

	if proj != nil {
		if err := proj.SaveTable(runID, output.ToAPITable(table)); err != nil {
			logger.Error("table checkpoint failed", zap.Error(err))
			return 3
		}
	}

	in, errCh := writers.StartFeatureWriter(outw, opts.Output, table.Samples, 64)
	for _, f := range table.Features {
		in <- f
	}
	close(in)
	if err := <-errCh; err != nil {
		logger.Error("write failed", zap.Error(err))
		return 3
	}
	if err := outw.Flush(); err != nil && !writers.IsBrokenPipe(err) {
		logger.Error("flush failed", zap.Error(err))
		return 3
	}

	if opts.ReportTSV != "" {
		if err := writeReport(opts.ReportTSV, table); err != nil {
			logger.Error("report failed", zap.Error(err))
			return 3
		}
	}

	logger.Info("run finished",
		zap.String("run_id", runID),
		zap.Int("features", summary.Features),
		zap.Int("groups", summary.Groups),
		zap.Int("annotated", summary.Annotated),
		zap.Int("failed_samples", len(summary.Failures)),
		zap.Int("empty_traces", summary.EmptyTraces))

	if len(table.Features) == 0 {
		return 1
	}
	return 0
}

// detectAll runs (or resumes) per-sample detection and returns the
// refined sets in input order. Failed samples are logged and skipped.
func detectAll(
	parent context.Context,
	opts cli.Options,
	params config.Params,
	logger *zap.Logger,
	proj *store.Store,
	runID string,
	summary *api.RunSummaryV1,
) ([]*trace.SampleSet, int) {
	ordered := make([]*trace.SampleSet, len(opts.Samples))
	var pending []string
	slot := make(map[string]int, len(opts.Samples))
	for i, path := range opts.Samples {
		slot[path] = i
		if opts.Resume && proj != nil {
			cached, ok, err := proj.LoadSampleSet(common.SampleID(path))
			if err != nil {
				logger.Error("checkpoint load failed", zap.String("path", path), zap.Error(err))
				return nil, 3
			}
			if ok {
				logger.Info("sample resumed from checkpoint", zap.String("sample", cached.SampleID))
				ordered[i] = output.FromAPISampleSet(cached)
				continue
			}
		}
		pending = append(pending, path)
	}

	threads := opts.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	pcfg := pipeline.Config{
		Threads: threads,
		Trace: trace.Config{
			MZTolerance:        params.MZToleranceMS1,
			IntensityThreshold: params.IntensityThreshold,
			MaxGapScans:        params.MaxGapScans,
		},
		Refine: trace.RefineConfig{
			MinPoints: params.MinPoints,
			CutTraces: params.CutLongTraces,
		},
		Scorer: quality.NewGaussianScorer(),
	}

	err := pipeline.ForEachSample(parent, pcfg, pending, func(r pipeline.Result) error {
		if r.Err != nil {
			logger.Warn("sample failed", zap.String("sample", r.SampleID), zap.Error(r.Err))
			summary.Failures = append(summary.Failures, api.SampleFailureV1{
				SampleID: r.SampleID,
				Error:    r.Err.Error(),
			})
			return nil
		}
		summary.EmptyTraces += r.Warnings
		logger.Info("sample detected",
			zap.String("sample", r.SampleID),
			zap.Int("traces", len(r.Set.ROIs)),
			zap.Int("empty_traces", r.Warnings))
		if proj != nil {
			if err := proj.SaveSampleSet(runID, output.ToAPISampleSet(r.Set)); err != nil {
				return err
			}
		}
		ordered[slot[r.Path]] = r.Set
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || parent.Err() != nil {
			logger.Warn("run canceled")
			return nil, 130
		}
		logger.Error("detection failed", zap.Error(err))
		return nil, 3
	}

	sets := make([]*trace.SampleSet, 0, len(ordered))
	for _, s := range ordered {
		if s != nil {
			sets = append(sets, s)
		}
	}
	return sets, 0
}

func applyOverrides(p *config.Params, opts cli.Options) {
	if opts.MZTolerance >= 0 {
		p.MZToleranceMS1 = opts.MZTolerance
		p.AlignMZTolerance = opts.MZTolerance
		p.GroupMZTol = opts.MZTolerance
	}
	if opts.RTTolerance >= 0 {
		p.AlignRTTolerance = opts.RTTolerance
	}
	if opts.IntensityFloor >= 0 {
		p.IntensityThreshold = opts.IntensityFloor
	}
	if opts.IonMode != "" {
		p.IonMode = opts.IonMode
	}
}

func writeReport(path string, t *align.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := output.WriteTSV(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func flushUsage(outw *bufio.Writer, stderr io.Writer, code int) int {
	if err := outw.Flush(); writers.IsBrokenPipe(err) {
		return 0
	} else if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 3
	}
	return code
}

func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}
