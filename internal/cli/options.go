// internal/cli/options.go
package cli

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"mzflow/internal/version"
)

// Options holds all CLI flags and arguments.
type Options struct {
	// Input
	Samples []string
	Params  string // YAML parameter file; defaults apply when empty

	// Parameter overrides (negative / empty = not set)
	MZTolerance    float64
	RTTolerance    float64
	IntensityFloor float64
	IonMode        string

	// Project / annotation
	Project string // sqlite project file; empty disables checkpointing
	Resume  bool   // reuse checkpointed samples from --project
	Library string // spectral library JSON; empty disables annotation

	// Performance
	Threads int

	// Output
	Output    string // text | json | jsonl | tsv
	ReportTSV string // optional TSV report path written alongside stdout

	// Logging
	Verbose bool
	Quiet   bool

	Version bool
}

// NewFlagSet returns a configured FlagSet with custom usage/help.
func NewFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(),
			`%s: LC-MS feature detection, alignment and annotation

Version: %s

Usage of %s:
`, name, version.Version, name)
		fs.PrintDefaults()
	}
	return fs
}

// Parse is the top-level call for CLI parsing.
func Parse() (Options, error) { return ParseArgs(flag.CommandLine, nil) }

// ParseArgs registers and parses all flags, returns an Options struct.
func ParseArgs(fs *flag.FlagSet, argv []string) (Options, error) {
	var opt Options
	var help bool

	var samples stringSlice
	fs.Var(&samples, "samples", "mzML sample file(s) (repeatable) [*]")
	fs.StringVar(&opt.Params, "params", "", "YAML parameter file (defaults when omitted)")

	fs.Float64Var(&opt.MZTolerance, "mz-tolerance", -1, "override m/z tolerance (Da) for detection and alignment [-1 = from params]")
	fs.Float64Var(&opt.RTTolerance, "rt-tolerance", -1, "override alignment rt tolerance (min) [-1 = from params]")
	fs.Float64Var(&opt.IntensityFloor, "intensity-threshold", -1, "override centroid intensity floor [-1 = from params]")
	fs.StringVar(&opt.IonMode, "ion-mode", "", "override ion mode: positive | negative [from params]")

	fs.StringVar(&opt.Project, "project", "", "sqlite project file for per-sample checkpoints []")
	fs.BoolVar(&opt.Resume, "resume", false, "reuse checkpointed samples from --project [false]")
	fs.StringVar(&opt.Library, "library", "", "spectral library JSON for annotation []")

	fs.IntVar(&opt.Threads, "threads", 0, "number of worker threads (0 = all CPUs) [0]")

	fs.StringVar(&opt.Output, "output", "text", "output format: text | json | jsonl | tsv [text]")
	fs.StringVar(&opt.ReportTSV, "report", "", "also write a TSV feature report to this path []")

	fs.BoolVar(&opt.Verbose, "verbose", false, "debug-level logging [false]")
	fs.BoolVar(&opt.Quiet, "quiet", false, "errors only [false]")

	fs.BoolVar(&opt.Version, "v", false, "print version and exit (shorthand) [false]")
	fs.BoolVar(&opt.Version, "version", false, "print version and exit [false]")
	fs.BoolVar(&help, "h", false, "show this help message (shorthand) [false]")

	if err := fs.Parse(argv); err != nil {
		return opt, err
	}
	if help {
		fs.Usage()
		return opt, flag.ErrHelp
	}
	if opt.Version {
		return opt, nil
	}
	opt.Samples = samples

	// Validation
	if len(opt.Samples) == 0 {
		return opt, errors.New("at least one --samples file is required")
	}
	if opt.Threads < 0 {
		return opt, errors.New("--threads must be >= 0")
	}
	switch opt.Output {
	case "text", "json", "jsonl", "tsv":
	default:
		return opt, fmt.Errorf("invalid --output %q", opt.Output)
	}
	if opt.IonMode != "" && opt.IonMode != "positive" && opt.IonMode != "negative" {
		return opt, fmt.Errorf("invalid --ion-mode %q", opt.IonMode)
	}
	if opt.Resume && opt.Project == "" {
		return opt, errors.New("--resume requires --project")
	}
	return opt, nil
}

// stringSlice allows repeatable string flags.
type stringSlice []string

func (s *stringSlice) String() string     { return strings.Join(*s, ",") }
func (s *stringSlice) Set(v string) error { *s = append(*s, v); return nil }
