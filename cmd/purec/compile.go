package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/foundry-zero/purec/internal/checker"
	"github.com/foundry-zero/purec/internal/config"
	"github.com/foundry-zero/purec/internal/logging"
	"github.com/foundry-zero/purec/internal/metrics"
	"github.com/foundry-zero/purec/internal/report"
)

const watchDebounce = 200 * time.Millisecond

type compileFlags struct {
	format      string
	quiet       bool
	strict      bool
	schemaOnly  bool
	watch       bool
	dump        string
	metricsFile string
	logLevel    string
	logFormat   string
}

var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	MaxDepth:                4,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

func newCompileCmd(a *app) *cobra.Command {
	f := &compileFlags{}
	cmd := &cobra.Command{
		Use:   "compile [flags] file-or-pattern...",
		Short: "Compile model documents and report errors and warnings",
		Long: `Compile each model document and print a report per file.

Arguments may be file paths or doublestar patterns such as 'models/**/*.json'.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.format != "text" && f.format != "json" {
				return fmt.Errorf("invalid format %q (use text or json)", f.format)
			}
			cfg, err := loadConfig(a.configPath, cmd, f)
			if err != nil {
				return err
			}
			files, err := expandInputs(args)
			if err != nil {
				return err
			}
			return a.compile(cfg, f, files)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.format, "format", "text", "Output format: text or json")
	fl.BoolVar(&f.quiet, "quiet", false, "Suppress output (exit code only)")
	fl.BoolVar(&f.strict, "strict", false, "Treat warnings as errors")
	fl.BoolVar(&f.schemaOnly, "schema-only", false, "Run schema validation only, skip compilation")
	fl.BoolVar(&f.watch, "watch", false, "Recompile when an input file changes")
	fl.StringVar(&f.dump, "dump", "", "Print the compiled element with this path")
	fl.StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file (overrides metrics.file)")
	fl.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error or silent (overrides logging.level)")
	fl.StringVar(&f.logFormat, "log-format", "", "Log format: text or json (overrides logging.format)")
	return cmd
}

// loadConfig loads the layered config and applies the flags that
// override it.
func loadConfig(path string, cmd *cobra.Command, f *compileFlags) (*config.Config, error) {
	cfg, err := config.NewLoader(nil).Load(path)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Logging.Format = f.logFormat
	}
	if cmd.Flags().Changed("metrics-file") {
		cfg.Metrics.File = f.metricsFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a *app) compile(cfg *config.Config, f *compileFlags, files []string) error {
	log, err := logging.New(a.stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	copts, err := cfg.CompilerOptions()
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	m := metrics.NewCompilerMetrics()
	m.MustRegister(registry)

	c, err := checker.NewChecker(checker.WithLogger(log), checker.WithMetrics(m))
	if err != nil {
		return err
	}
	opts := checker.CheckOptions{SchemaOnly: f.schemaOnly, Strict: f.strict, Compiler: copts}

	once := func() error {
		code, err := a.compileFiles(c, opts, f, files)
		if err != nil {
			return err
		}
		a.code = code
		if cfg.Metrics.File != "" {
			if err := metrics.WriteTextfile(registry, cfg.Metrics.File); err != nil {
				return fmt.Errorf("write metrics: %w", err)
			}
		}
		return nil
	}
	if err := once(); err != nil {
		return err
	}
	if !f.watch {
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	w, err := newFileWatcher(files, log)
	if err != nil {
		return err
	}
	defer w.Close()
	return w.Run(ctx, watchDebounce, func() {
		if err := once(); err != nil {
			log.Error("recompile failed", "error", err)
		}
	})
}

// compileFiles checks every file and prints its report. It returns the
// exit code for the run.
func (a *app) compileFiles(c *checker.Checker, opts checker.CheckOptions, f *compileFlags, files []string) (int, error) {
	code := 0
	dumped := false
	for _, path := range files {
		res := c.Check(path, opts)
		r := res.Report

		switch {
		case hasInputError(r):
			code = max(code, 2)
		case res.Failed(opts.Strict):
			code = max(code, 1)
		}

		if !f.quiet {
			if err := printReport(a.stdout, r, f.format); err != nil {
				return 2, err
			}
		}
		if f.dump != "" && res.Model != nil {
			if el, ok := res.Model.Element(f.dump); ok {
				dumpConfig.Fdump(a.stdout, el)
				dumped = true
			}
		}
	}
	if f.dump != "" && !dumped && !f.schemaOnly {
		fmt.Fprintf(a.stderr, "Error: element %q not found in any compiled file\n", f.dump)
		code = max(code, 2)
	}
	return code, nil
}

// hasInputError returns true if the report contains an INPUT or PARSER
// error.
func hasInputError(r *report.Report) bool {
	for _, e := range r.Errors {
		if e.Rule == report.ErrorTypeInput.String() || e.Rule == report.ErrorTypeParser.String() {
			return true
		}
	}
	return false
}

// printReport outputs the report in the specified format.
func printReport(w io.Writer, r *report.Report, format string) error {
	switch format {
	case "json":
		data, err := report.FormatJSON(r)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))
	case "text":
		fmt.Fprint(w, report.FormatText(r))
	}
	return nil
}
