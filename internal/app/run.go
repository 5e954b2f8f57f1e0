package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gi8lino/issuetab/internal/config"
	"github.com/gi8lino/issuetab/internal/fetcher"
	"github.com/gi8lino/issuetab/internal/flag"
	"github.com/gi8lino/issuetab/internal/flatten"
	"github.com/gi8lino/issuetab/internal/hash"
	"github.com/gi8lino/issuetab/internal/logging"
	"github.com/gi8lino/issuetab/internal/providers"
	"github.com/gi8lino/issuetab/internal/report"
	"github.com/gi8lino/issuetab/internal/sink"
	"github.com/gi8lino/issuetab/internal/source"
	"github.com/gi8lino/issuetab/internal/utils"

	"github.com/containeroo/tinyflags"
)

// Run executes one flattening pass: parse flags, build the source and
// sink, drain the stream and write the run report.
func Run(ctx context.Context, version, commit string, args []string, stdout, stderr io.Writer, getEnv func(string) string) error {
	// Create a new context that listens for interrupt signals
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Parse command-line flags
	flags, err := flag.ParseArgs(version, args, stderr, getEnv)
	if err != nil {
		if tinyflags.IsHelpRequested(err) || tinyflags.IsVersionRequested(err) {
			fmt.Fprint(stderr, err.Error()) // nolint:errcheck
			return nil
		}
		return fmt.Errorf("parsing error: %w", err)
	}

	// Setup logger
	logger := logging.SetupLogger(flags.LogFormat, flags.Debug, stderr)

	logger.Info("Starting issuetab",
		"version", version,
		"commit", commit,
	)

	// Load config; only the fetch source requires one.
	var cfg config.PipelineConfig
	if flags.Config != "" {
		cfg, err = config.LoadConfig(flags.Config)
		if err != nil {
			return fmt.Errorf("loading config error: %w", err)
		}
		if err := config.ValidateConfig(&cfg); err != nil {
			return fmt.Errorf("validating config error: %w", err)
		}
	}

	proj, err := buildProjection(cfg)
	if err != nil {
		return fmt.Errorf("projection error: %w", err)
	}

	// Flag beats config for the exploded array field.
	arrayField := flags.ArrayField
	if arrayField == "" {
		arrayField = cfg.ArrayField
	}

	src, closeSource, label, err := buildReader(flags, cfg, logger)
	if err != nil {
		return fmt.Errorf("source error: %w", err)
	}

	out, closeOutput, err := openOutput(flags.Output, stdout)
	if err != nil {
		closeSource() // nolint:errcheck
		return fmt.Errorf("output error: %w", err)
	}

	w, err := sink.New(sink.Format(flags.Format), out, sink.Options{
		Columns:      proj.ColumnNames(),
		NoHeader:     flags.NoHeader,
		TemplateFile: flags.TemplateFile,
	})
	if err != nil {
		closeSource() // nolint:errcheck
		closeOutput() // nolint:errcheck
		return fmt.Errorf("output error: %w", err)
	}

	if flags.NoCache {
		ctx = fetcher.WithNoCache(ctx)
	}

	fl := flatten.New(proj, arrayField, flatten.Policy(flags.OnParseError), logger)

	rep := report.New(label, flags.Format)
	if h, err := hash.Any(proj.Specs()); err == nil {
		rep.ProjectionHash = h
	}

	logger.Debug("Run parameters",
		"source", flags.Source,
		"format", flags.Format,
		"workers", flags.Workers,
		"onParseError", flags.OnParseError,
	)

	// Drain the stream into the sink.
	var runErr error
	for row, err := range fl.FlattenParallel(ctx, src.Records(ctx), flags.Workers) {
		if err != nil {
			runErr = err
			break
		}
		if err := w.Write(row); err != nil {
			runErr = fmt.Errorf("write output: %w", err)
			break
		}
	}

	// Flush and release resources; the first failure wins.
	if err := w.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("flush output: %w", err)
	}
	if err := closeOutput(); err != nil && runErr == nil {
		runErr = fmt.Errorf("close output: %w", err)
	}
	if err := closeSource(); err != nil && runErr == nil {
		runErr = fmt.Errorf("close source: %w", err)
	}

	rep.Finish(fl.Stats().Snapshot(), runErr)
	if runErr != nil {
		logger.Error("Run failed", append([]any{"error", runErr.Error()}, rep.LogArgs()...)...)
	} else {
		logger.Info("Run complete", rep.LogArgs()...)
	}

	if flags.Report != "" {
		if err := rep.WriteFile(flags.Report); err != nil {
			logger.Error("write report error", "error", err)
			if runErr == nil {
				runErr = err
			}
		}
	}

	return runErr
}

// buildProjection compiles configured columns, falling back to the
// canonical issue projection.
func buildProjection(cfg config.PipelineConfig) (flatten.Projection, error) {
	if len(cfg.Columns) == 0 {
		return flatten.DefaultProjection(), nil
	}
	specs := make([]flatten.ColumnSpec, len(cfg.Columns))
	for i, c := range cfg.Columns {
		specs[i] = flatten.ColumnSpec{Name: c.Name, Path: c.Path}
	}
	return flatten.NewProjection(specs)
}

// buildReader constructs the record source selected by --source. The
// closer releases any underlying handle; label names the source for
// the run report.
func buildReader(flags flag.Options, cfg config.PipelineConfig, logger *slog.Logger) (source.Reader, func() error, string, error) {
	noClose := func() error { return nil }

	switch flags.Source {
	case "lines":
		r, name, closeFn, err := openInput(flags.Input)
		if err != nil {
			return nil, nil, "", err
		}
		return source.NewLines(r, name, flags.RawField), closeFn, name, nil

	case "csv":
		r, name, closeFn, err := openInput(flags.Input)
		if err != nil {
			return nil, nil, "", err
		}
		return source.NewCSV(r, name, flags.Column), closeFn, name, nil

	case "sqlite":
		t, err := source.NewTable(flags.DBPath, flags.Table, flags.Column)
		if err != nil {
			return nil, nil, "", err
		}
		return t, noClose, fmt.Sprintf("%s:%s", flags.DBPath, flags.Table), nil

	case "fetch":
		reg, err := providers.BuildRegistry(cfg.Providers)
		if err != nil {
			return nil, nil, "", err
		}
		for name, p := range reg {
			logger.Debug("provider auth",
				"provider", name,
				"header", utils.ObfuscateHeader(p.AuthHeader()),
			)
		}
		src, err := providers.BuildSource(reg, cfg.Requests)
		if err != nil {
			return nil, nil, "", err
		}
		return src, noClose, "fetch", nil

	default:
		return nil, nil, "", fmt.Errorf("unknown source %q", flags.Source)
	}
}

// openInput opens the lines/csv input, mapping "-" to stdin.
func openInput(path string) (io.Reader, string, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdin, "stdin", func() error { return nil }, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, "", nil, fmt.Errorf("open input: %w", err)
	}
	return f, path, f.Close, nil
}

// openOutput opens the output target, mapping "-" to stdout.
func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}
