package flag

import (
	"fmt"
	"io"

	"github.com/gi8lino/issuetab/internal/logging"

	"github.com/containeroo/tinyflags"
)

// Options holds all application configuration after parsing.
type Options struct {
	Source       string            // where Source Records come from
	Input        string            // lines/csv input path ("-" = stdin)
	RawField     string            // lines: envelope field carrying the document
	Column       string            // csv/sqlite: column holding the document
	DBPath       string            // sqlite database file
	Table        string            // sqlite table name
	Config       string            // path to pipeline config file
	Format       string            // output format
	Output       string            // output path ("-" = stdout)
	TemplateFile string            // row template for --format=template
	NoHeader     bool              // csv/tsv: suppress the header row
	OnParseError string            // treatment of unparsable documents
	ArrayField   string            // array field to flatten
	Workers      int               // parallel flattening workers
	NoCache      bool              // fetch: bypass the page cache
	Report       string            // JSON run report path
	Debug        bool              // Enables debug logging
	LogFormat    logging.LogFormat // Log output format (text or json)
}

// ParseArgs parses CLI arguments into Options, handling version/help flags.
func ParseArgs(version string, args []string, out io.Writer, getEnv func(string) string) (Options, error) {
	var opts Options
	tf := tinyflags.NewFlagSet("issuetab", tinyflags.ContinueOnError)
	tf.Version(version)
	tf.SetGetEnvFn(getEnv)
	tf.EnvPrefix("ISSUETAB")
	tf.SetOutput(out)

	// Input
	src := tf.String("source", "lines", "Where Source Records come from").
		Choices("lines", "csv", "sqlite", "fetch").
		Short("s").
		Value()
	tf.StringVar(&opts.Input, "input", "-", "Input file for the lines and csv sources (\"-\" = stdin)").
		Placeholder("PATH").
		Short("i").
		Value()
	tf.StringVar(&opts.RawField, "raw-field", "", "Envelope field carrying the document (lines source); empty reads whole lines").Value()
	tf.StringVar(&opts.Column, "column", "raw", "Column holding the document (csv and sqlite sources)").Value()
	tf.StringVar(&opts.DBPath, "db", "", "SQLite database file (sqlite source)").
		Placeholder("PATH").
		Value()
	tf.StringVar(&opts.Table, "table", "", "SQLite table to read (sqlite source)").Value()
	tf.StringVar(&opts.Config, "config", "", "Path to pipeline config file").
		Placeholder("PATH").
		Value()

	// Flattening
	onParseError := tf.String("on-parse-error", "skip", "Treatment of unparsable documents").
		Choices("skip", "abort").
		Value()
	tf.StringVar(&opts.ArrayField, "array-field", "", "Array field to flatten (default \"issues\")").Value()
	workers := tf.Int("workers", 1, "Parallel flattening workers").Value()

	// Output
	format := tf.String("format", "csv", "Output format").
		Choices("csv", "tsv", "ndjson", "template").
		Short("f").
		Value()
	tf.StringVar(&opts.Output, "output", "-", "Output file (\"-\" = stdout)").
		Placeholder("PATH").
		Short("o").
		Value()
	tf.StringVar(&opts.TemplateFile, "template-file", "", "Row template for --format=template").
		Placeholder("PATH").
		Value()
	tf.BoolVar(&opts.NoHeader, "no-header", false, "Omit the csv/tsv header row").Value()
	tf.BoolVar(&opts.NoCache, "no-cache", false, "Bypass the fetch page cache").Value()
	tf.StringVar(&opts.Report, "report", "", "Write a JSON run report").
		Placeholder("PATH").
		Value()

	// Logging
	tf.BoolVar(&opts.Debug, "debug", false, "Enable debug logging").Value()
	logFormat := tf.String("log-format", "text", "Log format").Choices("text", "json").Short("l").Value()

	// Parse
	if err := tf.Parse(args); err != nil {
		return Options{}, err
	}

	// Post-parse
	opts.Source = *src
	opts.Format = *format
	opts.OnParseError = *onParseError
	opts.Workers = *workers
	opts.LogFormat = logging.LogFormat(*logFormat)

	if err := validate(opts); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// validate enforces cross-flag requirements the flag set cannot express.
func validate(opts Options) error {
	switch opts.Source {
	case "sqlite":
		if opts.DBPath == "" {
			return fmt.Errorf("--db is required with --source=sqlite")
		}
		if opts.Table == "" {
			return fmt.Errorf("--table is required with --source=sqlite")
		}
	case "fetch":
		if opts.Config == "" {
			return fmt.Errorf("--config is required with --source=fetch")
		}
	}
	if opts.Format == "template" && opts.TemplateFile == "" {
		return fmt.Errorf("--template-file is required with --format=template")
	}
	if opts.Workers < 1 {
		return fmt.Errorf("--workers must be at least 1")
	}
	return nil
}
