package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/csvfits/internal/pipeline"
	"github.com/ajitpratap0/csvfits/pkg/config"
	"github.com/ajitpratap0/csvfits/pkg/errors"
	"github.com/ajitpratap0/csvfits/pkg/formats"
	"github.com/ajitpratap0/csvfits/pkg/logger"
	"github.com/ajitpratap0/csvfits/pkg/metrics"
	"github.com/ajitpratap0/csvfits/pkg/tracing"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the command line and returns the process exit code
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintf(stderr, "csvfits: %v\n", err)
		if errors.IsType(err, errors.ErrorTypeUsage) {
			fmt.Fprintln(stderr, root.UseLine())
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "csvfits INPUT.csv OUTPUT.fits",
		Short: "Convert a CSV catalog into a FITS binary table",
		Long: `csvfits converts a comma separated table with a header line into a FITS
file holding a single binary table extension.

Column names are normalized (RA, DEC, RA_err, DEC_err, id, starnotgal) and
typed: id is a 64-bit integer, starnotgal a logical, RA and DEC double
precision and every other column single precision.

The output format follows the file extension of OUTPUT:
` + formatHelp() + `
A trailing .gz, .zst or .lz4 on OUTPUT compresses the output.

Example:
  csvfits stars.csv stars.fits
  csvfits --overwrite --log-level info stars.csv stars.fits.gz`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return errors.Newf(errors.ErrorTypeUsage, "expected 2 arguments (INPUT.csv OUTPUT.fits), got %d", len(args))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, args[0], args[1])
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return errors.Wrap(err, errors.ErrorTypeUsage, "invalid flag")
	})
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(newInspectCmd(), newConfigCmd(), newVersionCmd())
	return root
}

// setup loads the configuration and installs the global logger
func setup(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		Encoding:    cfg.Log.Encoding,
		OutputPaths: []string{"stderr"},
	}); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to initialize logger")
	}
	return cfg, nil
}

func runConvert(cmd *cobra.Command, input, output string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}

	log := logger.With(zap.String("component", "csvfits-cli"))
	collector := metrics.NewCollector()

	tp, err := tracing.Init(tracing.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceVersion: version,
	}, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		if err := tracing.Shutdown(context.Background(), tp); err != nil {
			log.Warn("failed to export traces", logger.ErrorFields(err)...)
		}
	}()

	log.Info("starting conversion",
		zap.String("input", input),
		zap.String("output", output),
		zap.String("format", cfg.Output.Format),
		zap.Bool("overwrite", cfg.Output.Overwrite))

	_, runErr := pipeline.NewPipeline(cfg, log, collector).Run(cmd.Context(), input, output)
	if runErr != nil {
		log.Debug("conversion failed", logger.ErrorFields(runErr)...)
	}

	if cfg.Metrics.Textfile != "" {
		if err := collector.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			log.Warn("failed to write metrics", logger.ErrorFields(err)...)
		}
	}
	return runErr
}

// formatHelp lists the output formats with their extension, one per line
func formatHelp() string {
	var b strings.Builder
	for _, f := range formats.Supported() {
		info := formats.GetFormatInfo(f)
		fmt.Fprintf(&b, "  %-9s %s (%s)\n", info.FileExtension, info.Name, info.MIMEType)
	}
	return b.String()
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			return cfg.WriteYAML(cmd.OutOrStdout())
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "csvfits v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
