// Deceived weighted average filters for images and videos
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"dewaff/internal/algorithms"
	"dewaff/internal/config"
	"dewaff/internal/dewaff"
	"dewaff/internal/pipeline"
)

const (
	AppName    = "dewaff"
	AppVersion = "1.0.0"
)

type options struct {
	configPath string
	cfg        config.Config
}

func main() {
	opts := &options{cfg: config.Default()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(opts).ExecuteContext(ctx); err != nil {
		reportError(logrus.StandardLogger(), err)
		stop()
		os.Exit(1)
	}
}

// loggedError marks an error that run has already logged
type loggedError struct {
	err error
}

func (e loggedError) Error() string { return e.err.Error() }

func (e loggedError) Unwrap() error { return e.err }

// reportError logs err unless run already did, e.g. for usage errors
func reportError(logger logrus.FieldLogger, err error) {
	var logged loggedError
	if errors.As(err, &logged) {
		return
	}
	logger.WithError(err).Error("Command failed")
}

func newRootCommand(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:           AppName,
		Short:         "Denoise images and videos with deceived weighted average filters",
		Version:       AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML or TOML file with run settings")
	flags.BoolVar(&opts.cfg.Debug, "debug", false, "Enable debug mode with verbose logging")
	flags.StringVarP(&opts.cfg.Filter, "filter", "f", opts.cfg.Filter, "Filter to deceive (see list)")
	flags.IntVarP(&opts.cfg.WindowSize, "window", "w", opts.cfg.WindowSize, "Odd window size")
	flags.IntVarP(&opts.cfg.PatchSize, "patch", "p", opts.cfg.PatchSize, "Odd patch size for nlm")
	flags.Float64Var(&opts.cfg.SpatialSigma, "spatial-sigma", 0, "Spatial standard deviation (default window/1.5)")
	flags.Float64Var(&opts.cfg.RangeSigma, "range-sigma", opts.cfg.RangeSigma, "Range standard deviation")
	flags.Float64Var(&opts.cfg.Lambda, "lambda", opts.cfg.Lambda, "Unsharp mask strength of the guide")
	flags.IntVar(&opts.cfg.Workers, "workers", 0, "Worker goroutines (0 uses GOMAXPROCS)")
	flags.StringVar(&opts.cfg.GuideOut, "guide-out", "", "Also write the deceiving guide as a 16-bit TIFF")
	flags.BoolVar(&opts.cfg.Metrics, "metrics", false, "Log a quality report of the filtered image")

	root.AddCommand(newImageCommand(opts), newVideoCommand(opts), newListCommand())
	return root
}

func newImageCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image <file>",
		Short: "Filter a single image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, p *pipeline.Processor, cfg config.Config) error {
				return p.ProcessImage(ctx, args[0], cfg.OutputName(args[0], false))
			})
		},
	}
	cmd.Flags().StringVarP(&opts.cfg.Output, "output", "o", "", "Output path (default <name>_<FILTER>.png)")
	cmd.Flags().IntVarP(&opts.cfg.Benchmark, "benchmark", "b", 0, "Repeat the filter N times and report the mean time")
	return cmd
}

func newVideoCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "video <file>",
		Short: "Filter every frame of a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, p *pipeline.Processor, cfg config.Config) error {
				return p.ProcessVideo(ctx, args[0], cfg.OutputName(args[0], true))
			})
		},
	}
	cmd.Flags().StringVarP(&opts.cfg.Output, "output", "o", "", "Output path (default <name>_<FILTER>.avi)")
	cmd.Flags().IntVarP(&opts.cfg.Benchmark, "benchmark", "b", 0, "Repeat the filter N times per frame and report the mean time")
	return cmd
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available filters and their parameters",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			for _, name := range algorithms.Names() {
				alg, _ := algorithms.Get(name)
				fmt.Fprintf(out, "%s (%s): %s\n", name, config.Acronym(name), alg.GetDescription())
				for _, info := range alg.GetParameterInfo() {
					fmt.Fprintf(out, "  %-14s %s\n", info.Name, info.Description)
				}
			}
		},
	}
}

// resolveConfig loads the config file, if any, and lays the flags the user
// set on top of it
func resolveConfig(cmd *cobra.Command, opts *options) (config.Config, error) {
	if opts.configPath == "" {
		return opts.cfg, nil
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}

	cmd.Flags().Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "debug":
			cfg.Debug = opts.cfg.Debug
		case "filter":
			cfg.Filter = opts.cfg.Filter
		case "window":
			cfg.WindowSize = opts.cfg.WindowSize
		case "patch":
			cfg.PatchSize = opts.cfg.PatchSize
		case "spatial-sigma":
			cfg.SpatialSigma = opts.cfg.SpatialSigma
		case "range-sigma":
			cfg.RangeSigma = opts.cfg.RangeSigma
		case "lambda":
			cfg.Lambda = opts.cfg.Lambda
		case "workers":
			cfg.Workers = opts.cfg.Workers
		case "guide-out":
			cfg.GuideOut = opts.cfg.GuideOut
		case "metrics":
			cfg.Metrics = opts.cfg.Metrics
		case "output":
			cfg.Output = opts.cfg.Output
		case "benchmark":
			cfg.Benchmark = opts.cfg.Benchmark
		}
	})
	return cfg, nil
}

func run(cmd *cobra.Command, opts *options, process func(context.Context, *pipeline.Processor, config.Config) error) error {
	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		logrus.WithError(err).Error("Failed to load configuration")
		return loggedError{err}
	}

	logger := initLogger(cfg.Debug)
	filters := algorithms.NewFilters(cfg.Workers, logger)
	defer filters.Close()

	logger.WithFields(logrus.Fields{
		"version":    AppVersion,
		"debug_mode": cfg.Debug,
		"command":    cmd.Name(),
		"workers":    filters.Workers(),
	}).Info("Starting dewaff")

	processor, err := pipeline.NewProcessor(dewaff.New(filters, logger), cfg, logger)
	if err != nil {
		logger.WithError(err).Error("Invalid configuration")
		return loggedError{err}
	}

	if err := process(cmd.Context(), processor, cfg); err != nil {
		logger.WithError(err).Error("Processing failed")
		return loggedError{err}
	}

	logger.Info("Done")
	return nil
}

// initLogger initializes the logger with appropriate level
func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}
