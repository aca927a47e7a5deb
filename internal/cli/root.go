package cli

import (
	"io"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/bartolsthoorn/gomps/internal/config"
	"github.com/bartolsthoorn/gomps/internal/logging"
	"github.com/bartolsthoorn/gomps/mps"
)

// Version is reported by the version command. Release builds override it
// with -ldflags "-X github.com/bartolsthoorn/gomps/internal/cli.Version=...".
var Version = "dev"

// RootOptions holds global flags and the state every command shares once
// the configuration is loaded.
type RootOptions struct {
	ConfigFile  string
	Verbose     bool
	ShowMetrics bool

	viper    *viper.Viper
	config   *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *mps.Metrics
}

// globalFlags maps persistent flag names to configuration keys.
var globalFlags = map[string]string{
	"dialect":    config.KeyDialect,
	"strict":     config.KeyStrict,
	"format":     config.KeyFormat,
	"log-level":  config.KeyLogLevel,
	"log-format": config.KeyLogFormat,
	"catalog":    config.KeyCatalogPath,
}

// NewRootCommand creates the root command for the gomps CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{viper: config.New()}

	cmd := &cobra.Command{
		Use:   "gomps",
		Short: "gomps - MPS model reader and writer",
		Long: `Read, convert and catalog linear and mixed-integer models in the MPS format.

Both the fixed-column and the free MPS layouts are read; models are always
written in the fixed layout.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.ShowMetrics {
				return opts.dumpMetrics(cmd.ErrOrStderr())
			}
			return nil
		},
	}

	// Global flags
	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.ConfigFile, "config", "", "YAML configuration file")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.BoolVar(&opts.ShowMetrics, "metrics", false, "print operation metrics to stderr on exit")
	pf.String("dialect", "fixed", "MPS dialect of input files (fixed|free)")
	pf.Bool("strict", false, "reject repeated (row, column) coefficients instead of summing them")
	pf.String("format", "text", "output format (text|json|yaml)")
	pf.String("log-level", "warn", "log level (debug|info|warn|error)")
	pf.String("log-format", logging.FormatConsole, "log format (console|json)")
	pf.String("catalog", "gomps.db", "path of the model catalog database")

	if err := bindFlags(opts.viper, pf, globalFlags); err != nil {
		panic(err)
	}

	// Add subcommands
	cmd.AddCommand(NewReadCommand(opts))
	cmd.AddCommand(NewConvertCommand(opts))
	cmd.AddCommand(NewCatalogCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// bindFlags registers each flag as the source of its configuration key so
// an explicitly set flag wins over the environment and the config file.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) error {
	for name, key := range keys {
		flag := fs.Lookup(name)
		if flag == nil {
			return errors.Errorf("flag %q is not defined", name)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return errors.Wrapf(err, "bind flag %q", name)
		}
	}
	return nil
}

func (o *RootOptions) setup() error {
	cfg, err := config.Load(o.viper, o.ConfigFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	o.config = cfg

	level := cfg.Log.Level
	if o.Verbose {
		level = "debug"
	}
	o.logger, err = logging.New(level, cfg.Log.Format)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot create logger", err)
	}

	o.registry = prometheus.NewRegistry()
	o.metrics, err = mps.NewMetrics(o.registry)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot register metrics", err)
	}
	return nil
}

// mpsOptions returns the read and write options derived from the
// configuration.
func (o *RootOptions) mpsOptions() []mps.Option {
	return []mps.Option{
		mps.WithLogger(o.logger),
		mps.WithDuplicatePolicy(o.config.DuplicatePolicy()),
		mps.WithMetrics(o.metrics),
	}
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.config.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// dumpMetrics writes the gathered metrics in the Prometheus text format.
func (o *RootOptions) dumpMetrics(w io.Writer) error {
	if o.registry == nil {
		return nil
	}
	families, err := o.registry.Gather()
	if err != nil {
		return errors.Wrap(err, "gather metrics")
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return errors.Wrap(err, "write metrics")
		}
	}
	return nil
}
