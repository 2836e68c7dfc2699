package cli

import (
	"fmt"

	"github.com/feoweb/feo/pkg/cli/internal/output"
	"github.com/feoweb/feo/pkg/cli/internal/ports"
	"github.com/feoweb/feo/pkg/config"
	"github.com/feoweb/feo/pkg/feo"
	"github.com/feoweb/feo/pkg/logging"
	"github.com/feoweb/feo/pkg/server"
	"github.com/spf13/cobra"
)

type runOptions struct {
	host       string
	port       int
	debug      bool
	configPath string
	logLevel   string
	logFormat  string
	compress   bool
	metrics    bool
	print      bool
}

func newRunCommand(app *feo.App) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the development server",
		Long: `Run the development server.

Flags override the application's configuration. A --config file replaces
the server settings (host, port, debug, limits, timeouts, compression,
metrics and logging). The templates and static directories are fixed
when the application is created.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd, app, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.host, "host", config.DefaultHost, "Interface to bind to")
	f.IntVarP(&opts.port, "port", "p", config.DefaultPort, "Port to bind to")
	f.BoolVar(&opts.debug, "debug", false, "Enable debug mode: error details, request logs and template reloading")
	f.StringVarP(&opts.configPath, "config", "c", "", "Config file (YAML or JSON)")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.StringVar(&opts.logFormat, "log-format", "", "Log format: text or json")
	f.BoolVar(&opts.compress, "compress", false, "Gzip responses")
	f.BoolVar(&opts.metrics, "metrics", false, "Expose Prometheus metrics")
	f.BoolVar(&opts.print, "print-config", false, "Print the effective configuration and exit")
	return cmd
}

func runServer(cmd *cobra.Command, app *feo.App, opts *runOptions) error {
	cfg := app.Config()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if loaded.TemplatesDir != cfg.TemplatesDir {
			output.Warn(cmd.ErrOrStderr(), "templates directory %q from %s is ignored; it is fixed when the application is created",
				loaded.TemplatesDir, opts.configPath)
		}
		applyServerSettings(cfg, loaded)
	}
	applyRunFlags(cmd, cfg, opts)

	if err := cfg.Validate(); err != nil {
		return err
	}
	if opts.print {
		return printConfig(cmd, cfg)
	}
	if err := ports.Check(cfg.Host, cfg.Port); err != nil {
		return err
	}

	logCfg := logging.ForDebug(cfg.Debug, cfg.Log.Format, cmd.ErrOrStderr())
	if cmd.Flags().Changed("log-level") || (!cfg.Debug && cfg.Log.Level != "") {
		logCfg.Level = logging.ParseLevel(cfg.Log.Level)
	}
	logger := logging.New(logCfg)

	srv := server.New(app,
		server.WithLogger(logger),
		server.WithOutput(cmd.ErrOrStderr()),
	)
	return srv.Run(cmd.Context())
}

// printConfig writes cfg as YAML, or as JSON with --json.
func printConfig(cmd *cobra.Command, cfg *config.Config) error {
	if jsonOutput(cmd) {
		return output.JSON(cmd.OutOrStdout(), cfg)
	}
	data, err := config.ToYAML(cfg)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

// applyServerSettings copies the settings the server reads at start.
func applyServerSettings(dst, src *config.Config) {
	dst.Host = src.Host
	dst.Port = src.Port
	dst.Debug = src.Debug
	dst.MaxBodySize = src.MaxBodySize
	dst.MaxConnections = src.MaxConnections
	dst.ReadTimeout = src.ReadTimeout
	dst.WriteTimeout = src.WriteTimeout
	dst.ShutdownTimeout = src.ShutdownTimeout
	dst.Compress = src.Compress
	dst.Metrics = src.Metrics
	dst.Log = src.Log
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config, opts *runOptions) {
	f := cmd.Flags()
	if f.Changed("host") {
		cfg.Host = opts.host
	}
	if f.Changed("port") {
		cfg.Port = opts.port
	}
	if f.Changed("debug") {
		cfg.Debug = opts.debug
	}
	if f.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if f.Changed("log-format") {
		cfg.Log.Format = opts.logFormat
	}
	if f.Changed("compress") {
		cfg.Compress = opts.compress
	}
	if f.Changed("metrics") {
		cfg.Metrics.Enabled = opts.metrics
	}
}
