package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/axondata/go-smf"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// app holds state shared by all subcommands
type app struct {
	configPath  string
	logLevel    string
	manifestDir string
	metricsAddr string
	provider    string

	cfg      *smf.Config
	log      zerolog.Logger
	registry *prometheus.Registry
	metrics  *smf.Metrics
}

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	return newRootCommand(version, commit, buildDate).ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "smfctl",
		Short: "Declarative Solaris SMF service management",
		Long: `smfctl creates and destroys Solaris SMF services from declarative specs.

For each service it writes a manifest to the site manifest directory, imports
it through manifest-import and reports the running pid. Re-running any
command is safe: steps whose outcome SMF already reports are skipped.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file path (TOML)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (default from config or LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&a.manifestDir, "manifest-dir", "", "override the manifest directory")
	rootCmd.PersistentFlags().StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	rootCmd.PersistentFlags().StringVar(&a.provider, "provider", "", "use the named provider instead of detecting the platform")

	rootCmd.AddCommand(newApplyCommand(a))
	rootCmd.AddCommand(newDestroyCommand(a))
	rootCmd.AddCommand(newPlanCommand(a))
	rootCmd.AddCommand(newPidCommand(a))
	rootCmd.AddCommand(newRenderCommand(a))
	rootCmd.AddCommand(newWatchCommand(a))
	rootCmd.AddCommand(newVersionCommand(version, commit, buildDate))

	return rootCmd
}

// setup loads configuration, configures logging and starts the metrics endpoint
func (a *app) setup(cmd *cobra.Command) error {
	cfg := smf.DefaultConfig()
	if a.configPath != "" {
		loaded, err := smf.LoadConfig(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if a.manifestDir != "" {
		cfg.ManifestDir = a.manifestDir
	}
	if a.metricsAddr != "" {
		cfg.MetricsAddr = a.metricsAddr
	}

	level := cfg.LogLevel
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		level = env
	}
	if a.logLevel != "" {
		level = a.logLevel
	}
	cfg.LogLevel = level

	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	zl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	zerolog.SetGlobalLevel(zl)
	a.log = log.Logger.With().Str("component", "smf").Logger()

	a.registry = prometheus.NewRegistry()
	a.metrics, err = smf.NewMetrics(a.registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	if cfg.MetricsAddr != "" {
		a.serveMetrics(cmd.Context(), cfg.MetricsAddr)
	}

	return nil
}

func (a *app) serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()

	a.log.Info().Str("addr", addr).Msg("serving metrics")
}

// reconciler selects the provider for this host and builds its reconciler
func (a *app) reconciler() (*smf.Reconciler, error) {
	reg := smf.DefaultRegistry()

	var (
		p   smf.Provider
		err error
	)
	if a.provider != "" {
		p, err = reg.Lookup(a.provider)
	} else {
		p, err = reg.Select(smf.DetectPlatform())
	}
	if err != nil {
		return nil, err
	}

	sr, err := p.New(a.cfg, smf.WithLogger(a.log), smf.WithMetrics(a.metrics))
	if err != nil {
		return nil, err
	}

	r, ok := sr.(*smf.Reconciler)
	if !ok {
		return nil, fmt.Errorf("provider %s does not expose a planning reconciler", p.Name)
	}

	a.log.Debug().Str("provider", p.Name).Str("manifest_dir", r.ManifestDir).Msg("provider selected")
	return r, nil
}
