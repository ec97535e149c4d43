package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/MatthiasGr/trusted-connector/pkg/cli"
	"github.com/MatthiasGr/trusted-connector/pkg/config"
	"github.com/MatthiasGr/trusted-connector/pkg/policy/manager"
	"github.com/MatthiasGr/trusted-connector/pkg/policy/store"
	"github.com/MatthiasGr/trusted-connector/pkg/server"
	"github.com/MatthiasGr/trusted-connector/pkg/telemetry/health"
	"github.com/MatthiasGr/trusted-connector/pkg/telemetry/logging"
	"github.com/MatthiasGr/trusted-connector/pkg/telemetry/metrics"
	"github.com/MatthiasGr/trusted-connector/pkg/telemetry/tracing"
)

var serveFlags struct {
	listenAddress string
	logLevel      string
	policy        string
	dryRun        bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the policy decision server",
	Long: `Start the HTTP policy decision server with the specified configuration.

The server loads the policy from policy.path (restoring the latest recorded
version when the file is missing), reloads it on file changes and on the
configured schedule, and answers decision, transformation and query
requests.

Examples:
  # Start with defaults and LUCON_* environment overrides
  lucon serve

  # Start with a config file
  lucon serve --config /etc/lucon/config.yaml

  # Override listen address and policy
  lucon serve --listen 0.0.0.0:8181 --policy policies/

  # Validate config and policy without starting the server
  lucon serve --dry-run`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
	serveCmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	serveCmd.Flags().StringVarP(&serveFlags.policy, "policy", "p", "", "override policy file or directory")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate config and policy without starting the server")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
	}
	if serveFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = serveFlags.logLevel
	}
	if serveFlags.policy != "" {
		cfg.Policy.Path = serveFlags.policy
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("", err.Error())
	}

	logger, err := logging.New(cfg.Telemetry.Logging, logging.Options{Writer: cmd.ErrOrStderr(), Service: "lucon"})
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)

	ctx, stop := cli.SetupSignalHandler(commandContext(cmd))
	defer stop()

	if serveFlags.dryRun {
		return dryRun(ctx, cmd, cfg, logger)
	}

	tracing.Version = Version
	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
	if err != nil {
		return cli.NewCommandError("serve", fmt.Errorf("failed to initialize tracing: %w", err))
	}
	defer func() {
		if err := tracer.Shutdown(context.Background()); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, registry)
	}

	eng, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Close()
	eng.WithTracer(tracer.Tracer())
	if collector != nil {
		eng.WithRecorder(collector)
	}

	st, err := store.Open(&cfg.Store, logger)
	if err != nil {
		return cli.NewCommandError("serve", fmt.Errorf("failed to open policy store: %w", err))
	}
	if st != nil {
		defer st.Close()
	}

	mgr, err := manager.NewPolicyManager(&cfg.Policy, eng, nil, st, logger)
	if err != nil {
		return cli.NewCommandError("serve", err)
	}
	defer mgr.Close()
	if collector != nil {
		mgr.OnInstall(func(v *store.Version) { collector.UpdateRules(v.Rules) })
	}

	if err := mgr.LoadPolicies(ctx); err != nil {
		logger.Error("no policy loaded, denying every flow until one is installed", "error", err)
	}

	go func() {
		if err := mgr.Watch(ctx); err != nil && !errors.Is(err, manager.ErrWatchDisabled) {
			logger.Error("policy watch stopped", "error", err)
		}
	}()

	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
	checker.RegisterCheck("policy", health.PolicyCheck(mgr))
	if st != nil {
		checker.RegisterCheck("store", health.StoreCheck(st))
	}

	srv, err := server.NewServer(cfg, server.Options{
		Engine:  eng,
		Manager: mgr,
		Health:  checker,
		Metrics: collector,
		Tracer:  tracer.Tracer(),
		Version: health.NewVersionInfo(Version, GitCommit, BuildDate),
		Logger:  logger,
	})
	if err != nil {
		return cli.NewCommandError("serve", err)
	}

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}
	return nil
}

// dryRun validates the policy source without starting the server.
func dryRun(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	eng, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	mgr, err := manager.NewPolicyManager(&cfg.Policy, eng, nil, nil, logger)
	if err != nil {
		return cli.NewCommandError("serve", err)
	}
	defer mgr.Close()

	snap, err := mgr.ValidatePoliciesDryRun(ctx)
	if err != nil {
		return cli.NewCommandError("serve", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Policy %s valid (%d rule(s), %d clause(s))\n", cfg.Policy.Path, len(snap.Rules()), snap.Len())
	return nil
}
