package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MatthiasGr/trusted-connector/pkg/cli"
	"github.com/MatthiasGr/trusted-connector/pkg/config"
	"github.com/MatthiasGr/trusted-connector/pkg/policy/engine"
	"github.com/MatthiasGr/trusted-connector/pkg/policy/engine/source"
	"github.com/MatthiasGr/trusted-connector/pkg/policy/manager"
)

// commandContext returns the context of cmd, or the background context
// when the command was not started through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// openPolicy creates an engine configured from the policy section and loads
// the policy at path, or at policy.path when path is empty. Output builtins
// of the policy write to the command's stdout.
func openPolicy(cmd *cobra.Command, path string) (*engine.Engine, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if path == "" {
		path = cfg.Policy.Path
	}
	logger := commandLogger(cmd, cfg)

	eng, err := newEngine(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	eng.WithOutput(cmd.OutOrStdout())

	ctx := commandContext(cmd)
	doc, err := source.NewFileSource(path, logger).Load(ctx)
	if err != nil {
		eng.Close()
		return nil, nil, cli.NewCommandError(cmd.Name(), err)
	}
	if _, err := eng.LoadPolicy(ctx, doc.Name, doc.Text); err != nil {
		eng.Close()
		return nil, nil, cli.NewCommandError(cmd.Name(), err)
	}
	return eng, logger, nil
}

func newEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	eng, err := engine.NewEngine(manager.NewEngineConfig(&cfg.Policy), logger)
	if err != nil {
		return nil, cli.NewConfigError("policy", fmt.Sprintf("invalid engine settings: %v", err))
	}
	return eng, nil
}
