package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/hookdeck/redishook/internal/app"
	"github.com/hookdeck/redishook/internal/config"
	"github.com/hookdeck/redishook/internal/hooks"
	"github.com/hookdeck/redishook/internal/logging"
	"github.com/hookdeck/redishook/internal/redis"
	"github.com/hookdeck/redishook/internal/redishook"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap/zapcore"
)

const defaultCheckTimeout = 5 * time.Second

var errRedisDisabled = errors.New("redis hook is disabled in config")

func loadConfig(c *cli.Command) (*config.Config, error) {
	cfg, err := config.Parse(config.Flags{
		Config: c.String("config"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, c *cli.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	return app.New(cfg).Run(ctx)
}

func check(ctx context.Context, c *cli.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(
		logging.WithLogLevel(cfg.LogLevel),
		logging.WithLogFormat("console"),
	)
	if err != nil {
		return err
	}
	defer logger.Sync()
	redis.SetLogger(logger)

	result, err := runCheck(ctx, cfg.Redis, logger, c.Duration("timeout"))
	if err != nil {
		return err
	}
	return printCheckResult(c.Root().Writer, result)
}

// runCheck initializes the redis hook alone and lowers it again.
func runCheck(ctx context.Context, cfg *config.RedisConfig, logger *logging.Logger, timeout time.Duration) (redis.ConnectResult, error) {
	if cfg == nil || !cfg.Enabled {
		return redis.ConnectResult{}, errRedisDisabled
	}

	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}

	ns := hooks.NewNamespace()
	lc := hooks.NewLifecycle(logger)
	defer lc.Lower(context.Background())

	hook := redishook.New(cfg, logger, redishook.WithConnectTimeout(timeout))
	if err := hook.Initialize(ctx, lc, ns); err != nil {
		return redis.ConnectResult{}, err
	}
	return hook.ConnectResult(), nil
}

func printCheckResult(w io.Writer, result redis.ConnectResult) error {
	fmt.Fprintf(w, "Mode: %s\n", result.Mode)
	if !result.Connected {
		fmt.Fprintf(w, "PING: failed (%v)\n", result.Err)
		return fmt.Errorf("redis not reachable: %w", result.Err)
	}
	fmt.Fprintln(w, "PING: ok")
	return nil
}

func printConfig(ctx context.Context, c *cli.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	return writeConfigSummary(c.Root().Writer, cfg)
}

func writeConfigSummary(w io.Writer, cfg *config.Config) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, field := range cfg.LogConfigurationSummary() {
		field.AddTo(enc)
	}
	for _, key := range slices.Sorted(maps.Keys(enc.Fields)) {
		if _, err := fmt.Fprintf(w, "%s: %v\n", key, enc.Fields[key]); err != nil {
			return err
		}
	}
	return nil
}
