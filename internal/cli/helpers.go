package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"abchat/internal/config"
	"abchat/internal/logging"
	"abchat/internal/service"
)

// env is what every command runs with.
type env struct {
	ctx    context.Context
	cfg    *config.AppConfig
	logger zerolog.Logger
	svc    *service.ChatService
}

func loadConfig() (*config.AppConfig, error) {
	var (
		cfg *config.AppConfig
		err error
	)
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if datasetPath != "" {
		cfg.Dataset.Path = datasetPath
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

// withService loads config, builds the chat service, executes the function, and handles cleanup.
// logOut receives the logs; nil sends them to stderr.
func withService(cmd *cobra.Command, logOut io.Writer, fn func(env) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if logOut == nil {
		logOut = cmd.ErrOrStderr()
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, logOut)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	ctx := logger.WithContext(cmd.Context())

	svc, closeFn, err := service.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeFn(); err != nil {
			logger.Warn().Err(err).Msg("failed to close history")
		}
	}()

	return fn(env{ctx: ctx, cfg: cfg, logger: logger, svc: svc})
}
