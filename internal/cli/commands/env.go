package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/conduit-lang/rtti/internal/cli/config"
	"github.com/conduit-lang/rtti/internal/cli/ui"
	"github.com/conduit-lang/rtti/internal/logging"
	"github.com/conduit-lang/rtti/internal/snapshot"
	"github.com/conduit-lang/rtti/pkg/serial"
	"go.uber.org/zap"
)

// environment is what a command needs beyond its arguments
type environment struct {
	cfg    *config.Config
	logger *zap.Logger
	format ui.Format
}

func loadEnvironment() (*environment, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	format, err := ui.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return &environment{cfg: cfg, logger: logger, format: format}, nil
}

func (e *environment) serialOptions() []serial.Option {
	return []serial.Option{serial.WithLogger(e.logger)}
}

func (e *environment) openStore(ctx context.Context) (snapshot.Store, error) {
	return snapshot.Open(ctx, snapshot.Options{
		Backend: e.cfg.Store.Backend,
		DSN:     e.cfg.Store.DSN,
		Table:   e.cfg.Store.Table,
		Redis: snapshot.RedisConfig{
			Addr:     e.cfg.Redis.Addr,
			Password: e.cfg.Redis.Password,
			DB:       e.cfg.Redis.DB,
			Prefix:   e.cfg.Redis.Prefix,
			TTL:      e.cfg.Redis.TTL,
		},
	}, e.logger)
}

func (e *environment) json() bool {
	return e.format == ui.FormatJSON
}

// readInput reads a file, or stdin when path is "-"
func readInput(in io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(in)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// writeOutput writes a file, or stdout when path is "-"
func writeOutput(out io.Writer, path string, data []byte) error {
	if path == "-" {
		_, err := out.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
