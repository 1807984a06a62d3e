package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"focustrack/internal/server"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ftserver",
	Short: "Sync server for the ft focus tracker",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")

		cfg, err := server.ReadConfigFromFile(configPath)
		if err != nil {
			return err
		}

		logger := newLogger(cfg.LogDir)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := server.OpenStore(cfg.DataDir)
		if err != nil {
			return err
		}
		defer store.Close()

		hub := server.NewHub(logger)
		srv := server.New(cfg, store, hub, logger)
		if err := srv.Start(); err != nil {
			return err
		}

		var backups *server.Backups
		if cfg.Backup.Enabled {
			backups, err = server.NewBackups(ctx, cfg.Backup, store, logger)
			if err != nil {
				return fmt.Errorf("configuring backups: %w", err)
			}
			if err := backups.Start(); err != nil {
				return err
			}
		}

		<-ctx.Done()
		logger.Info("shutting down")

		if backups != nil {
			backups.Stop()
		}
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			logger.Error("shutdown incomplete", "error", err)
		}
		return nil
	},
}

// newLogger writes to stderr, plus a rotated file when log_dir is set.
func newLogger(logDir string) *slog.Logger {
	var w io.Writer = os.Stderr
	if logDir != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   filepath.Join(logDir, "ftserver.log"),
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	}
	return slog.New(slog.NewTextHandler(w, nil))
}

func init() {
	rootCmd.Flags().String("config", "/etc/ftserver.toml", "Path to the server config file")
}
