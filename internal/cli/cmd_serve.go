package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bryokim/AirBnB-clone-v3/internal/api"
	"github.com/bryokim/AirBnB-clone-v3/internal/config"
	logpkg "github.com/bryokim/AirBnB-clone-v3/internal/log"
	"github.com/bryokim/AirBnB-clone-v3/internal/storage"
)

const shutdownGrace = 10 * time.Second

func newServeCommand(out io.Writer) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("serve does not accept positional arguments")
			}
			return runServe(cmd.Context(), out, configPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to TOML config file")
	return cmd
}

func runServe(ctx context.Context, out io.Writer, configPath string) (err error) {
	// Environment overrides may live in a local .env file; its absence is
	// not an error.
	_ = godotenv.Load()

	cfg, err := config.Load(config.LoadOptions{ConfigPath: configPath})
	if err != nil {
		return fmt.Errorf("serve: load config: %w", err)
	}

	logger, logCloser, err := logpkg.New(logpkg.Options{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	})
	if err != nil {
		return fmt.Errorf("serve: init logging: %w", err)
	}
	defer func() {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	}()

	store, err := storage.Open(cfg.Storage.Type, cfg.Storage.Path())
	if err != nil {
		return fmt.Errorf("serve: open storage: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("serve: close storage: %w", closeErr)
		}
	}()

	if err := store.Reload(ctx); err != nil {
		return fmt.Errorf("serve: reload storage: %w", err)
	}

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.API.Host, strconv.Itoa(cfg.API.Port)),
		Handler:           api.NewRouter(store, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	logger.Info("api server started",
		"addr", server.Addr,
		"storage", cfg.Storage.Type,
	)
	fmt.Fprintf(out, "listening on %s\n", server.Addr)

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("serve: shutdown: %w", err)
	}
	return nil
}
