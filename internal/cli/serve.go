package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Joseda-hg/taskdock/internal/config"
	"github.com/Joseda-hg/taskdock/internal/db"
	"github.com/Joseda-hg/taskdock/internal/logging"
	"github.com/Joseda-hg/taskdock/internal/web"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the development API server",
	Long: `Run a local server speaking the task API, backed by sqlite.

Examples:
  taskdock serve
  taskdock serve --port 8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default from config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	logger := logging.Console(os.Stderr, cfg.LogLevel)

	if err := config.EnsureDir(cfg.Server.DBPath); err != nil {
		return err
	}
	database, err := db.Open(cfg.Server.DBPath)
	if err != nil {
		return fmt.Errorf("open server db: %w", err)
	}
	defer database.Close()

	server := web.NewServer(db.NewStore(database), web.Options{
		JWTSecret:      []byte(cfg.Server.JWTSecret),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
	})
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Str("db", cfg.Server.DBPath).Msg("server listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-cmd.Context().Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
