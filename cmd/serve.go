package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/doppelganger/internal/catalog"
	"github.com/kozaktomas/doppelganger/internal/web"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the matcher API server.
The server loads the reference catalog once, builds a pose similarity index
over it and keeps entropy sessions in memory until it stops.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8000, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // stderr sync fails on some terminals

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cat, err := loadCatalog(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	if cat.Len() == 0 {
		logger.Warn("catalog is empty, every match will be a placeholder",
			zap.String("source", cfg.Catalog.Source),
			zap.String("path", cfg.Catalog.Path))
	}

	index := catalog.NewPoseIndex()
	index.Build(cat)
	logger.Info("catalog loaded",
		zap.Int("entries", cat.Len()),
		zap.Int("with_pose", cat.WithPose()),
		zap.Int("indexed", index.Len()))

	m := newMatcher(cfg, cat, logger)
	a, err := newAnalyzer(ctx, cfg, m, logger)
	if err != nil {
		return fmt.Errorf("creating analyzer: %w", err)
	}

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(cfg, web.Deps{
		Analyzer: a,
		Catalog:  cat,
		Index:    index,
		Version:  Version,
	}, port, host, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Doppelganger API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
