package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/webmatch/packages/api"
	"github.com/abdul-hamid-achik/webmatch/packages/history"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve ad-hoc checks over HTTP",
	Long: `Start an HTTP server that evaluates checks on request.

Endpoints:
  GET  /healthz
  GET  /api/matchers
  POST /api/checks    {"target": "example.com", "expect": "be_up"}
  GET  /api/history   (with --history)

Examples:
  webmatch serve
  webmatch serve --addr :9000 --history .webmatch.db`,
	Args: cobra.NoArgs,
	RunE: serveCommand,
}

var (
	serveAddrFlag    string
	serveHistoryFlag string
)

func init() {
	serveCmd.Flags().StringVar(&serveAddrFlag, "addr", getEnvString("WEBMATCH_ADDR", ":8080"), "Listen address (env: WEBMATCH_ADDR)")
	serveCmd.Flags().StringVar(&serveHistoryFlag, "history", getEnvString("WEBMATCH_HISTORY", ""), "Expose runs from this history database (env: WEBMATCH_HISTORY)")
}

func serveCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveHistoryFlag != "" {
		cfg.HistoryDB = serveHistoryFlag
	}

	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	prober, err := newProber(cfg, logger)
	if err != nil {
		return err
	}

	var store *history.Store
	if cfg.HistoryDB != "" {
		store, err = history.Open(cfg.HistoryDB)
		if err != nil {
			return withExitCode(ExitConfigError, err)
		}
		defer store.Close()
	}

	srv := &http.Server{
		Addr:              serveAddrFlag,
		Handler:           api.NewServer(logger, prober, store).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("server started", zap.String("addr", serveAddrFlag))
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", serveAddrFlag)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return withExitCode(ExitNetworkError, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("server stopping")
	return srv.Shutdown(shutdownCtx)
}
