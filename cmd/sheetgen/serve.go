package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/sheetgen/internal/api"
	"github.com/dgallion1/sheetgen/internal/ocr"
	"github.com/dgallion1/sheetgen/internal/pipeline"
	"github.com/dgallion1/sheetgen/internal/state"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the sheetgen HTTP server",
	Long: `Start the sheetgen HTTP API.

Endpoints:
  GET  /health                       - health check
  POST /api/extract                  - extract persons from text
  POST /api/extract/file             - extract persons from an uploaded document
  POST /api/ocr                      - queue an image for recognition
  GET  /api/ocr/{id}/status          - poll a recognition job
  GET  /api/ocr/{id}/document        - extracted persons for a finished job
  GET  /api/ocr/{id}/sheet[.pdf]     - rendered sheet for a finished job
  POST /api/render                   - render a document as HTML or PDF
  GET  /api/state, POST /api/state   - export or import application state
  GET  /api/stats/ocr                - recognition latency statistics

Examples:
  sheetgen serve                     # Start on $PORT or 8090
  sheetgen serve --port 3000         # Start on a custom port`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if servePort != "" {
			cfg.Port = servePort
		}
		log, err := newLogger(os.Stdout, cfg)
		if err != nil {
			return err
		}

		recognizer, err := ocr.New(ctx, ocrConfig(cfg), log)
		if err != nil {
			// Text extraction still works without a recognizer; image jobs fail.
			log.Warn("ocr unavailable", "provider", cfg.OCRProvider, "error", err)
			recognizer = unavailable{err: err}
		}
		stats := ocr.NewStats(time.Hour)
		recognizer = ocr.Timed(recognizer, stats)

		orch := pipeline.NewOrchestrator(cfg, recognizer, log)
		orch.Start(ctx)

		srv := api.NewServer(orch, stats, state.NewStore(cfg.StateFile), log, cfg)

		httpServer := &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      srv,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: cfg.OCRTimeout + 30*time.Second,
			IdleTimeout:  60 * time.Second,
		}

		go func() {
			<-ctx.Done()
			log.Info("shutting down...")

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			httpServer.Shutdown(shutdownCtx)

			// After the server has drained, so no handler can still submit.
			orch.Stop()

			if c, ok := recognizer.(io.Closer); ok {
				c.Close()
			}
		}()

		log.Info("starting sheetgen", "port", cfg.Port, "ocr_provider", cfg.OCRProvider)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "port to listen on (overrides config)")
}

// unavailable stands in for a recognizer that could not be constructed.
type unavailable struct {
	err error
}

func (u unavailable) Name() string { return "unavailable" }

func (u unavailable) Recognize(ctx context.Context, image []byte, progress ocr.ProgressFunc) (string, error) {
	return "", u.err
}
