// Ecofan-sim serves a simulated eCO fan controller for development.
//
// It answers GET and POST on /api/state exactly like the real controller,
// so the rest of ecofan can be exercised without hardware:
//
//	ecofan-sim --listen 127.0.0.1:8080 &
//	ecofan setup --host http://127.0.0.1:8080 --name Sim
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/ecofan/internal/deviceapi"
	"github.com/muurk/ecofan/internal/logging"
	"github.com/muurk/ecofan/internal/simulator"
	"github.com/muurk/ecofan/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var (
	listen   string
	initOn   bool
	initFan  int
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:     "ecofan-sim",
	Short:   "Simulated eCO fan controller",
	Version: version.Version,
	Args:    cobra.NoArgs,
	RunE:    runSim,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.Flags().StringVar(&listen, "listen", "127.0.0.1:8080", "Address to serve /api/state on")
	rootCmd.Flags().BoolVar(&initOn, "on", false, "Start powered on")
	rootCmd.Flags().IntVar(&initFan, "fan", 1, "Starting speed level (1-3)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func runSim(cmd *cobra.Command, args []string) error {
	if initFan < 1 || initFan > 3 {
		return fmt.Errorf("--fan must be 1, 2 or 3, got %d", initFan)
	}
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}
	defer logging.Sync()
	log := logging.Named("sim")

	dev := simulator.New(deviceapi.State{On: initOn, Fan: initFan}, log)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle(deviceapi.StatePath, dev)

	srv := &http.Server{
		Addr:              listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		log.Info("Simulator listening", zap.String("addr", listen), zap.Bool("on", initOn), zap.Int("fan", initFan))
		errChan <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info("Shutting down simulator")
		return srv.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
