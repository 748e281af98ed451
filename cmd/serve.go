package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mangascout/internal/api"
	"mangascout/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve search, details and chapter images over http",
	Run: func(_ *cobra.Command, _ []string) {
		a, err := newApp(nil, func(c *domain.Config) {
			if listenAddr != "" {
				c.ListenAddr = listenAddr
			}
		})
		if err != nil {
			fmt.Println("Invalid config:", err)
			return
		}
		defer a.Close()

		gin.SetMode(gin.ReleaseMode)
		router := api.NewRouter(a.engine, a.log.Zerolog(), time.Now())

		srv := &http.Server{
			Addr:              a.cfg.Config.ListenAddr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			a.log.Info().Str("addr", srv.Addr).Msg("http server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Fatal().Err(err).Msg("http server error")
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		a.log.Info().Str("signal", sig.String()).Msg("shutdown signal received")

		// a search waits for its slowest source
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			a.log.Error().Err(err).Msg("http server forced shutdown")
			return
		}
		a.log.Info().Msg("http server drained gracefully")
	},
}
