package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/DieselDot/Trademind/internal/api"
)

func newServeCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve the tracker over HTTP. Requests act for the user named in the
X-User-ID header, or the configured user when the header is absent.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config.Server
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}

			server := api.New(api.Config{
				Addr:           cfg.Addr,
				DevMode:        cfg.DevMode,
				RequestTimeout: cfg.RequestTimeout,
				AllowedOrigins: cfg.AllowedOrigins,
				DefaultUser:    app.UserID,
				Log:            app.Logger,
				Store:          app.Store,
				Tracker:        app.Tracker,
				Composer:       app.Composer,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: [server] addr from config)")
	return cmd
}
