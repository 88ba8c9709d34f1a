package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/Desarso/ideassist/server"
	"github.com/Desarso/ideassist/stores"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve assistant panels over HTTP and WebSocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := loadViper(cmd)
			if err != nil {
				return err
			}
			for key, flag := range map[string]string{
				"server.addr":      "addr",
				"model.provider":   "provider",
				"model.name":       "model",
				"store.type":       "store",
				"store.connection": "db",
				"analysis.enabled": "analysis",
			} {
				if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return err
				}
			}

			logger := log.New(os.Stdout, "[SERVE] ", log.LstdFlags)

			store, err := stores.NewStore(storeConfig(v))
			if err != nil {
				return err
			}
			defer store.Close()

			cfg := assistConfig(v).WithStore(store)
			registry, err := cfg.NewRegistry()
			if err != nil {
				return err
			}
			defer registry.Close()

			scheduler := cron.New()
			retention := &stores.Retention{
				Store:    store,
				MaxAge:   v.GetDuration("retention.max_age"),
				Schedule: v.GetString("retention.schedule"),
				Logger:   logger,
			}
			if _, err := retention.Register(scheduler); err != nil {
				return err
			}
			scheduler.Start()
			defer scheduler.Stop()

			srv := server.New(registry,
				server.WithStore(store),
				server.WithCompletionRate(rate.Limit(v.GetFloat64("completions.rate")), v.GetInt("completions.burst")),
			)
			httpServer := &http.Server{
				Addr:    v.GetString("server.addr"),
				Handler: srv.Router(),
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Printf("listening on %s (provider %s)", httpServer.Addr, cfg.Provider)
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

			logger.Printf("shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpServer.Shutdown(ctx)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().String("provider", "openrouter", "model provider (gemini, openrouter, openai, groq, cerebras, anthropic)")
	cmd.Flags().String("model", "", "model identifier; empty uses the provider default")
	cmd.Flags().String("store", "sqlite", "store type (sqlite or postgres)")
	cmd.Flags().String("db", "ideassist.sqlite", "sqlite path or postgres DSN")
	cmd.Flags().Bool("analysis", false, "analyze the editor content after edits")
	return cmd
}
