package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/app"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/spf13/cobra"
)

// loadConfig reads the environment, sets up logging and runs validate.
func loadConfig(validate func(*config.Config) error) (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	setupLogger(cfg.LogLevel, cfg.LogFormat)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API together with the queue worker and cron sweeps",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig((*config.Config).ValidateForServe)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, true)
		},
	}
}

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the queue worker and cron sweeps only",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig((*config.Config).ValidateForWorker)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, false)
		},
	}
}

func run(ctx context.Context, cfg *config.Config, withHTTP bool) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	server := asynq.NewServer(a.RedisOpt(), asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
	})
	mux := asynq.NewServeMux()
	a.Worker().Register(mux)
	if err := server.Start(mux); err != nil {
		return fmt.Errorf("could not start asynq server: %w", err)
	}
	defer server.Shutdown()

	c, err := a.Sweeper().Schedule(cfg.DuePostsInterval, cfg.AnalyticsInterval)
	if err != nil {
		return err
	}
	c.Start()
	defer c.Stop()

	errs := make(chan error, 1)
	if withHTTP {
		httpApp := a.HTTP()
		go func() {
			slog.Info("server is running", "addr", cfg.HTTPAddr)
			errs <- httpApp.Listen(cfg.HTTPAddr)
		}()
		defer func() {
			if err := httpApp.Shutdown(); err != nil {
				slog.Error("failed to shut down server", "error", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down")
		return nil
	case err := <-errs:
		return err
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig((*config.Config).Validate)
			if err != nil {
				return err
			}

			db, err := repository.Open(cmd.Context(), cfg.PostgresURI)
			if err != nil {
				return err
			}
			defer db.Close()

			return repository.Migrate(cmd.Context(), db)
		},
	}
}

// oneShot builds a command that runs fn against a single post and prints
// its result as JSON.
func oneShot(use, short string, fn func(ctx context.Context, a *app.App, postID int64) (any, error)) *cobra.Command {
	var postID int64
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig((*config.Config).ValidateForWorker)
			if err != nil {
				return err
			}

			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			out, err := fn(cmd.Context(), a, postID)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().Int64Var(&postID, "post", 0, "post id")
	_ = cmd.MarkFlagRequired("post")
	return cmd
}

func publishCmd() *cobra.Command {
	return oneShot("publish", "Publish a post to all of its platforms now", func(ctx context.Context, a *app.App, postID int64) (any, error) {
		post, err := a.LoadPost(ctx, postID)
		if err != nil {
			return nil, err
		}
		media, err := a.PostMedia.ListByPostID(ctx, postID)
		if err != nil {
			return nil, err
		}
		return a.PublicationService.Publish(ctx, post, media)
	})
}

func unpublishCmd() *cobra.Command {
	return oneShot("unpublish", "Delete a post from every platform it is live on", func(ctx context.Context, a *app.App, postID int64) (any, error) {
		post, err := a.LoadPost(ctx, postID)
		if err != nil {
			return nil, err
		}
		return a.PublicationService.Unpublish(ctx, post)
	})
}

func syncAnalyticsCmd() *cobra.Command {
	return oneShot("sync-analytics", "Refresh the analytics of a published post", func(ctx context.Context, a *app.App, postID int64) (any, error) {
		post, err := a.LoadPost(ctx, postID)
		if err != nil {
			return nil, err
		}
		return a.PublicationService.SyncAnalytics(ctx, post)
	})
}
