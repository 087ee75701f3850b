// Package app wires repositories, services and the queue from configuration.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hibiken/asynq"
	config "github.com/maheshrc27/postflow/configs"
	job "github.com/maheshrc27/postflow/internal/jobs"
	"github.com/maheshrc27/postflow/internal/media"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/platform"
	"github.com/maheshrc27/postflow/internal/queue"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/service"
	"github.com/maheshrc27/postflow/internal/storage"
)

// maxUploadBytes caps media uploads and downloads.
const maxUploadBytes = 100 << 20

type App struct {
	Config *config.Config
	DB     *sql.DB

	Posts     repository.PostRepository
	PostMedia repository.PostMediaRepository
	Users     repository.UserRepository
	ApiKeys   repository.ApiKeyRepository

	AccountService     service.AccountService
	PublicationService service.PublicationService
	PostService        service.PostService
	MediaService       service.MediaService
	AuthService        service.AuthService
	UserService        service.UserService
	ApiKeyService      service.ApiKeyService

	Queue       *queue.Client
	asynqClient *asynq.Client
}

func (a *App) RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: a.Config.RedisURI}
}

// New opens the database and builds every service. Storage is optional:
// without R2 credentials uploads are refused and media is fetched over HTTP.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	platforms, err := config.LoadPlatforms(cfg.PlatformsConfig)
	if err != nil {
		return nil, err
	}

	db, err := repository.Open(ctx, cfg.PostgresURI)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, DB: db}

	var (
		objects service.ObjectStore
		store   media.Store
	)
	if cfg.StorageEnabled() {
		r2, err := storage.NewR2(ctx, cfg.R2)
		if err != nil {
			db.Close()
			return nil, err
		}
		objects, store = r2, r2
	} else {
		slog.Warn("R2 storage is not configured, media uploads are disabled")
	}

	hc := &http.Client{Timeout: cfg.DispatchTimeout}
	registry := platform.NewRegistry(platforms, platform.Deps{
		HTTPClient: hc,
		Media:      media.NewFetcher(hc, store, maxUploadBytes),
	})

	a.Posts = repository.NewPostRepository(db)
	a.PostMedia = repository.NewPostMediaRepository(db)
	a.Users = repository.NewUserRepository(db)
	a.ApiKeys = repository.NewApiKeyRepository(db)
	accounts := repository.NewSocialAccountRepository(db)
	publications := repository.NewPublicationRepository(db)
	analytics := repository.NewAnalyticsRepository(db)

	a.asynqClient = asynq.NewClient(a.RedisOpt())
	a.Queue = queue.NewClient(a.asynqClient, cfg.AnalyticsInterval/2)

	a.AccountService = service.NewAccountService(cfg.SecretKey, accounts)
	a.PublicationService = service.NewPublicationService(service.PublicationOptions{
		DispatchTimeout: cfg.DispatchTimeout,
		Concurrency:     cfg.PublishConcurrency,
	}, a.AccountService, registry, publications, analytics, a.Posts)
	a.PostService = service.NewPostService(db, a.Posts, a.PostMedia, publications, analytics, accounts, a.PublicationService, a.Queue)
	a.MediaService = service.NewMediaService(objects, maxUploadBytes)
	a.AuthService = service.NewAuthService(*cfg, a.Users)
	a.UserService = service.NewUserService(a.Users)
	a.ApiKeyService = service.NewApiKeyService(a.ApiKeys)

	return a, nil
}

func (a *App) Worker() *queue.Worker {
	return queue.NewWorker(a.Posts, a.PostMedia, a.PublicationService, a.Queue, queue.RetryPolicy{
		MaxRetries: a.Config.MaxPublishRetries,
		Backoff:    a.Config.RetryBackoff,
	})
}

func (a *App) Sweeper() *job.SweepJob {
	return job.NewSweepJob(a.Posts, a.Queue, a.Config.PublishConcurrency)
}

// LoadPost returns ErrPostNotFound for unknown ids.
func (a *App) LoadPost(ctx context.Context, id int64) (*models.Post, error) {
	post, err := a.Posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, fmt.Errorf("post %d: %w", id, service.ErrPostNotFound)
	}
	return post, nil
}

func (a *App) Close() {
	if a.asynqClient != nil {
		if err := a.asynqClient.Close(); err != nil {
			slog.Error("closing queue client", "error", err)
		}
	}
	slog.Info("closing database connection")
	if err := a.DB.Close(); err != nil {
		slog.Error("closing database", "error", err)
	}
}
