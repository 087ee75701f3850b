package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/platform"
	"github.com/maheshrc27/postflow/internal/transfer"
)

var ErrAlreadyPublished = errors.New("post is already published")

type PostStore interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error)
	CheckByUserID(ctx context.Context, postID, userID int64) (bool, error)
	Remove(ctx context.Context, id int64) error
}

type MediaStore interface {
	Create(ctx context.Context, tx *sql.Tx, item *models.MediaItem) (int64, error)
	ListByPostID(ctx context.Context, postID int64) ([]models.MediaItem, error)
}

type PublicationLister interface {
	ListByPostID(ctx context.Context, postID int64) ([]*models.Publication, error)
}

type AnalyticsLister interface {
	ListByPostID(ctx context.Context, postID int64) ([]*models.PostAnalytics, error)
}

type ActiveAccountLookup interface {
	GetActive(ctx context.Context, userID int64, platform string) (*models.SocialAccount, error)
}

// Enqueuer schedules the asynchronous publish of a post.
type Enqueuer interface {
	EnqueuePublish(ctx context.Context, postID int64, at time.Time) error
}

type PostService interface {
	CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation) (*models.Post, error)
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	PostInfo(ctx context.Context, postID, userID int64) (*transfer.PostInfo, error)
	Remove(ctx context.Context, userID, postID int64) error
	PublishNow(ctx context.Context, userID, postID int64) (map[string]PublicationOutcome, error)
	Unpublish(ctx context.Context, userID, postID int64) (map[string]bool, error)
	SyncAnalytics(ctx context.Context, userID, postID int64) (map[string]models.PostAnalytics, error)
	Analytics(ctx context.Context, userID, postID int64) ([]*models.PostAnalytics, error)
}

type postService struct {
	db        *sql.DB
	pr        PostStore
	pm        MediaStore
	pl        PublicationLister
	an        AnalyticsLister
	ac        ActiveAccountLookup
	pub       PublicationService
	scheduler Enqueuer
}

func NewPostService(
	db *sql.DB,
	pr PostStore,
	pm MediaStore,
	pl PublicationLister,
	an AnalyticsLister,
	ac ActiveAccountLookup,
	pub PublicationService,
	scheduler Enqueuer) PostService {
	return &postService{
		db:        db,
		pr:        pr,
		pm:        pm,
		pl:        pl,
		an:        an,
		ac:        ac,
		pub:       pub,
		scheduler: scheduler,
	}
}

// withTx runs fn inside a transaction. Without a database handle fn gets a
// nil transaction and the stores fall back to their own connection.
func (s *postService) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if s.db == nil {
		return fn(nil)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func validMediaType(t string) bool {
	return t == models.MediaTypeImage || t == models.MediaTypeVideo || t == models.MediaTypeGIF
}

func (s *postService) CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation) (*models.Post, error) {
	if pc == nil {
		err := errors.New("post creation data is nil")
		slog.Error(err.Error())
		return nil, err
	}
	if strings.TrimSpace(pc.Content) == "" {
		err := errors.New("content cannot be empty")
		slog.Info(err.Error())
		return nil, err
	}

	platforms := normalize(pc.Platforms)
	if len(platforms) == 0 {
		err := errors.New("no platforms selected")
		slog.Info(err.Error())
		return nil, err
	}
	for _, name := range platforms {
		if _, ok := platform.Parse(name); !ok {
			return nil, fmt.Errorf("%w: %s", platform.ErrUnsupported, name)
		}
		account, err := s.ac.GetActive(ctx, userID, name)
		if err != nil {
			return nil, fmt.Errorf("error checking %s account: %w", name, err)
		}
		if account == nil {
			return nil, fmt.Errorf("%w for %s", ErrNoActiveAccount, name)
		}
	}

	for i, m := range pc.Media {
		if !validMediaType(m.MediaType) {
			return nil, fmt.Errorf("media %d: unsupported media type %q", i, m.MediaType)
		}
		if m.FileURL == "" {
			return nil, fmt.Errorf("media %d: file_url is required", i)
		}
	}

	post := &models.Post{
		UserID:    userID,
		Content:   pc.Content,
		Platforms: platforms,
		Status:    models.PostStatusDraft,
	}
	if pc.ScheduledTime != nil {
		at := pc.ScheduledTime.UTC()
		post.ScheduledTime = &at
		post.Status = models.PostStatusScheduled
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		postID, err := s.pr.Create(ctx, tx, post)
		if err != nil {
			return fmt.Errorf("error creating post: %w", err)
		}
		post.ID = postID

		for i, m := range pc.Media {
			item := models.MediaItem{
				PostID:       postID,
				MediaType:    m.MediaType,
				FileURL:      m.FileURL,
				FileSize:     m.FileSize,
				AltText:      m.AltText,
				DisplayOrder: i,
			}
			if _, err := s.pm.Create(ctx, tx, &item); err != nil {
				return fmt.Errorf("error saving media file: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if post.ScheduledTime != nil {
		// The due post sweep picks the post up if this enqueue is lost.
		if err := s.scheduler.EnqueuePublish(ctx, post.ID, *post.ScheduledTime); err != nil {
			slog.Error("error scheduling post", "post_id", post.ID, "error", err)
		}
	}

	return post, nil
}

// owned loads a post of the user or returns ErrPostNotFound.
func (s *postService) owned(ctx context.Context, postID, userID int64) (*models.Post, error) {
	if userID == 0 {
		err := errors.New("User is not valid")
		slog.Info(err.Error())
		return nil, err
	}
	if postID == 0 {
		err := errors.New("post id is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if !isValid {
		return nil, ErrPostNotFound
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("Error getting post info")
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	return post, nil
}

func (s *postService) PostInfo(ctx context.Context, postID, userID int64) (*transfer.PostInfo, error) {
	post, err := s.owned(ctx, postID, userID)
	if err != nil {
		return nil, err
	}

	media, err := s.pm.ListByPostID(ctx, postID)
	if err != nil {
		return nil, err
	}
	pubs, err := s.pl.ListByPostID(ctx, postID)
	if err != nil {
		return nil, err
	}
	analytics, err := s.an.ListByPostID(ctx, postID)
	if err != nil {
		return nil, err
	}

	return &transfer.PostInfo{Post: post, Media: media, Publications: pubs, Analytics: analytics}, nil
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	posts, err := s.pr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Error getting posts")
	}
	return posts, nil
}

func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	if _, err := s.owned(ctx, postID, userID); err != nil {
		return err
	}

	if err := s.pr.Remove(ctx, postID); err != nil {
		return fmt.Errorf("Error removing post")
	}

	return nil
}

// PublishNow publishes a post synchronously. A published post is refused
// while any of its publications is still live, so a fully unpublished post
// can be published again.
func (s *postService) PublishNow(ctx context.Context, userID, postID int64) (map[string]PublicationOutcome, error) {
	post, err := s.owned(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if post.Status == models.PostStatusPublished {
		pubs, err := s.pl.ListByPostID(ctx, postID)
		if err != nil {
			return nil, err
		}
		for _, pub := range pubs {
			if pub.Live() {
				return nil, ErrAlreadyPublished
			}
		}
	}

	media, err := s.pm.ListByPostID(ctx, postID)
	if err != nil {
		return nil, err
	}

	return s.pub.Publish(ctx, post, media)
}

func (s *postService) Unpublish(ctx context.Context, userID, postID int64) (map[string]bool, error) {
	post, err := s.owned(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	return s.pub.Unpublish(ctx, post)
}

func (s *postService) SyncAnalytics(ctx context.Context, userID, postID int64) (map[string]models.PostAnalytics, error) {
	post, err := s.owned(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	return s.pub.SyncAnalytics(ctx, post)
}

func (s *postService) Analytics(ctx context.Context, userID, postID int64) ([]*models.PostAnalytics, error) {
	if _, err := s.owned(ctx, postID, userID); err != nil {
		return nil, err
	}
	return s.an.ListByPostID(ctx, postID)
}
