package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
)

type PublicationRepository interface {
	Upsert(ctx context.Context, p *models.Publication) (int64, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.Publication, error)
	ListLiveByPostID(ctx context.Context, postID int64) ([]*models.Publication, error)
	MarkDeleted(ctx context.Context, id int64, at time.Time) error
}

type publicationRepository struct {
	db *sql.DB
}

func NewPublicationRepository(db *sql.DB) PublicationRepository {
	return &publicationRepository{db: db}
}

const publicationColumns = `id, post_id, account_id, platform, platform_post_id, is_success, error_kind,
	error_message, attempted_at, published_at, deleted_at`

// Upsert records the latest attempt for a (post, account) pair. A new attempt
// overwrites the previous one and clears any deletion mark.
func (r *publicationRepository) Upsert(ctx context.Context, p *models.Publication) (int64, error) {
	query := `
		INSERT INTO publications (
			post_id, account_id, platform, platform_post_id, is_success,
			error_kind, error_message, attempted_at, published_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (post_id, account_id) DO UPDATE
		SET platform = EXCLUDED.platform,
			platform_post_id = EXCLUDED.platform_post_id,
			is_success = EXCLUDED.is_success,
			error_kind = EXCLUDED.error_kind,
			error_message = EXCLUDED.error_message,
			attempted_at = EXCLUDED.attempted_at,
			published_at = EXCLUDED.published_at,
			deleted_at = NULL
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		p.PostID,
		p.AccountID,
		p.Platform,
		p.PlatformPostID,
		p.IsSuccess,
		p.ErrorKind,
		p.ErrorMessage,
		p.AttemptedAt,
		p.PublishedAt,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *publicationRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.Publication, error) {
	query := `SELECT ` + publicationColumns + ` FROM publications WHERE post_id = $1 ORDER BY id`
	return r.list(ctx, query, postID)
}

// ListLiveByPostID returns successful publications that have not been deleted.
func (r *publicationRepository) ListLiveByPostID(ctx context.Context, postID int64) ([]*models.Publication, error) {
	query := `SELECT ` + publicationColumns + `
		FROM publications
		WHERE post_id = $1 AND is_success AND platform_post_id <> '' AND deleted_at IS NULL
		ORDER BY id`
	return r.list(ctx, query, postID)
}

func (r *publicationRepository) list(ctx context.Context, query string, args ...any) ([]*models.Publication, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var pubs []*models.Publication
	for rows.Next() {
		var p models.Publication
		err := rows.Scan(&p.ID, &p.PostID, &p.AccountID, &p.Platform, &p.PlatformPostID, &p.IsSuccess,
			&p.ErrorKind, &p.ErrorMessage, &p.AttemptedAt, &p.PublishedAt, &p.DeletedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		pubs = append(pubs, &p)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return pubs, nil
}

func (r *publicationRepository) MarkDeleted(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE publications SET deleted_at = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
