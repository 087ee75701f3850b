package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/postflow/internal/models"
)

type PostMediaRepository interface {
	Create(ctx context.Context, tx *sql.Tx, item *models.MediaItem) (int64, error)
	ListByPostID(ctx context.Context, postID int64) ([]models.MediaItem, error)
}

type postMediaRepository struct {
	db *sql.DB
}

func NewPostMediaRepository(db *sql.DB) PostMediaRepository {
	return &postMediaRepository{db: db}
}

func (r *postMediaRepository) Create(ctx context.Context, tx *sql.Tx, item *models.MediaItem) (int64, error) {
	var id int64
	var err error

	query := `
		INSERT INTO post_media (post_id, media_type, file_url, file_size, alt_text, display_order)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	args := []any{item.PostID, item.MediaType, item.FileURL, item.FileSize, item.AltText, item.DisplayOrder}
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	}

	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postMediaRepository) ListByPostID(ctx context.Context, postID int64) ([]models.MediaItem, error) {
	query := `
		SELECT id, post_id, media_type, file_url, file_size, alt_text, display_order, created_at
		FROM post_media
		WHERE post_id = $1
		ORDER BY display_order, id
	`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var items []models.MediaItem
	for rows.Next() {
		var m models.MediaItem
		if err := rows.Scan(&m.ID, &m.PostID, &m.MediaType, &m.FileURL, &m.FileSize, &m.AltText, &m.DisplayOrder, &m.CreatedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		items = append(items, m)
	}

	if err = rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return items, nil
}
