package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/postflow/internal/models"
)

type AnalyticsRepository interface {
	Upsert(ctx context.Context, a *models.PostAnalytics) error
	GetByPublicationID(ctx context.Context, publicationID int64) (*models.PostAnalytics, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.PostAnalytics, error)
}

type analyticsRepository struct {
	db *sql.DB
}

func NewAnalyticsRepository(db *sql.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) Upsert(ctx context.Context, a *models.PostAnalytics) error {
	raw := a.RawData
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	query := `
		INSERT INTO post_analytics (
			publication_id, platform, likes, comments, shares, impressions, reach, clicks, raw_data, last_updated
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (publication_id) DO UPDATE
		SET likes = EXCLUDED.likes,
			comments = EXCLUDED.comments,
			shares = EXCLUDED.shares,
			impressions = EXCLUDED.impressions,
			reach = EXCLUDED.reach,
			clicks = EXCLUDED.clicks,
			raw_data = EXCLUDED.raw_data,
			last_updated = EXCLUDED.last_updated
	`
	_, err := r.db.ExecContext(ctx, query, a.PublicationID, a.Platform, a.Likes, a.Comments, a.Shares,
		a.Impressions, a.Reach, a.Clicks, []byte(raw), a.LastUpdated)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *analyticsRepository) GetByPublicationID(ctx context.Context, publicationID int64) (*models.PostAnalytics, error) {
	query := `
		SELECT publication_id, platform, likes, comments, shares, impressions, reach, clicks, raw_data, last_updated
		FROM post_analytics
		WHERE publication_id = $1
	`

	var a models.PostAnalytics
	var raw []byte
	err := r.db.QueryRowContext(ctx, query, publicationID).Scan(&a.PublicationID, &a.Platform, &a.Likes,
		&a.Comments, &a.Shares, &a.Impressions, &a.Reach, &a.Clicks, &raw, &a.LastUpdated)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	a.RawData = raw

	return &a, nil
}

func (r *analyticsRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PostAnalytics, error) {
	query := `
		SELECT a.publication_id, a.platform, a.likes, a.comments, a.shares, a.impressions, a.reach, a.clicks,
			a.raw_data, a.last_updated
		FROM post_analytics a
		JOIN publications p ON p.id = a.publication_id
		WHERE p.post_id = $1
		ORDER BY a.publication_id
	`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var list []*models.PostAnalytics
	for rows.Next() {
		var a models.PostAnalytics
		var raw []byte
		err := rows.Scan(&a.PublicationID, &a.Platform, &a.Likes, &a.Comments, &a.Shares, &a.Impressions,
			&a.Reach, &a.Clicks, &raw, &a.LastUpdated)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		a.RawData = raw
		list = append(list, &a)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return list, nil
}
