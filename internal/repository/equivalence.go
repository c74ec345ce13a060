package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autoparts/catalog/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EquivalenceRepository stores precomputed equivalents sections.
type EquivalenceRepository interface {
	SaveSection(ctx context.Context, q domain.EquivalenceQuery, section *domain.EquivalenceResult) error
	// GetSection returns nil when no section was stored for q after notBefore.
	GetSection(ctx context.Context, q domain.EquivalenceQuery, notBefore time.Time) (*domain.EquivalenceResult, error)
}

type equivalenceRepository struct {
	db *pgxpool.Pool
}

func NewEquivalenceRepository(db *pgxpool.Pool) EquivalenceRepository {
	return &equivalenceRepository{
		db: db,
	}
}

func (r *equivalenceRepository) SaveSection(ctx context.Context, q domain.EquivalenceQuery, section *domain.EquivalenceResult) error {
	query := `
	INSERT INTO equivalence_sections (article_id, country_id, vehicle_id, data, updated_at)
	VALUES ($1, $2, $3, $4, now())
	ON CONFLICT (article_id, country_id, vehicle_id)
	DO UPDATE SET data = $4, updated_at = now()`
	_, err := r.db.Exec(ctx, query, q.ArticleID, q.CountryID, q.VehicleID, section)
	if err != nil {
		return fmt.Errorf("failed to save equivalents section for article %d: %w", q.ArticleID, err)
	}

	return nil
}

func (r *equivalenceRepository) GetSection(ctx context.Context, q domain.EquivalenceQuery, notBefore time.Time) (*domain.EquivalenceResult, error) {
	query := `
	SELECT data FROM equivalence_sections
	WHERE article_id = $1 AND country_id = $2 AND vehicle_id = $3 AND updated_at >= $4`

	var section domain.EquivalenceResult
	err := r.db.QueryRow(ctx, query, q.ArticleID, q.CountryID, q.VehicleID, notBefore).Scan(&section)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load equivalents section for article %d: %w", q.ArticleID, err)
	}

	return &section, nil
}
