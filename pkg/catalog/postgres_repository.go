package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresComponentRepository implements ComponentRepository using PostgreSQL
type PostgresComponentRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresComponentRepository creates a new PostgreSQL-based catalog repository
func NewPostgresComponentRepository(pool *pgxpool.Pool) *PostgresComponentRepository {
	return &PostgresComponentRepository{pool: pool}
}

// ListComponents implements ComponentRepository.ListComponents
func (r *PostgresComponentRepository) ListComponents(ctx context.Context) ([]TrainComponent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, type, subtype, image, description_image, description
		 FROM train_component ORDER BY type, subtype`)
	if err != nil {
		return nil, fmt.Errorf("failed to list components: %w", err)
	}
	defer rows.Close()

	var out []TrainComponent
	for rows.Next() {
		var c TrainComponent
		err := rows.Scan(&c.ID, &c.Type, &c.Subtype, &c.Image, &c.DescriptionImage, &c.Description)
		if err != nil {
			return nil, fmt.Errorf("failed to scan component: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading components: %w", err)
	}
	return out, nil
}

// GetComponentByID implements ComponentRepository.GetComponentByID
func (r *PostgresComponentRepository) GetComponentByID(ctx context.Context, id uuid.UUID) (TrainComponent, error) {
	var c TrainComponent
	err := r.pool.QueryRow(ctx,
		`SELECT id, type, subtype, image, description_image, description
		 FROM train_component WHERE id = $1`,
		id).Scan(&c.ID, &c.Type, &c.Subtype, &c.Image, &c.DescriptionImage, &c.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TrainComponent{}, ErrComponentNotFound
		}
		return TrainComponent{}, fmt.Errorf("failed to load component: %w", err)
	}
	return c, nil
}
