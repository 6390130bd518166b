package license

import (
	"context"
	"database/sql"
	"fmt"
)

// Repository is the storage contract for license grants.
type Repository interface {
	LatestActive(ctx context.Context, userID string) (*License, error)
	Create(ctx context.Context, l *License) error
	Deactivate(ctx context.Context, userID string) error
}

// PostgresRepository implements Repository over database/sql.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// LatestActive returns the newest non-revoked license for the user, or nil
// when none exists.
func (r *PostgresRepository) LatestActive(ctx context.Context, userID string) (*License, error) {
	query := `
		SELECT id, user_id, fecha_inicio, fecha_fin, estado, created_at
		FROM licencias
		WHERE user_id = $1 AND estado = TRUE
		ORDER BY fecha_fin DESC
		LIMIT 1`

	var l License
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&l.ID, &l.UserID, &l.FechaInicio, &l.FechaFin, &l.Estado, &l.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest license: %w", err)
	}
	return &l, nil
}

func (r *PostgresRepository) Create(ctx context.Context, l *License) error {
	query := `
		INSERT INTO licencias (user_id, fecha_inicio, fecha_fin, estado)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, l.UserID, l.FechaInicio, l.FechaFin, l.Estado).
		Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert license: %w", err)
	}
	return nil
}

// Deactivate revokes every active license the user holds.
func (r *PostgresRepository) Deactivate(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE licencias SET estado = FALSE WHERE user_id = $1 AND estado = TRUE`, userID)
	if err != nil {
		return fmt.Errorf("deactivate licenses: %w", err)
	}
	return nil
}
