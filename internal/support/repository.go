package support

import (
	"context"
	"database/sql"
	"fmt"
)

// Repository persists support requests.
type Repository interface {
	Create(ctx context.Context, r *Request) error
	List(ctx context.Context, limit int) ([]Request, error)
}

// PostgresRepository implements Repository over database/sql.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, req *Request) error {
	query := `
		INSERT INTO soporte_solicitudes (user_id, nombre, correo, tipo, asunto, mensaje)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		req.UserID, req.Nombre, req.Correo, req.Tipo, req.Asunto, req.Mensaje,
	).Scan(&req.ID, &req.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert support request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, limit int) ([]Request, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, user_id, nombre, correo, tipo, asunto, mensaje, created_at
		FROM soporte_solicitudes
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list support requests: %w", err)
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		var req Request
		if err := rows.Scan(&req.ID, &req.UserID, &req.Nombre, &req.Correo, &req.Tipo, &req.Asunto, &req.Mensaje, &req.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan support request: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}
