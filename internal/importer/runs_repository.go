package importer

import (
	"context"
	"database/sql"
	"time"
)

// RunsRepository stores the immutable per-commit audit log.
type RunsRepository interface {
	Create(ctx context.Context, run *ImportRun) error
	List(ctx context.Context, limit int) ([]ImportRun, error)
}

// PostgresRunsRepository implements RunsRepository on database/sql.
type PostgresRunsRepository struct {
	db *sql.DB
}

func NewPostgresRunsRepository(db *sql.DB) *PostgresRunsRepository {
	return &PostgresRunsRepository{db: db}
}

func (r *PostgresRunsRepository) Create(ctx context.Context, run *ImportRun) error {
	run.CreatedAt = time.Now().UTC()
	return r.db.QueryRowContext(ctx, `
		INSERT INTO import_runs (user_id, filename, total_rows, imported, omitted, errors, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		run.UserID, run.Filename, run.TotalRows, run.Imported, run.Omitted, run.Errors, run.CreatedAt).Scan(&run.ID)
}

func (r *PostgresRunsRepository) List(ctx context.Context, limit int) ([]ImportRun, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, filename, total_rows, imported, omitted, errors, created_at
		FROM import_runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ImportRun{}
	for rows.Next() {
		var run ImportRun
		if err := rows.Scan(&run.ID, &run.UserID, &run.Filename, &run.TotalRows,
			&run.Imported, &run.Omitted, &run.Errors, &run.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
