package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"acharya-backend/internal/models"
)

type DocumentRepo struct {
	pool *pgxpool.Pool
}

func NewDocumentRepo(pool *pgxpool.Pool) *DocumentRepo {
	return &DocumentRepo{pool: pool}
}

func (r *DocumentRepo) Create(ctx context.Context, d *models.Document) error {
	d.ID = uuid.New()

	query := `INSERT INTO documents (id, session_id, user_id, title, content, file_path, file_type, source_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		d.ID, d.SessionID, d.UserID, d.Title, d.Content, d.FilePath, d.FileType, d.SourceURL,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
}

func (r *DocumentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	d := &models.Document{}
	query := `SELECT id, session_id, user_id, title, content, file_path, file_type, source_url, created_at, updated_at
		FROM documents WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.SessionID, &d.UserID, &d.Title, &d.Content,
		&d.FilePath, &d.FileType, &d.SourceURL, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *DocumentRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.Document, error) {
	query := `SELECT id, session_id, user_id, title, content, file_path, file_type, source_url, created_at, updated_at
		FROM documents WHERE session_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		d := &models.Document{}
		if err := rows.Scan(&d.ID, &d.SessionID, &d.UserID, &d.Title, &d.Content,
			&d.FilePath, &d.FileType, &d.SourceURL, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}

	return docs, rows.Err()
}

// UpdateContent stores the extracted text after the worker has processed
// the underlying file or transcript.
func (r *DocumentRepo) UpdateContent(ctx context.Context, id uuid.UUID, content string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE documents SET content = $1, updated_at = NOW() WHERE id = $2", content, id)
	return err
}
