package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"acharya-backend/internal/models"
)

type GeneratedRepo struct {
	pool *pgxpool.Pool
}

func NewGeneratedRepo(pool *pgxpool.Pool) *GeneratedRepo {
	return &GeneratedRepo{pool: pool}
}

func (r *GeneratedRepo) Create(ctx context.Context, g *models.GeneratedContent) error {
	g.ID = uuid.New()

	contentBytes, err := json.Marshal(g.Content)
	if err != nil {
		return err
	}

	query := `INSERT INTO generated_content (id, session_id, user_id, document_id, type, content)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		g.ID, g.SessionID, g.UserID, g.DocumentID, g.Type, contentBytes,
	).Scan(&g.CreatedAt, &g.UpdatedAt)
}

func (r *GeneratedRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.GeneratedContent, error) {
	g := &models.GeneratedContent{}
	var contentBytes []byte

	query := `SELECT id, session_id, user_id, document_id, type, content, created_at, updated_at
		FROM generated_content WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&g.ID, &g.SessionID, &g.UserID, &g.DocumentID, &g.Type, &contentBytes,
		&g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(contentBytes, &g.Content); err != nil {
		return nil, err
	}
	return g, nil
}

// GetBySessionAndID scopes the lookup to one session, matching the
// regenerate-audio route which addresses content through its session.
func (r *GeneratedRepo) GetBySessionAndID(ctx context.Context, sessionID, id uuid.UUID) (*models.GeneratedContent, error) {
	g := &models.GeneratedContent{}
	var contentBytes []byte

	query := `SELECT id, session_id, user_id, document_id, type, content, created_at, updated_at
		FROM generated_content WHERE id = $1 AND session_id = $2`

	err := r.pool.QueryRow(ctx, query, id, sessionID).Scan(
		&g.ID, &g.SessionID, &g.UserID, &g.DocumentID, &g.Type, &contentBytes,
		&g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(contentBytes, &g.Content); err != nil {
		return nil, err
	}
	return g, nil
}

func (r *GeneratedRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.GeneratedContent, error) {
	query := `SELECT id, session_id, user_id, document_id, type, content, created_at, updated_at
		FROM generated_content WHERE session_id = $1 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.GeneratedContent
	for rows.Next() {
		g := &models.GeneratedContent{}
		var contentBytes []byte
		if err := rows.Scan(&g.ID, &g.SessionID, &g.UserID, &g.DocumentID, &g.Type, &contentBytes,
			&g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(contentBytes, &g.Content); err != nil {
			return nil, err
		}
		items = append(items, g)
	}

	return items, rows.Err()
}

// UpdateContent overwrites the payload, used by the audio-regeneration path.
// Last writer wins; concurrent regenerations are not coordinated.
func (r *GeneratedRepo) UpdateContent(ctx context.Context, id uuid.UUID, content models.ContentPayload) error {
	contentBytes, err := json.Marshal(content)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		"UPDATE generated_content SET content = $1, updated_at = NOW() WHERE id = $2",
		contentBytes, id)
	return err
}
