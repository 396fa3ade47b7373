package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"orbitdrive/internal/domain"
)

type ShareRepository struct {
	db *sqlx.DB
}

func NewShareRepository(db *sqlx.DB) *ShareRepository {
	return &ShareRepository{db: db}
}

// Upsert inserts the share, or overwrites the permission when a grant for
// the same (folder, user) pair already exists.
func (r *ShareRepository) Upsert(ctx context.Context, share *domain.Share) error {
	query := `
        INSERT INTO shares (id, folder_id, user_id, permission)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (folder_id, user_id)
        DO UPDATE SET permission = EXCLUDED.permission, updated_at = CURRENT_TIMESTAMP
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		share.ID,
		share.FolderID,
		share.UserID,
		share.Permission,
	).Scan(&share.ID, &share.CreatedAt, &share.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert share: %w", err)
	}

	return nil
}

func (r *ShareRepository) Get(ctx context.Context, folderID, userID uuid.UUID) (*domain.Share, error) {
	query := `
        SELECT id, folder_id, user_id, permission, created_at, updated_at
        FROM shares
        WHERE folder_id = $1 AND user_id = $2`

	var share domain.Share
	if err := r.db.GetContext(ctx, &share, query, folderID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("share on folder %s for user %s: %w", folderID, userID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get share: %w", err)
	}

	return &share, nil
}

func (r *ShareRepository) Delete(ctx context.Context, folderID, userID uuid.UUID) error {
	result, err := r.db.ExecContext(
		ctx,
		`DELETE FROM shares WHERE folder_id = $1 AND user_id = $2`,
		folderID,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete share: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("share on folder %s for user %s: %w", folderID, userID, domain.ErrNotFound)
	}

	return nil
}

func (r *ShareRepository) ListByFolder(ctx context.Context, folderID uuid.UUID) ([]domain.ShareGrant, error) {
	query := `
        SELECT
            s.id, s.folder_id, s.user_id, s.permission,
            s.created_at, s.updated_at,
            u.email AS grantee_email,
            u.name AS grantee_name,
            u.avatar_ref AS grantee_avatar
        FROM shares s
        INNER JOIN users u ON u.id = s.user_id
        WHERE s.folder_id = $1
        ORDER BY s.created_at ASC`

	grants := []domain.ShareGrant{}
	if err := r.db.SelectContext(ctx, &grants, query, folderID); err != nil {
		return nil, fmt.Errorf("failed to list shares for folder: %w", err)
	}

	return grants, nil
}

func (r *ShareRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.SharedFolder, error) {
	query := `
        SELECT
            s.id, s.folder_id, s.user_id, s.permission,
            s.created_at, s.updated_at,
            n.name AS folder_name,
            u.email AS owner_email,
            u.name AS owner_name
        FROM shares s
        INNER JOIN nodes n ON n.id = s.folder_id
        INNER JOIN users u ON u.id = n.owner_id
        WHERE s.user_id = $1 AND n.deleted = FALSE
        ORDER BY s.created_at DESC`

	folders := []domain.SharedFolder{}
	if err := r.db.SelectContext(ctx, &folders, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list shared folders: %w", err)
	}

	return folders, nil
}
