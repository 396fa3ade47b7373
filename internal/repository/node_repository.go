package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"orbitdrive/internal/domain"
)

const nodeColumns = `
        id, name, kind, parent_id, owner_id, size_bytes, mime_type,
        extension, blob_ref, thumbnail_ref, deleted, created_at, updated_at`

type NodeRepository struct {
	db *sqlx.DB
}

func NewNodeRepository(db *sqlx.DB) *NodeRepository {
	return &NodeRepository{db: db}
}

func (r *NodeRepository) Create(ctx context.Context, node *domain.Node) error {
	query := `
        INSERT INTO nodes (
            id, name, kind, parent_id, owner_id, size_bytes,
            mime_type, extension, blob_ref, thumbnail_ref
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		node.ID,
		node.Name,
		node.Kind,
		node.ParentID,
		node.OwnerID,
		node.SizeBytes,
		node.MIMEType,
		node.Extension,
		node.BlobRef,
		node.ThumbnailRef,
	).Scan(&node.CreatedAt, &node.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create node: %w", err)
	}

	return nil
}

func (r *NodeRepository) GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*domain.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE id = $1`
	if !includeDeleted {
		query += ` AND deleted = FALSE`
	}

	var node domain.Node
	if err := r.db.GetContext(ctx, &node, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get node: %w", err)
	}

	return &node, nil
}

func (r *NodeRepository) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	query := `
        UPDATE nodes
        SET name = $1, updated_at = CURRENT_TIMESTAMP
        WHERE id = $2 AND deleted = FALSE`

	result, err := r.db.ExecContext(ctx, query, name, id)
	if err != nil {
		return fmt.Errorf("failed to update node name: %w", err)
	}

	return requireRow(result, id)
}

func (r *NodeRepository) UpdateParent(ctx context.Context, id uuid.UUID, parentID *uuid.UUID) error {
	query := `
        UPDATE nodes
        SET parent_id = $1, updated_at = CURRENT_TIMESTAMP
        WHERE id = $2 AND deleted = FALSE`

	result, err := r.db.ExecContext(ctx, query, parentID, id)
	if err != nil {
		return fmt.Errorf("failed to update node parent: %w", err)
	}

	return requireRow(result, id)
}

func (r *NodeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM nodes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}

	return requireRow(result, id)
}

func (r *NodeRepository) ListChildren(ctx context.Context, parentID uuid.UUID, includeDeleted bool) ([]domain.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE parent_id = $1`
	if !includeDeleted {
		query += ` AND deleted = FALSE`
	}
	query += ` ORDER BY (kind = 'folder') DESC, created_at ASC`

	nodes := []domain.Node{}
	if err := r.db.SelectContext(ctx, &nodes, query, parentID); err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}

	return nodes, nil
}

// ListRoots returns root-level nodes matching the filter. Conditions are
// composed from the typed filter with positional parameters only.
func (r *NodeRepository) ListRoots(ctx context.Context, filter domain.NodeFilter) ([]domain.Node, error) {
	conditions := []string{"parent_id IS NULL"}
	args := []interface{}{}

	if !filter.IncludeDeleted {
		conditions = append(conditions, "deleted = FALSE")
	}
	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", len(args)))
	}

	query := `SELECT ` + nodeColumns + `
        FROM nodes
        WHERE ` + strings.Join(conditions, " AND ") + `
        ORDER BY (kind = 'folder') DESC, created_at ASC`

	nodes := []domain.Node{}
	if err := r.db.SelectContext(ctx, &nodes, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list root nodes: %w", err)
	}

	return nodes, nil
}

// SoftDeleteTree flips the deleted flag on the root and every descendant
// owned by ownerID. One statement, so the subtree never ends up half marked.
func (r *NodeRepository) SoftDeleteTree(ctx context.Context, rootID, ownerID uuid.UUID) error {
	query := `
        WITH RECURSIVE subtree AS (
            SELECT id FROM nodes WHERE id = $1

            UNION ALL

            SELECT n.id
            FROM nodes n
            INNER JOIN subtree s ON n.parent_id = s.id
        )
        UPDATE nodes
        SET deleted = TRUE, updated_at = CURRENT_TIMESTAMP
        WHERE id IN (SELECT id FROM subtree) AND owner_id = $2`

	if _, err := r.db.ExecContext(ctx, query, rootID, ownerID); err != nil {
		return fmt.Errorf("failed to soft delete subtree: %w", err)
	}

	return nil
}

// CollectSubtree returns the root and all descendants ordered parents first,
// soft-deleted rows included.
func (r *NodeRepository) CollectSubtree(ctx context.Context, rootID uuid.UUID) ([]domain.Node, error) {
	query := `
        WITH RECURSIVE subtree AS (
            SELECT ` + nodeColumns + `, 0 AS depth
            FROM nodes WHERE id = $1

            UNION ALL

            SELECT ` + prefixed(nodeColumns, "n.") + `, s.depth + 1
            FROM nodes n
            INNER JOIN subtree s ON n.parent_id = s.id
        )
        SELECT ` + nodeColumns + ` FROM subtree ORDER BY depth ASC`

	nodes := []domain.Node{}
	if err := r.db.SelectContext(ctx, &nodes, query, rootID); err != nil {
		return nil, fmt.Errorf("failed to collect subtree: %w", err)
	}

	return nodes, nil
}

// HardDeleteTree removes the root row; descendants and share rows follow via
// foreign-key cascade.
func (r *NodeRepository) HardDeleteTree(ctx context.Context, rootID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM nodes WHERE id = $1`, rootID)
	if err != nil {
		return fmt.Errorf("failed to delete subtree: %w", err)
	}

	return requireRow(result, rootID)
}

func (r *NodeRepository) ListBlobRefsByOwner(ctx context.Context, ownerID uuid.UUID) ([]string, error) {
	query := `SELECT blob_ref FROM nodes WHERE owner_id = $1 AND blob_ref IS NOT NULL`

	refs := []string{}
	if err := r.db.SelectContext(ctx, &refs, query, ownerID); err != nil {
		return nil, fmt.Errorf("failed to list blob refs: %w", err)
	}

	return refs, nil
}

func requireRow(result sql.Result, id uuid.UUID) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// prefixed qualifies each column of a comma-separated list with an alias.
func prefixed(columns, alias string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = alias + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}
