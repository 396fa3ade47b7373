package service

import (
	"context"

	"github.com/google/uuid"

	"orbitdrive/internal/domain"
)

// NodeStore is the relational view of the storage tree. Implementations must
// map a missing row to domain.ErrNotFound.
type NodeStore interface {
	Create(ctx context.Context, node *domain.Node) error
	GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*domain.Node, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) error
	UpdateParent(ctx context.Context, id uuid.UUID, parentID *uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListChildren(ctx context.Context, parentID uuid.UUID, includeDeleted bool) ([]domain.Node, error)
	ListRoots(ctx context.Context, filter domain.NodeFilter) ([]domain.Node, error)

	// SoftDeleteTree flips the deleted flag on rootID and every descendant
	// owned by ownerID, in one atomic statement.
	SoftDeleteTree(ctx context.Context, rootID, ownerID uuid.UUID) error

	// CollectSubtree returns rootID and all its descendants, parents before
	// children, soft-deleted rows included.
	CollectSubtree(ctx context.Context, rootID uuid.UUID) ([]domain.Node, error)

	// HardDeleteTree removes the subtree rows permanently.
	HardDeleteTree(ctx context.Context, rootID uuid.UUID) error

	ListBlobRefsByOwner(ctx context.Context, ownerID uuid.UUID) ([]string, error)
}

type ShareStore interface {
	// Upsert inserts the share or, when a share for the same (folder, user)
	// pair exists, overwrites its permission.
	Upsert(ctx context.Context, share *domain.Share) error
	Get(ctx context.Context, folderID, userID uuid.UUID) (*domain.Share, error)
	Delete(ctx context.Context, folderID, userID uuid.UUID) error
	ListByFolder(ctx context.Context, folderID uuid.UUID) ([]domain.ShareGrant, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.SharedFolder, error)
}

type UserStore interface {
	// Create maps a duplicate email to domain.ErrConflict.
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*domain.User, error)

	// Delete removes the user; owned nodes and share rows go with it via
	// foreign-key cascade.
	Delete(ctx context.Context, id uuid.UUID) error
}
