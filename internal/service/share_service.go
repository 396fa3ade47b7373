package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"orbitdrive/internal/domain"
)

// ShareService manages the share edges: who can see which folder and whether
// they may write into it. Share management is owner-only (admin override),
// and unlike plain node access it does report ErrForbidden.
type ShareService struct {
	nodes  NodeStore
	shares ShareStore
	users  UserStore
}

func NewShareService(nodes NodeStore, shares ShareStore, users UserStore) *ShareService {
	return &ShareService{
		nodes:  nodes,
		shares: shares,
		users:  users,
	}
}

// ownedFolder fetches the folder and checks that the principal owns it or is
// an admin.
func (s *ShareService) ownedFolder(ctx context.Context, principal domain.Principal, folderID uuid.UUID) (*domain.Node, error) {
	folder, err := s.nodes.GetByID(ctx, folderID, principal.IsAdmin())
	if err != nil {
		return nil, err
	}
	if !principal.IsAdmin() && folder.OwnerID != principal.UserID {
		return nil, fmt.Errorf("share management on folder %s: %w", folderID, domain.ErrForbidden)
	}
	return folder, nil
}

// Share grants granteeID access to folderID, overwriting the permission of
// an existing grant for the same pair.
func (s *ShareService) Share(ctx context.Context, principal domain.Principal, folderID, granteeID uuid.UUID, permission domain.Permission) (*domain.Share, error) {
	if !permission.Valid() {
		return nil, fmt.Errorf("invalid permission %q: %w", permission, domain.ErrInvalidOperation)
	}

	folder, err := s.ownedFolder(ctx, principal, folderID)
	if err != nil {
		return nil, err
	}
	if !folder.IsFolder() {
		return nil, fmt.Errorf("node %s is not a folder: %w", folderID, domain.ErrInvalidOperation)
	}
	if granteeID == folder.OwnerID {
		return nil, fmt.Errorf("cannot share folder with its owner: %w", domain.ErrInvalidOperation)
	}

	if _, err := s.users.GetByID(ctx, granteeID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("grantee %s: %w", granteeID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get grantee: %w", err)
	}

	share := &domain.Share{
		ID:         uuid.New(),
		FolderID:   folder.ID,
		UserID:     granteeID,
		Permission: permission,
	}

	if err := s.shares.Upsert(ctx, share); err != nil {
		return nil, fmt.Errorf("failed to upsert share: %w", err)
	}

	return share, nil
}

// Unshare revokes a grant. Missing grants are reported as ErrNotFound.
func (s *ShareService) Unshare(ctx context.Context, principal domain.Principal, folderID, granteeID uuid.UUID) error {
	if _, err := s.ownedFolder(ctx, principal, folderID); err != nil {
		return err
	}

	if err := s.shares.Delete(ctx, folderID, granteeID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("share on folder %s for user %s: %w", folderID, granteeID, domain.ErrNotFound)
		}
		return fmt.Errorf("failed to delete share: %w", err)
	}

	return nil
}

// ListShares enumerates the grants on a folder, grantee identity included.
func (s *ShareService) ListShares(ctx context.Context, principal domain.Principal, folderID uuid.UUID) ([]domain.ShareGrant, error) {
	if _, err := s.ownedFolder(ctx, principal, folderID); err != nil {
		return nil, err
	}

	grants, err := s.shares.ListByFolder(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shares: %w", err)
	}

	return grants, nil
}

// ListSharedWithMe enumerates the folders shared with the principal.
func (s *ShareService) ListSharedWithMe(ctx context.Context, principal domain.Principal) ([]domain.SharedFolder, error) {
	folders, err := s.shares.ListByUser(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shared folders: %w", err)
	}

	return folders, nil
}
