package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"orbitdrive/internal/domain"
)

// maxAncestorDepth bounds every parent-chain walk. The tree is acyclic by
// invariant, but a broken parent pointer must not turn into an infinite loop.
const maxAncestorDepth = 512

// AccessService decides whether a principal may touch a node and at what
// permission level. Admins bypass all policy, soft-deleted nodes included.
// For everyone else access comes from ownership, a direct share, or the
// nearest satisfying ancestor in the parent chain.
type AccessService struct {
	nodes  NodeStore
	shares ShareStore
}

func NewAccessService(nodes NodeStore, shares ShareStore) *AccessService {
	return &AccessService{
		nodes:  nodes,
		shares: shares,
	}
}

// Resolve returns the node and the permission the principal holds on it.
// A node the principal cannot see at all resolves as domain.ErrNotFound,
// never domain.ErrForbidden, so the tree structure does not leak.
func (s *AccessService) Resolve(ctx context.Context, principal domain.Principal, nodeID uuid.UUID) (*domain.Node, domain.Permission, error) {
	if principal.IsAdmin() {
		node, err := s.nodes.GetByID(ctx, nodeID, true)
		if err != nil {
			return nil, "", err
		}
		return node, domain.PermissionWrite, nil
	}

	node, err := s.nodes.GetByID(ctx, nodeID, false)
	if err != nil {
		return nil, "", err
	}

	if node.OwnerID == principal.UserID {
		return node, domain.PermissionWrite, nil
	}

	share, err := s.shares.Get(ctx, node.ID, principal.UserID)
	if err == nil {
		return node, share.Permission, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, "", fmt.Errorf("failed to check share: %w", err)
	}

	perm, err := s.resolveFromAncestors(ctx, principal, node)
	if err != nil {
		return nil, "", err
	}

	return node, perm, nil
}

// ResolveWrite is Resolve gated on write permission. A node the principal
// can read but not modify yields domain.ErrForbidden: at that point the
// caller already knows the node exists.
func (s *AccessService) ResolveWrite(ctx context.Context, principal domain.Principal, nodeID uuid.UUID) (*domain.Node, error) {
	node, perm, err := s.Resolve(ctx, principal, nodeID)
	if err != nil {
		return nil, err
	}
	if perm != domain.PermissionWrite {
		return nil, fmt.Errorf("write access to node %s: %w", nodeID, domain.ErrForbidden)
	}
	return node, nil
}

// resolveFromAncestors walks the parent chain looking for the nearest folder
// the principal owns or has a share on. The permission of that ancestor is
// inherited by the node. The walk keeps a visited set so a corrupted chain
// terminates instead of looping.
func (s *AccessService) resolveFromAncestors(ctx context.Context, principal domain.Principal, node *domain.Node) (domain.Permission, error) {
	visited := map[uuid.UUID]bool{node.ID: true}
	current := node

	for depth := 0; current.ParentID != nil && depth < maxAncestorDepth; depth++ {
		parentID := *current.ParentID
		if visited[parentID] {
			break
		}
		visited[parentID] = true

		parent, err := s.nodes.GetByID(ctx, parentID, false)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				break
			}
			return "", fmt.Errorf("failed to get ancestor %s: %w", parentID, err)
		}

		if parent.OwnerID == principal.UserID {
			return domain.PermissionWrite, nil
		}

		share, err := s.shares.Get(ctx, parent.ID, principal.UserID)
		if err == nil {
			return share.Permission, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("failed to check ancestor share: %w", err)
		}

		current = parent
	}

	return "", fmt.Errorf("node %s: %w", node.ID, domain.ErrNotFound)
}

// IsDescendant reports whether candidateID is nodeID itself or sits anywhere
// beneath it, by walking the parent chain upward from the candidate. Used by
// Move to keep the tree acyclic.
func (s *AccessService) IsDescendant(ctx context.Context, nodeID, candidateID uuid.UUID) (bool, error) {
	if nodeID == candidateID {
		return true, nil
	}

	visited := map[uuid.UUID]bool{}
	currentID := candidateID

	for depth := 0; depth < maxAncestorDepth; depth++ {
		if visited[currentID] {
			return false, nil
		}
		visited[currentID] = true

		current, err := s.nodes.GetByID(ctx, currentID, true)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return false, nil
			}
			return false, fmt.Errorf("failed to walk ancestors: %w", err)
		}

		if current.ParentID == nil {
			return false, nil
		}
		if *current.ParentID == nodeID {
			return true, nil
		}
		currentID = *current.ParentID
	}

	return false, nil
}
