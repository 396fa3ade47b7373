package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"orbitdrive/internal/domain"
	"orbitdrive/internal/service/blob"
)

const copySuffix = " (copy)"

// NodeService implements the tree operations: listing with shared-subtree
// visibility, upload/download, rename, move with cycle prevention, recursive
// copy with blob duplication, and soft/hard recursive delete.
type NodeService struct {
	nodes   NodeStore
	shares  ShareStore
	blobs   blob.Storage
	access  *AccessService
	baseURL string
}

func NewNodeService(
	nodes NodeStore,
	shares ShareStore,
	blobs blob.Storage,
	access *AccessService,
	baseURL string,
) *NodeService {
	return &NodeService{
		nodes:   nodes,
		shares:  shares,
		blobs:   blobs,
		access:  access,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// blobKey generates the opaque content-store key for a node. Keys are flat
// and never derived from the logical tree path.
func blobKey(ownerID, nodeID uuid.UUID) string {
	return fmt.Sprintf("drive/%s/%s", ownerID, nodeID)
}

// List returns the children of parentID visible to the principal, or the
// principal's top-level view when parentID is nil: owned root nodes plus
// folders shared with them directly. Folders sort before files, then by
// creation time.
func (s *NodeService) List(ctx context.Context, principal domain.Principal, parentID *uuid.UUID, ownerFilter *uuid.UUID) ([]domain.Node, error) {
	if parentID != nil {
		return s.listChildren(ctx, principal, *parentID)
	}

	if principal.IsAdmin() {
		return s.nodes.ListRoots(ctx, domain.NodeFilter{
			OwnerID:        ownerFilter,
			IncludeDeleted: true,
		})
	}

	owned, err := s.nodes.ListRoots(ctx, domain.NodeFilter{OwnerID: &principal.UserID})
	if err != nil {
		return nil, fmt.Errorf("failed to list root nodes: %w", err)
	}

	seen := make(map[uuid.UUID]bool, len(owned))
	for _, node := range owned {
		seen[node.ID] = true
	}

	shared, err := s.shares.ListByUser(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shares: %w", err)
	}

	result := owned
	for _, share := range shared {
		if seen[share.FolderID] {
			continue
		}
		node, err := s.nodes.GetByID(ctx, share.FolderID, false)
		if err != nil {
			// Soft-deleted shared folders stay out of the grantee's view.
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to get shared node: %w", err)
		}
		seen[node.ID] = true
		result = append(result, *node)
	}

	sortNodes(result)
	return result, nil
}

func (s *NodeService) listChildren(ctx context.Context, principal domain.Principal, parentID uuid.UUID) ([]domain.Node, error) {
	if principal.IsAdmin() {
		children, err := s.nodes.ListChildren(ctx, parentID, true)
		if err != nil {
			return nil, err
		}
		sortNodes(children)
		return children, nil
	}

	// Read access on the parent is all that matters here; visibility of the
	// children is inherited, there is no per-child owner filter.
	if _, _, err := s.access.Resolve(ctx, principal, parentID); err != nil {
		return nil, err
	}

	children, err := s.nodes.ListChildren(ctx, parentID, false)
	if err != nil {
		return nil, err
	}
	sortNodes(children)
	return children, nil
}

func sortNodes(nodes []domain.Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Kind != nodes[j].Kind {
			return nodes[i].Kind == domain.KindFolder
		}
		return nodes[i].CreatedAt.Before(nodes[j].CreatedAt)
	})
}

// GetByID resolves read access and returns the node.
func (s *NodeService) GetByID(ctx context.Context, principal domain.Principal, id uuid.UUID) (*domain.Node, error) {
	node, _, err := s.access.Resolve(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	return node, nil
}

// CreateFolder creates a folder under parentID (nil means root level).
func (s *NodeService) CreateFolder(ctx context.Context, principal domain.Principal, name string, parentID *uuid.UUID) (*domain.Node, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("folder name is empty: %w", domain.ErrInvalidOperation)
	}

	if parentID != nil {
		parent, err := s.access.ResolveWrite(ctx, principal, *parentID)
		if err != nil {
			return nil, err
		}
		if !parent.IsFolder() {
			return nil, fmt.Errorf("parent is not a folder: %w", domain.ErrInvalidOperation)
		}
	}

	folder := &domain.Node{
		ID:       uuid.New(),
		Name:     name,
		Kind:     domain.KindFolder,
		ParentID: parentID,
		OwnerID:  principal.UserID,
	}

	if err := s.nodes.Create(ctx, folder); err != nil {
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}

	return folder, nil
}

// Upload stores the content blob first and only then inserts the metadata
// row, so a failed insert never leaves a row pointing at nothing.
func (s *NodeService) Upload(ctx context.Context, principal domain.Principal, parentID *uuid.UUID, name, mimeType string, size int64, r io.Reader) (*domain.Node, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, fmt.Errorf("file name is empty: %w", domain.ErrInvalidOperation)
	}

	if parentID != nil {
		parent, err := s.access.ResolveWrite(ctx, principal, *parentID)
		if err != nil {
			return nil, err
		}
		if !parent.IsFolder() {
			return nil, fmt.Errorf("parent is not a folder: %w", domain.ErrInvalidOperation)
		}
	}

	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	nodeID := uuid.New()
	key := blobKey(principal.UserID, nodeID)

	if err := s.blobs.Upload(ctx, key, r, size, mimeType); err != nil {
		return nil, fmt.Errorf("failed to upload blob: %w", err)
	}

	node := &domain.Node{
		ID:        nodeID,
		Name:      name,
		Kind:      domain.KindFile,
		ParentID:  parentID,
		OwnerID:   principal.UserID,
		SizeBytes: size,
		MIMEType:  mimeType,
		Extension: strings.TrimPrefix(filepath.Ext(name), "."),
		BlobRef:   &key,
	}

	if err := s.nodes.Create(ctx, node); err != nil {
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			log.Printf("warning: failed to delete blob %s after db error: %v", key, delErr)
		}
		return nil, fmt.Errorf("failed to create file node: %w", err)
	}

	return node, nil
}

// Download resolves read access and opens the content blob. A row whose blob
// has gone missing is a recoverable anomaly, logged and reported upstream.
func (s *NodeService) Download(ctx context.Context, principal domain.Principal, id uuid.UUID) (*domain.Node, blob.Object, error) {
	node, _, err := s.access.Resolve(ctx, principal, id)
	if err != nil {
		return nil, nil, err
	}
	if !node.IsFile() {
		return nil, nil, fmt.Errorf("node %s is not a file: %w", id, domain.ErrInvalidOperation)
	}

	obj, err := s.blobs.Get(ctx, *node.BlobRef)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Printf("[Download] blob %s missing for node %s", *node.BlobRef, node.ID)
		}
		return nil, nil, fmt.Errorf("failed to get blob: %w", err)
	}

	return node, obj, nil
}

// Rename changes the node's name. Requires write access.
func (s *NodeService) Rename(ctx context.Context, principal domain.Principal, id uuid.UUID, name string) (*domain.Node, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("name is empty: %w", domain.ErrInvalidOperation)
	}

	node, err := s.access.ResolveWrite(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	if err := s.nodes.UpdateName(ctx, node.ID, name); err != nil {
		return nil, fmt.Errorf("failed to rename node: %w", err)
	}

	node.Name = name
	return node, nil
}

// Move reparents a node. A nil destination moves it to root level. The
// destination must be a writable folder and must not be the node itself or
// any of its descendants.
func (s *NodeService) Move(ctx context.Context, principal domain.Principal, id uuid.UUID, destinationID *uuid.UUID) (*domain.Node, error) {
	node, err := s.access.ResolveWrite(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	if destinationID != nil {
		dest, err := s.access.ResolveWrite(ctx, principal, *destinationID)
		if err != nil {
			return nil, err
		}
		if !dest.IsFolder() {
			return nil, fmt.Errorf("destination is not a folder: %w", domain.ErrInvalidOperation)
		}

		cyclic, err := s.access.IsDescendant(ctx, node.ID, dest.ID)
		if err != nil {
			return nil, err
		}
		if cyclic {
			return nil, fmt.Errorf("cannot move node into itself or its descendant: %w", domain.ErrInvalidOperation)
		}
	}

	if err := s.nodes.UpdateParent(ctx, node.ID, destinationID); err != nil {
		return nil, fmt.Errorf("failed to move node: %w", err)
	}

	node.ParentID = destinationID
	return node, nil
}

// Copy clones a subtree under a new parent. The clone is owned by the acting
// principal; inside a shared folder only children the principal owns are
// cloned. File blobs are duplicated under fresh keys, so the copy shares
// nothing with the original. On any failure every row and blob created so
// far is rolled back.
func (s *NodeService) Copy(ctx context.Context, principal domain.Principal, id, destinationID uuid.UUID) (*domain.Node, error) {
	source, _, err := s.access.Resolve(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	dest, err := s.access.ResolveWrite(ctx, principal, destinationID)
	if err != nil {
		return nil, err
	}
	if !dest.IsFolder() {
		return nil, fmt.Errorf("destination is not a folder: %w", domain.ErrInvalidOperation)
	}

	var createdNodes []uuid.UUID
	var createdBlobs []string

	clone, err := s.copyNode(ctx, principal, source, dest.ID, source.Name+copySuffix, &createdNodes, &createdBlobs)
	if err != nil {
		s.rollbackCopy(ctx, createdNodes, createdBlobs)
		return nil, err
	}

	return clone, nil
}

func (s *NodeService) copyNode(
	ctx context.Context,
	principal domain.Principal,
	source *domain.Node,
	parentID uuid.UUID,
	name string,
	createdNodes *[]uuid.UUID,
	createdBlobs *[]string,
) (*domain.Node, error) {
	clone := &domain.Node{
		ID:        uuid.New(),
		Name:      name,
		Kind:      source.Kind,
		ParentID:  &parentID,
		OwnerID:   principal.UserID,
		SizeBytes: source.SizeBytes,
		MIMEType:  source.MIMEType,
		Extension: source.Extension,
	}

	if source.IsFile() {
		key := blobKey(principal.UserID, clone.ID)
		if err := s.blobs.Copy(ctx, *source.BlobRef, key); err != nil {
			return nil, fmt.Errorf("failed to copy blob for %s: %w", source.ID, err)
		}
		*createdBlobs = append(*createdBlobs, key)
		clone.BlobRef = &key
	}

	if err := s.nodes.Create(ctx, clone); err != nil {
		return nil, fmt.Errorf("failed to create clone of %s: %w", source.ID, err)
	}
	*createdNodes = append(*createdNodes, clone.ID)

	if source.IsFolder() {
		children, err := s.nodes.ListChildren(ctx, source.ID, false)
		if err != nil {
			return nil, fmt.Errorf("failed to list children of %s: %w", source.ID, err)
		}
		for i := range children {
			child := &children[i]
			if child.OwnerID != principal.UserID {
				continue
			}
			if _, err := s.copyNode(ctx, principal, child, clone.ID, child.Name, createdNodes, createdBlobs); err != nil {
				return nil, err
			}
		}
	}

	return clone, nil
}

// rollbackCopy undoes a partially created clone: rows in reverse creation
// order so children go before parents, then the duplicated blobs.
func (s *NodeService) rollbackCopy(ctx context.Context, nodeIDs []uuid.UUID, blobKeys []string) {
	for i := len(nodeIDs) - 1; i >= 0; i-- {
		if err := s.nodes.Delete(ctx, nodeIDs[i]); err != nil {
			log.Printf("warning: failed to roll back node %s: %v", nodeIDs[i], err)
		}
	}
	for _, key := range blobKeys {
		if err := s.blobs.Delete(ctx, key); err != nil {
			log.Printf("warning: failed to roll back blob %s: %v", key, err)
		}
	}
}

// Delete is soft for regular users and hard for admins. Soft delete flips
// the deleted flag on the node and every descendant the principal owns and
// leaves blobs in place. Hard delete removes blobs best-effort and then the
// rows themselves.
func (s *NodeService) Delete(ctx context.Context, principal domain.Principal, id uuid.UUID) error {
	if principal.IsAdmin() {
		return s.hardDelete(ctx, id)
	}

	node, err := s.access.ResolveWrite(ctx, principal, id)
	if err != nil {
		return err
	}

	if err := s.nodes.SoftDeleteTree(ctx, node.ID, principal.UserID); err != nil {
		return fmt.Errorf("failed to soft delete subtree: %w", err)
	}

	return nil
}

func (s *NodeService) hardDelete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.nodes.GetByID(ctx, id, true); err != nil {
		return err
	}

	subtree, err := s.nodes.CollectSubtree(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to collect subtree: %w", err)
	}

	// Blob cleanup is best-effort and idempotent: a blob that is already
	// gone must not block removal of the rows.
	for _, node := range subtree {
		if node.BlobRef == nil {
			continue
		}
		if err := s.blobs.Delete(ctx, *node.BlobRef); err != nil {
			log.Printf("warning: failed to delete blob %s for node %s: %v", *node.BlobRef, node.ID, err)
		}
	}

	if err := s.nodes.HardDeleteTree(ctx, id); err != nil {
		return fmt.Errorf("failed to delete subtree rows: %w", err)
	}

	return nil
}

// ToResponse builds the API representation with derived URLs.
func (s *NodeService) ToResponse(node *domain.Node) domain.NodeResponse {
	resp := domain.NodeResponse{
		ID:        node.ID,
		Name:      node.Name,
		Kind:      node.Kind,
		ParentID:  node.ParentID,
		OwnerID:   node.OwnerID,
		SizeBytes: node.SizeBytes,
		MIMEType:  node.MIMEType,
		Extension: node.Extension,
		CreatedAt: node.CreatedAt,
		UpdatedAt: node.UpdatedAt,
	}
	if node.IsFile() {
		resp.DownloadURL = fmt.Sprintf("%s/v1/nodes/%s/download", s.baseURL, node.ID)
		if node.ThumbnailRef != nil {
			resp.ThumbnailURL = fmt.Sprintf("%s/v1/nodes/%s/thumbnail", s.baseURL, node.ID)
		}
	}
	return resp
}

// ToResponses maps a node slice into API representations.
func (s *NodeService) ToResponses(nodes []domain.Node) []domain.NodeResponse {
	responses := make([]domain.NodeResponse, 0, len(nodes))
	for i := range nodes {
		responses = append(responses, s.ToResponse(&nodes[i]))
	}
	return responses
}
