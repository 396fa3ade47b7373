package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"orbitdrive/internal/domain"
	"orbitdrive/internal/service/blob"
)

// memStore is an in-memory stand-in for the relational store. It mirrors the
// SQL semantics the services rely on, foreign-key cascades included, so the
// tree and sharing logic can be exercised without a database.
type memStore struct {
	mu     sync.Mutex
	nodes  map[uuid.UUID]*domain.Node
	shares map[uuid.UUID]map[uuid.UUID]*domain.Share // folderID -> userID -> share
	users  map[uuid.UUID]*domain.User
	seq    int64
}

func newMemStore() *memStore {
	return &memStore{
		nodes:  map[uuid.UUID]*domain.Node{},
		shares: map[uuid.UUID]map[uuid.UUID]*domain.Share{},
		users:  map[uuid.UUID]*domain.User{},
	}
}

// now returns a strictly increasing timestamp so creation-time ordering is
// deterministic in tests.
func (m *memStore) now() time.Time {
	m.seq++
	return time.Unix(0, m.seq*int64(time.Millisecond))
}

func copyNodeRow(n *domain.Node) *domain.Node {
	c := *n
	return &c
}

func (m *memStore) Create(_ context.Context, node *domain.Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	node.CreatedAt = now
	node.UpdatedAt = now
	m.nodes[node.ID] = copyNodeRow(node)
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID, includeDeleted bool) (*domain.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.nodes[id]
	if !ok || (!includeDeleted && node.Deleted) {
		return nil, fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
	}
	return copyNodeRow(node), nil
}

func (m *memStore) UpdateName(_ context.Context, id uuid.UUID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.nodes[id]
	if !ok || node.Deleted {
		return fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
	}
	node.Name = name
	node.UpdatedAt = m.now()
	return nil
}

func (m *memStore) UpdateParent(_ context.Context, id uuid.UUID, parentID *uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.nodes[id]
	if !ok || node.Deleted {
		return fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
	}
	node.ParentID = parentID
	node.UpdatedAt = m.now()
	return nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.nodes[id]; !ok {
		return fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
	}
	delete(m.nodes, id)
	return nil
}

func (m *memStore) ListChildren(_ context.Context, parentID uuid.UUID, includeDeleted bool) ([]domain.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	children := []domain.Node{}
	for _, node := range m.nodes {
		if node.ParentID == nil || *node.ParentID != parentID {
			continue
		}
		if !includeDeleted && node.Deleted {
			continue
		}
		children = append(children, *copyNodeRow(node))
	}
	return children, nil
}

func (m *memStore) ListRoots(_ context.Context, filter domain.NodeFilter) ([]domain.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	roots := []domain.Node{}
	for _, node := range m.nodes {
		if node.ParentID != nil {
			continue
		}
		if !filter.IncludeDeleted && node.Deleted {
			continue
		}
		if filter.OwnerID != nil && node.OwnerID != *filter.OwnerID {
			continue
		}
		roots = append(roots, *copyNodeRow(node))
	}
	return roots, nil
}

// subtreeIDs walks parent pointers breadth-first from root, parents before
// children, deleted rows included.
func (m *memStore) subtreeIDs(rootID uuid.UUID) []uuid.UUID {
	order := []uuid.UUID{rootID}
	for i := 0; i < len(order); i++ {
		for id, node := range m.nodes {
			if node.ParentID != nil && *node.ParentID == order[i] {
				order = append(order, id)
			}
		}
	}
	return order
}

func (m *memStore) SoftDeleteTree(_ context.Context, rootID, ownerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range m.subtreeIDs(rootID) {
		node, ok := m.nodes[id]
		if !ok || node.OwnerID != ownerID {
			continue
		}
		node.Deleted = true
		node.UpdatedAt = m.now()
	}
	return nil
}

func (m *memStore) CollectSubtree(_ context.Context, rootID uuid.UUID) ([]domain.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.nodes[rootID]; !ok {
		return nil, fmt.Errorf("node %s: %w", rootID, domain.ErrNotFound)
	}

	subtree := []domain.Node{}
	for _, id := range m.subtreeIDs(rootID) {
		if node, ok := m.nodes[id]; ok {
			subtree = append(subtree, *copyNodeRow(node))
		}
	}
	return subtree, nil
}

func (m *memStore) HardDeleteTree(_ context.Context, rootID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.nodes[rootID]; !ok {
		return fmt.Errorf("node %s: %w", rootID, domain.ErrNotFound)
	}

	for _, id := range m.subtreeIDs(rootID) {
		delete(m.nodes, id)
		delete(m.shares, id)
	}
	return nil
}

func (m *memStore) ListBlobRefsByOwner(_ context.Context, ownerID uuid.UUID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	refs := []string{}
	for _, node := range m.nodes {
		if node.OwnerID == ownerID && node.BlobRef != nil {
			refs = append(refs, *node.BlobRef)
		}
	}
	return refs, nil
}

func (m *memStore) Upsert(_ context.Context, share *domain.Share) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byUser, ok := m.shares[share.FolderID]
	if !ok {
		byUser = map[uuid.UUID]*domain.Share{}
		m.shares[share.FolderID] = byUser
	}

	now := m.now()
	if existing, ok := byUser[share.UserID]; ok {
		existing.Permission = share.Permission
		existing.UpdatedAt = now
		*share = *existing
		return nil
	}

	share.CreatedAt = now
	share.UpdatedAt = now
	stored := *share
	byUser[share.UserID] = &stored
	return nil
}

func (m *memStore) Get(_ context.Context, folderID, userID uuid.UUID) (*domain.Share, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if share, ok := m.shares[folderID][userID]; ok {
		copied := *share
		return &copied, nil
	}
	return nil, fmt.Errorf("share on folder %s: %w", folderID, domain.ErrNotFound)
}

func (m *memStore) DeleteShare(_ context.Context, folderID, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.shares[folderID][userID]; !ok {
		return fmt.Errorf("share on folder %s: %w", folderID, domain.ErrNotFound)
	}
	delete(m.shares[folderID], userID)
	return nil
}

func (m *memStore) ListByFolder(_ context.Context, folderID uuid.UUID) ([]domain.ShareGrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	grants := []domain.ShareGrant{}
	for userID, share := range m.shares[folderID] {
		grant := domain.ShareGrant{Share: *share}
		if user, ok := m.users[userID]; ok {
			grant.GranteeEmail = user.Email
			grant.GranteeName = user.Name
			grant.GranteeAvatar = user.AvatarRef
		}
		grants = append(grants, grant)
	}
	return grants, nil
}

func (m *memStore) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.SharedFolder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	folders := []domain.SharedFolder{}
	for folderID, byUser := range m.shares {
		share, ok := byUser[userID]
		if !ok {
			continue
		}
		folder, ok := m.nodes[folderID]
		if !ok || folder.Deleted {
			continue
		}
		entry := domain.SharedFolder{Share: *share, FolderName: folder.Name}
		if owner, ok := m.users[folder.OwnerID]; ok {
			entry.OwnerEmail = owner.Email
			entry.OwnerName = owner.Name
		}
		folders = append(folders, entry)
	}
	return folders, nil
}

func (m *memStore) CreateUser(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Email == user.Email {
			return fmt.Errorf("user %s: %w", user.Email, domain.ErrConflict)
		}
	}

	now := m.now()
	user.CreatedAt = now
	user.UpdatedAt = now
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *memStore) GetUserByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user, ok := m.users[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, user := range m.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
}

func (m *memStore) GetUserByExternalID(_ context.Context, externalID string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, user := range m.users {
		if user.ExternalID != nil && *user.ExternalID == externalID {
			copied := *user
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("external user %s: %w", externalID, domain.ErrNotFound)
}

// DeleteUser mimics the foreign-key cascades: owned nodes go, their whole
// subtrees go with them (parent cascade, other owners included), and every
// share row touching a removed folder or the user itself goes too.
func (m *memStore) DeleteUser(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	delete(m.users, id)

	roots := []uuid.UUID{}
	for nodeID, node := range m.nodes {
		if node.OwnerID == id {
			roots = append(roots, nodeID)
		}
	}
	for _, rootID := range roots {
		if _, ok := m.nodes[rootID]; !ok {
			continue
		}
		for _, nodeID := range m.subtreeIDs(rootID) {
			delete(m.nodes, nodeID)
			delete(m.shares, nodeID)
		}
	}

	for _, byUser := range m.shares {
		delete(byUser, id)
	}
	return nil
}

// userStoreAdapter and shareStoreAdapter rename the overlapping methods so a
// single memStore can back all three store interfaces.
type userStoreAdapter struct{ *memStore }

func (a userStoreAdapter) Create(ctx context.Context, user *domain.User) error {
	return a.CreateUser(ctx, user)
}
func (a userStoreAdapter) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return a.GetUserByID(ctx, id)
}
func (a userStoreAdapter) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return a.GetUserByEmail(ctx, email)
}
func (a userStoreAdapter) GetByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	return a.GetUserByExternalID(ctx, externalID)
}
func (a userStoreAdapter) Delete(ctx context.Context, id uuid.UUID) error {
	return a.DeleteUser(ctx, id)
}

type shareStoreAdapter struct{ *memStore }

func (a shareStoreAdapter) Delete(ctx context.Context, folderID, userID uuid.UUID) error {
	return a.DeleteShare(ctx, folderID, userID)
}

// memBlob is an in-memory blob store. failCopyAfter, when positive, makes
// the n-th Copy call fail to exercise rollback paths.
type memBlob struct {
	mu            sync.Mutex
	objects       map[string][]byte
	contentTypes  map[string]string
	copyCalls     int
	failCopyAfter int
}

func newMemBlob() *memBlob {
	return &memBlob{
		objects:      map[string][]byte{},
		contentTypes: map[string]string{},
	}
}

func (b *memBlob) Upload(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	b.contentTypes[key] = contentType
	return nil
}

func (b *memBlob) Copy(_ context.Context, srcKey, dstKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.copyCalls++
	if b.failCopyAfter > 0 && b.copyCalls >= b.failCopyAfter {
		return fmt.Errorf("blob store unavailable")
	}

	data, ok := b.objects[srcKey]
	if !ok {
		return fmt.Errorf("source object %s: %w", srcKey, domain.ErrNotFound)
	}
	b.objects[dstKey] = append([]byte(nil), data...)
	b.contentTypes[dstKey] = b.contentTypes[srcKey]
	return nil
}

func (b *memBlob) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	delete(b.contentTypes, key)
	return nil
}

type memObject struct {
	io.ReadCloser
	length      int64
	contentType string
}

func (o *memObject) ContentLength() int64 { return o.length }
func (o *memObject) ContentType() string  { return o.contentType }

func (b *memBlob) Get(_ context.Context, key string) (blob.Object, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, ok := b.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", key, domain.ErrNotFound)
	}
	return &memObject{
		ReadCloser:  io.NopCloser(bytes.NewReader(data)),
		length:      int64(len(data)),
		contentType: b.contentTypes[key],
	}, nil
}

func (b *memBlob) Exists(_ context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[key]
	return ok, nil
}
