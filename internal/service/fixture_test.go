package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"orbitdrive/internal/auth"
	"orbitdrive/internal/domain"
)

type fixture struct {
	store  *memStore
	blobs  *memBlob
	access *AccessService
	nodes  *NodeService
	shares *ShareService
	users  *UserService

	userA domain.Principal
	userB domain.Principal
	admin domain.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newMemStore()
	blobs := newMemBlob()
	shareStore := shareStoreAdapter{store}
	userStore := userStoreAdapter{store}

	access := NewAccessService(store, shareStore)
	tokens := auth.NewTokenManager(&auth.Config{JWTSecret: "test-secret", TokenTTL: time.Hour})

	f := &fixture{
		store:  store,
		blobs:  blobs,
		access: access,
		nodes:  NewNodeService(store, shareStore, blobs, access, "http://localhost:2525"),
		shares: NewShareService(store, shareStore, userStore),
		users:  NewUserService(userStore, store, blobs, tokens),
	}

	f.userA = f.addUser(t, "alice@example.com", domain.RoleUser)
	f.userB = f.addUser(t, "bob@example.com", domain.RoleUser)
	f.admin = f.addUser(t, "admin@example.com", domain.RoleAdmin)
	return f
}

func (f *fixture) addUser(t *testing.T, email string, role domain.Role) domain.Principal {
	t.Helper()

	user := &domain.User{ID: uuid.New(), Email: email, Name: email, Role: role}
	require.NoError(t, f.store.CreateUser(context.Background(), user))
	return domain.Principal{UserID: user.ID, Role: role}
}

func (f *fixture) mkFolder(t *testing.T, owner domain.Principal, name string, parentID *uuid.UUID) *domain.Node {
	t.Helper()

	folder, err := f.nodes.CreateFolder(context.Background(), owner, name, parentID)
	require.NoError(t, err)
	return folder
}

func (f *fixture) mkFile(t *testing.T, owner domain.Principal, name string, parentID *uuid.UUID, content string) *domain.Node {
	t.Helper()

	node, err := f.nodes.Upload(
		context.Background(),
		owner,
		parentID,
		name,
		"text/plain",
		int64(len(content)),
		bytes.NewReader([]byte(content)),
	)
	require.NoError(t, err)
	return node
}

func (f *fixture) share(t *testing.T, owner domain.Principal, folderID uuid.UUID, grantee domain.Principal, permission domain.Permission) {
	t.Helper()

	_, err := f.shares.Share(context.Background(), owner, folderID, grantee.UserID, permission)
	require.NoError(t, err)
}

func nodeIDs(nodes []domain.Node) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(nodes))
	for _, node := range nodes {
		ids = append(ids, node.ID)
	}
	return ids
}
