package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"orbitdrive/internal/auth"
	"orbitdrive/internal/domain"
	"orbitdrive/internal/service/blob"
)

// UserService handles registration, login and admin-side account removal.
// Removing a user takes all their nodes, blobs and share rows with them.
type UserService struct {
	users  UserStore
	nodes  NodeStore
	blobs  blob.Storage
	tokens *auth.TokenManager
}

func NewUserService(users UserStore, nodes NodeStore, blobs blob.Storage, tokens *auth.TokenManager) *UserService {
	return &UserService{
		users:  users,
		nodes:  nodes,
		blobs:  blobs,
		tokens: tokens,
	}
}

// Register creates a password account. A duplicate email surfaces as
// ErrConflict.
func (s *UserService) Register(ctx context.Context, email, name, password string) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	hashStr := string(hash)
	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: &hashStr,
		Name:         name,
		Role:         domain.RoleUser,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("email %s already registered: %w", email, domain.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Login verifies the credentials and issues a bearer token. Any mismatch,
// including an OAuth-only account without a password, is reported uniformly
// as ErrUnauthenticated.
func (s *UserService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, domain.ErrUnauthenticated
		}
		return "", nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user.PasswordHash == nil {
		return "", nil, domain.ErrUnauthenticated
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return "", nil, domain.ErrUnauthenticated
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return token, user, nil
}

// LoginExternal finds or creates an account for an OAuth identity and issues
// a token for it.
func (s *UserService) LoginExternal(ctx context.Context, externalID, email, name string, avatarRef *string) (string, *domain.User, error) {
	user, err := s.users.GetByExternalID(ctx, externalID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return "", nil, fmt.Errorf("failed to get user: %w", err)
		}

		user = &domain.User{
			ID:         uuid.New(),
			Email:      email,
			Name:       name,
			ExternalID: &externalID,
			AvatarRef:  avatarRef,
			Role:       domain.RoleUser,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return "", nil, fmt.Errorf("failed to create user: %w", err)
		}
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return token, user, nil
}

// Delete removes a user account. Admin only. Blobs are cleaned up
// best-effort before the row delete cascades over nodes and shares.
func (s *UserService) Delete(ctx context.Context, principal domain.Principal, userID uuid.UUID) error {
	if !principal.IsAdmin() {
		return fmt.Errorf("user deletion: %w", domain.ErrForbidden)
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}

	refs, err := s.nodes.ListBlobRefsByOwner(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list blob refs: %w", err)
	}
	for _, ref := range refs {
		if err := s.blobs.Delete(ctx, ref); err != nil {
			log.Printf("warning: failed to delete blob %s for user %s: %v", ref, userID, err)
		}
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return nil
}
