package domain

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

type Permission string

const (
	PermissionRead  Permission = "read"
	PermissionWrite Permission = "write"
)

func (p Permission) Valid() bool {
	return p == PermissionRead || p == PermissionWrite
}

// Share grants one user access to one folder and, transitively, to
// everything nested beneath it. Unique per (folder, grantee).
type Share struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	FolderID   uuid.UUID  `json:"folder_id" db:"folder_id"`
	UserID     uuid.UUID  `json:"user_id" db:"user_id"`
	Permission Permission `json:"permission" db:"permission"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// ShareGrant is a share joined with the grantee's identity, for display.
type ShareGrant struct {
	Share
	GranteeEmail  string  `json:"grantee_email" db:"grantee_email"`
	GranteeName   string  `json:"grantee_name" db:"grantee_name"`
	GranteeAvatar *string `json:"grantee_avatar,omitempty" db:"grantee_avatar"`
}

// SharedFolder is a share joined with the folder and its owner's identity,
// as seen by the grantee.
type SharedFolder struct {
	Share
	FolderName string `json:"folder_name" db:"folder_name"`
	OwnerEmail string `json:"owner_email" db:"owner_email"`
	OwnerName  string `json:"owner_name" db:"owner_name"`
}

type ShareRequest struct {
	FolderID   uuid.UUID  `json:"folder_id"`
	UserID     uuid.UUID  `json:"user_id"`
	Permission Permission `json:"permission"`
}

func (r ShareRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FolderID, validation.Required),
		validation.Field(&r.UserID, validation.Required),
		validation.Field(&r.Permission, validation.Required, validation.In(PermissionRead, PermissionWrite)),
	)
}

type UnshareRequest struct {
	FolderID uuid.UUID `json:"folder_id"`
	UserID   uuid.UUID `json:"user_id"`
}
