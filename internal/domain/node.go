package domain

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

type NodeKind string

const (
	KindFile   NodeKind = "file"
	KindFolder NodeKind = "folder"
)

// Node is a single entry of the storage tree, either a file or a folder.
// BlobRef is set for files only; ParentID nil means the node sits at root level.
type Node struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Kind         NodeKind   `json:"kind" db:"kind"`
	ParentID     *uuid.UUID `json:"parent_id,omitempty" db:"parent_id"`
	OwnerID      uuid.UUID  `json:"owner_id" db:"owner_id"`
	SizeBytes    int64      `json:"size_bytes" db:"size_bytes"`
	MIMEType     string     `json:"mime_type" db:"mime_type"`
	Extension    string     `json:"extension" db:"extension"`
	BlobRef      *string    `json:"-" db:"blob_ref"`
	ThumbnailRef *string    `json:"-" db:"thumbnail_ref"`
	Deleted      bool       `json:"deleted" db:"deleted"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

func (n *Node) IsFile() bool   { return n.Kind == KindFile }
func (n *Node) IsFolder() bool { return n.Kind == KindFolder }

// NodeResponse is the representation returned to API callers. Download and
// thumbnail URLs are derived from the node id, never stored.
type NodeResponse struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Kind         NodeKind   `json:"kind"`
	ParentID     *uuid.UUID `json:"parent_id,omitempty"`
	OwnerID      uuid.UUID  `json:"owner_id"`
	SizeBytes    int64      `json:"size_bytes,omitempty"`
	MIMEType     string     `json:"mime_type,omitempty"`
	Extension    string     `json:"extension,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DownloadURL  string     `json:"download_url,omitempty"`
	ThumbnailURL string     `json:"thumbnail_url,omitempty"`
}

// NodeFilter narrows admin listings. Fields are combined with AND; a nil
// OwnerID means no owner restriction.
type NodeFilter struct {
	OwnerID        *uuid.UUID
	IncludeDeleted bool
}

type CreateFolderRequest struct {
	Name     string     `json:"name"`
	ParentID *uuid.UUID `json:"parent_id,omitempty"`
}

func (r CreateFolderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
	)
}

type RenameRequest struct {
	Name string `json:"name"`
}

func (r RenameRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
	)
}

type MoveRequest struct {
	DestinationID *uuid.UUID `json:"destination_id,omitempty"`
}

type CopyRequest struct {
	DestinationID uuid.UUID `json:"destination_id"`
}
