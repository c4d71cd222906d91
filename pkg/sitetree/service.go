package sitetree

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// Service defines the main interface for the sitetree library. Mutating
// operations pass the validation gate before touching a tree; read-only
// traversal (render, count, listing) never does.
type Service interface {
	// Site operations
	CreateSite(ctx context.Context, req CreateSiteRequest) (*Site, error)
	GetSite(ctx context.Context, id uuid.UUID) (*Site, error)
	ListSites(ctx context.Context) ([]*Site, error)
	DeleteSite(ctx context.Context, req DeleteSiteRequest) error

	// Tree mutations (gated)
	AddCategory(ctx context.Context, req AddCategoryRequest) (uuid.UUID, error)
	AddContent(ctx context.Context, req AddContentRequest) (uuid.UUID, error)
	EditContent(ctx context.Context, req EditContentRequest) error
	RemoveNode(ctx context.Context, req RemoveNodeRequest) error

	// Tree traversal (ungated)
	RenderSite(ctx context.Context, siteID uuid.UUID) (string, error)
	CountItems(ctx context.Context, siteID uuid.UUID) (int, error)
	GetNode(ctx context.Context, siteID, nodeID uuid.UUID) (*NodeRecord, error)
	ListChildren(ctx context.Context, siteID, nodeID uuid.UUID) ([]NodeRecord, error)

	// Attachment operations
	UploadAttachment(ctx context.Context, req UploadAttachmentRequest, reader io.Reader) (string, error)
	DownloadAttachment(ctx context.Context, objectKey, backend string) (io.ReadCloser, error)
	DeleteAttachment(ctx context.Context, req DeleteAttachmentRequest) error

	// Session operations
	Login(ctx context.Context, req LoginRequest) (*Session, error)
	ValidateSession(token string, lastActivity time.Time) error

	// Storage backend operations
	RegisterBackend(name string, store BlobStore)
	GetBackend(name string) (BlobStore, error)
}
