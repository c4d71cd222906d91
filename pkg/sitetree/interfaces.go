package sitetree

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// BlobStore defines the interface for attachment storage backends. Only
// gate-approved uploads ever reach a BlobStore.
type BlobStore interface {
	// Upload uploads content directly
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// UploadWithParams uploads content with additional parameters
	UploadWithParams(ctx context.Context, reader io.Reader, params UploadParams) error

	// Download downloads content directly
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete deletes content
	Delete(ctx context.Context, objectKey string) error

	// GetObjectMeta retrieves metadata for a stored object
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)

	// GetDownloadURL returns a URL for downloading content, where the
	// backend supports URLs
	GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string) (string, error)
}

// Repository defines the interface for site persistence. Trees cross the
// boundary as flat node-record snapshots (see Flatten/Rebuild).
type Repository interface {
	// CreateSite stores a new site and its initial snapshot
	CreateSite(ctx context.Context, site *Site, records []NodeRecord) error

	// GetSite returns a site and its current snapshot
	GetSite(ctx context.Context, id uuid.UUID) (*Site, []NodeRecord, error)

	// SaveSite replaces a site's snapshot
	SaveSite(ctx context.Context, site *Site, records []NodeRecord) error

	// DeleteSite removes a site and its snapshot
	DeleteSite(ctx context.Context, id uuid.UUID) error

	// ListSites returns all known sites
	ListSites(ctx context.Context) ([]*Site, error)
}

// EventSink defines the interface for event handling. Sinks are
// fire-and-forget: the service and gate drop sink errors so event delivery
// can never change an operation's outcome.
type EventSink interface {
	// SiteCreated is fired when a site is created
	SiteCreated(ctx context.Context, site *Site) error

	// SiteDeleted is fired when a site is deleted
	SiteDeleted(ctx context.Context, siteID uuid.UUID) error

	// NodeAdded is fired when a node is attached to a tree
	NodeAdded(ctx context.Context, siteID uuid.UUID, node Component) error

	// NodeRemoved is fired when a node (and its subtree) is detached
	NodeRemoved(ctx context.Context, siteID, nodeID uuid.UUID) error

	// AttachmentUploaded is fired when a gate-approved upload is stored
	AttachmentUploaded(ctx context.Context, siteID uuid.UUID, objectKey string) error

	// SessionCreated is fired when Login issues a session
	SessionCreated(ctx context.Context, session *Session) error

	// ValidationPassed is fired for every passing gate check
	ValidationPassed(check string) error

	// ValidationRejected is fired for every failing gate check
	ValidationRejected(check string, err error) error
}

// ObjectMeta contains metadata about an object in storage
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
	Metadata    map[string]string
}

// UploadParams contains parameters for uploading an object
type UploadParams struct {
	ObjectKey string
	MimeType  string
}
