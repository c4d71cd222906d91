package sitetree

import "github.com/google/uuid"

// Request DTOs. Every mutating request carries the Principal the gate
// authorizes before the tree is touched.

// CreateSiteRequest contains parameters for creating a new site
type CreateSiteRequest struct {
	Principal *Principal
	Name      string
}

// DeleteSiteRequest contains parameters for deleting a site
type DeleteSiteRequest struct {
	Principal *Principal
	SiteID    uuid.UUID
}

// AddCategoryRequest contains parameters for attaching a category.
// ParentID uuid.Nil targets the site root.
type AddCategoryRequest struct {
	Principal *Principal
	SiteID    uuid.UUID
	ParentID  uuid.UUID
	Name      string
}

// AddContentRequest contains parameters for attaching a content item.
// ParentID uuid.Nil targets the site root. An empty AuthorID defaults to
// the requesting principal.
type AddContentRequest struct {
	Principal *Principal
	SiteID    uuid.UUID
	ParentID  uuid.UUID
	Content   ContentRecord
}

// EditContentRequest contains parameters for replacing a content item's
// record
type EditContentRequest struct {
	Principal *Principal
	SiteID    uuid.UUID
	NodeID    uuid.UUID
	Content   ContentRecord
}

// RemoveNodeRequest contains parameters for detaching a node and its
// subtree
type RemoveNodeRequest struct {
	Principal *Principal
	SiteID    uuid.UUID
	NodeID    uuid.UUID
}

// UploadAttachmentRequest contains parameters for storing an attachment on
// a node. Size may be zero, in which case the read length is used.
type UploadAttachmentRequest struct {
	Principal *Principal
	SiteID    uuid.UUID
	NodeID    uuid.UUID
	FileName  string
	Size      int64
	MimeType  string
	Backend   string
}

// DeleteAttachmentRequest contains parameters for removing a stored
// attachment
type DeleteAttachmentRequest struct {
	Principal *Principal
	ObjectKey string
	Backend   string
}

// LoginRequest contains parameters for opening an editing session. The
// credential check is the gate's strength/format rule; directory lookup of
// the principal is the caller's concern.
type LoginRequest struct {
	PrincipalID uuid.UUID
	Username    string
	Password    string
}
