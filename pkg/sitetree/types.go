package sitetree

import (
	"time"

	"github.com/google/uuid"
)

// ComponentType is the domain type for node kinds in the hierarchy.
type ComponentType string

// Component type constants (typed). A node's type is fixed at construction
// and never changes.
const (
	ComponentTypeSite     ComponentType = "site"
	ComponentTypeCategory ComponentType = "category"
	ComponentTypeContent  ComponentType = "content"
)

// Role is the domain type for principal roles.
type Role string

// Role constants (typed). Any role outside this set is denied everything.
const (
	RoleAdministrator Role = "administrator"
	RoleEditor        Role = "editor"
	RoleAuthor        Role = "author"
	RoleGuest         Role = "guest"
)

// Operation names an action a principal may attempt. The gate's role matrix
// is keyed by these values.
type Operation string

// Operation constants (typed).
const (
	OpCreateContent   Operation = "CREATE_CONTENT"
	OpEditContent     Operation = "EDIT_CONTENT"
	OpEditOwnContent  Operation = "EDIT_OWN_CONTENT"
	OpDeleteContent   Operation = "DELETE_CONTENT"
	OpViewContent     Operation = "VIEW_CONTENT"
	OpDeleteAccount   Operation = "DELETE_ACCOUNT"
	OpConfigureSystem Operation = "CONFIGURE_SYSTEM"
)

// ContentStatus is the domain type for content item lifecycle states.
type ContentStatus string

// Content status constants (typed).
const (
	ContentStatusDraft     ContentStatus = "draft"
	ContentStatusPublished ContentStatus = "published"
	ContentStatusArchived  ContentStatus = "archived"
)

// Principal is an authenticated actor with a role. It is consumed by the
// validation gate and never mutated by the tree.
type Principal struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Role     Role      `json:"role"`
	Active   bool      `json:"active"`
}

// ContentRecord is the publishable payload wrapped by a leaf node.
type ContentRecord struct {
	Title    string        `json:"title"`
	Body     string        `json:"body"`
	Status   ContentStatus `json:"status"`
	AuthorID uuid.UUID     `json:"author_id,omitempty"`
}

// Site describes a managed tree known to the service.
type Site struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Session is an editing session issued by Login and checked by the gate's
// session validity rule against caller-supplied activity timestamps.
type Session struct {
	Token        string    `json:"token"`
	PrincipalID  uuid.UUID `json:"principal_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}
