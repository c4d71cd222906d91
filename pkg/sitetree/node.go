package sitetree

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Rendering constants. Display output indents two spaces per level and caps
// recursion depth; subtrees below the cap render as an elision marker.
const (
	renderIndent   = "  "
	maxRenderDepth = 64
	elidedMarker   = "..."
)

// Component is the uniform contract implemented by every node in the
// hierarchy. Containers (site, category) own an ordered sequence of child
// Components; content items are leaves. The interface carries unexported
// methods so the variant set is closed to this package.
type Component interface {
	// ID returns the node's unique identifier.
	ID() uuid.UUID

	// Name returns the node's display name (a content item's title).
	Name() string

	// Type returns the node's component kind, fixed at construction.
	Type() ComponentType

	// Add appends a child to a container. It fails with
	// ErrUnsupportedOperation on a leaf, and with ErrInvalidArgument for a
	// nil child, a child that already has a parent, or a child that is an
	// ancestor of the receiver.
	Add(child Component) error

	// Remove detaches the first reference-equal match from a container.
	// Removing an absent child is a no-op, not an error. It fails with
	// ErrUnsupportedOperation on a leaf.
	Remove(child Component) error

	// Child returns the child at the given position. It fails with
	// ErrUnsupportedOperation on a leaf before any index validation, and
	// with ErrIndexOutOfRange for an invalid position on a container.
	Child(i int) (Component, error)

	// Children returns a defensive copy of the child sequence. Mutating the
	// returned slice never affects the tree. Leaves return an empty slice.
	Children() []Component

	// ItemCount returns the recursive size of the subtree including the
	// node itself. Every call re-walks the subtree; nothing is cached.
	ItemCount() int

	// Display returns a depth-first, pre-order human-readable rendering of
	// the subtree.
	Display() string

	parent() *Container
	setParent(owner *Container)
	render(sb *strings.Builder, depth int)
}

// Container is a tree node that owns an ordered sequence of children: the
// root site or a category. Created empty; mutated only through Add/Remove.
type Container struct {
	id       uuid.UUID
	name     string
	kind     ComponentType
	owner    *Container
	children []Component
}

// NewSite creates an empty root container of type site.
func NewSite(name string) (*Container, error) {
	return newContainer(name, ComponentTypeSite)
}

// NewCategory creates an empty container of type category.
func NewCategory(name string) (*Container, error) {
	return newContainer(name, ComponentTypeCategory)
}

func newContainer(name string, kind ComponentType) (*Container, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &NodeError{Node: name, Op: "create", Err: fmt.Errorf("%w: name is required", ErrInvalidArgument)}
	}
	return &Container{
		id:   uuid.New(),
		name: name,
		kind: kind,
	}, nil
}

// ID returns the container's unique identifier.
func (c *Container) ID() uuid.UUID { return c.id }

// Name returns the container's name.
func (c *Container) Name() string { return c.name }

// Type returns the container's component kind (site or category).
func (c *Container) Type() ComponentType { return c.kind }

// Add appends a child to the container's sequence in insertion order.
func (c *Container) Add(child Component) error {
	if child == nil {
		return &NodeError{Node: c.name, Op: "add", Err: fmt.Errorf("%w: child is nil", ErrInvalidArgument)}
	}
	if child.parent() != nil {
		return &NodeError{Node: c.name, Op: "add", Err: fmt.Errorf("%w: child %q already has a parent", ErrInvalidArgument, child.Name())}
	}
	// A container that appears on the receiver's ancestor chain would close
	// a cycle.
	if cc, ok := child.(*Container); ok {
		for anc := c; anc != nil; anc = anc.owner {
			if anc == cc {
				return &NodeError{Node: c.name, Op: "add", Err: fmt.Errorf("%w: child %q is an ancestor of this container", ErrInvalidArgument, child.Name())}
			}
		}
	}
	child.setParent(c)
	c.children = append(c.children, child)
	return nil
}

// Remove detaches the first reference-equal match. The removed subtree goes
// with its root; nothing is orphaned.
func (c *Container) Remove(child Component) error {
	if child == nil {
		return nil
	}
	for i, existing := range c.children {
		if existing == child {
			c.children = append(c.children[:i], c.children[i+1:]...)
			child.setParent(nil)
			return nil
		}
	}
	// Absent child: explicit no-op, safety over strictness.
	return nil
}

// Child returns the child at position i.
func (c *Container) Child(i int) (Component, error) {
	if i < 0 || i >= len(c.children) {
		return nil, &NodeError{Node: c.name, Op: "child", Err: fmt.Errorf("%w: index %d, size %d", ErrIndexOutOfRange, i, len(c.children))}
	}
	return c.children[i], nil
}

// Children returns a fresh copy of the child sequence.
func (c *Container) Children() []Component {
	out := make([]Component, len(c.children))
	copy(out, c.children)
	return out
}

// ItemCount returns 1 plus the recursive count of all children.
func (c *Container) ItemCount() int {
	count := 1
	for _, child := range c.children {
		count += child.ItemCount()
	}
	return count
}

// Display renders the subtree rooted at the container.
func (c *Container) Display() string {
	var sb strings.Builder
	c.render(&sb, 0)
	return sb.String()
}

func (c *Container) parent() *Container         { return c.owner }
func (c *Container) setParent(owner *Container) { c.owner = owner }

func (c *Container) render(sb *strings.Builder, depth int) {
	indent := strings.Repeat(renderIndent, depth)
	if depth >= maxRenderDepth {
		sb.WriteString(indent + elidedMarker + "\n")
		return
	}
	fmt.Fprintf(sb, "%s+ %s: %s (%d items)\n", indent, c.kind, c.name, c.ItemCount())
	for _, child := range c.children {
		child.render(sb, depth+1)
	}
}

// ContentItem is a terminal tree node wrapping a publishable content record.
type ContentItem struct {
	id     uuid.UUID
	record ContentRecord
	owner  *Container
}

// NewContentItem creates a leaf wrapping the given record. Records without a
// title are rejected; untitled items cannot be addressed or rendered.
func NewContentItem(record ContentRecord) (*ContentItem, error) {
	if strings.TrimSpace(record.Title) == "" {
		return nil, &NodeError{Node: record.Title, Op: "create", Err: fmt.Errorf("%w: title is required", ErrInvalidArgument)}
	}
	if record.Status == "" {
		record.Status = ContentStatusDraft
	}
	return &ContentItem{
		id:     uuid.New(),
		record: record,
	}, nil
}

// ID returns the content item's unique identifier.
func (ci *ContentItem) ID() uuid.UUID { return ci.id }

// Name returns the content item's title.
func (ci *ContentItem) Name() string { return ci.record.Title }

// Type returns ComponentTypeContent.
func (ci *ContentItem) Type() ComponentType { return ComponentTypeContent }

// Record returns a copy of the wrapped content record.
func (ci *ContentItem) Record() ContentRecord { return ci.record }

// UpdateRecord replaces the wrapped content record. The title must remain
// non-empty.
func (ci *ContentItem) UpdateRecord(record ContentRecord) error {
	if strings.TrimSpace(record.Title) == "" {
		return &NodeError{Node: ci.record.Title, Op: "update", Err: fmt.Errorf("%w: title is required", ErrInvalidArgument)}
	}
	ci.record = record
	return nil
}

// Add always fails: content items own no children. The failure takes
// precedence over any argument validation.
func (ci *ContentItem) Add(child Component) error {
	return &NodeError{Node: ci.record.Title, Op: "add", Err: ErrUnsupportedOperation}
}

// Remove always fails: content items own no children.
func (ci *ContentItem) Remove(child Component) error {
	return &NodeError{Node: ci.record.Title, Op: "remove", Err: ErrUnsupportedOperation}
}

// Child always fails: content items own no children. The index is never
// inspected.
func (ci *ContentItem) Child(i int) (Component, error) {
	return nil, &NodeError{Node: ci.record.Title, Op: "child", Err: ErrUnsupportedOperation}
}

// Children returns an empty sequence.
func (ci *ContentItem) Children() []Component {
	return []Component{}
}

// ItemCount returns 1: a leaf counts only itself.
func (ci *ContentItem) ItemCount() int { return 1 }

// Display renders the content item as a single line.
func (ci *ContentItem) Display() string {
	var sb strings.Builder
	ci.render(&sb, 0)
	return sb.String()
}

func (ci *ContentItem) parent() *Container         { return ci.owner }
func (ci *ContentItem) setParent(owner *Container) { ci.owner = owner }

func (ci *ContentItem) render(sb *strings.Builder, depth int) {
	indent := strings.Repeat(renderIndent, depth)
	if depth >= maxRenderDepth {
		sb.WriteString(indent + elidedMarker + "\n")
		return
	}
	fmt.Fprintf(sb, "%s- %s: %s [%s]\n", indent, ComponentTypeContent, ci.record.Title, ci.record.Status)
}

// findComponent walks the subtree depth-first and returns the node with the
// given ID.
func findComponent(root Component, id uuid.UUID) (Component, bool) {
	if root.ID() == id {
		return root, true
	}
	if c, ok := root.(*Container); ok {
		for _, child := range c.children {
			if found, ok := findComponent(child, id); ok {
				return found, true
			}
		}
	}
	return nil, false
}
