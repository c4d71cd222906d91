package sitetree

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// NodeRecord is the flat persisted form of a tree node. Repositories store
// snapshots of these; Flatten and Rebuild convert between a live tree and
// its snapshot.
type NodeRecord struct {
	ID       uuid.UUID     `json:"id"`
	SiteID   uuid.UUID     `json:"site_id"`
	ParentID uuid.UUID     `json:"parent_id"` // uuid.Nil for the root
	Kind     ComponentType `json:"kind"`
	Name     string        `json:"name,omitempty"`
	Title    string        `json:"title,omitempty"`
	Body     string        `json:"body,omitempty"`
	Status   ContentStatus `json:"status,omitempty"`
	AuthorID uuid.UUID     `json:"author_id,omitempty"`
	Position int           `json:"position"`
}

// Flatten walks the tree pre-order and returns one record per node. Child
// order is preserved in Position.
func Flatten(siteID uuid.UUID, root Component) []NodeRecord {
	var records []NodeRecord
	flattenInto(&records, siteID, uuid.Nil, 0, root)
	return records
}

func flattenInto(records *[]NodeRecord, siteID, parentID uuid.UUID, position int, node Component) {
	rec := NodeRecord{
		ID:       node.ID(),
		SiteID:   siteID,
		ParentID: parentID,
		Kind:     node.Type(),
		Position: position,
	}
	switch n := node.(type) {
	case *Container:
		rec.Name = n.Name()
	case *ContentItem:
		record := n.Record()
		rec.Title = record.Title
		rec.Body = record.Body
		rec.Status = record.Status
		rec.AuthorID = record.AuthorID
	}
	*records = append(*records, rec)

	if c, ok := node.(*Container); ok {
		for i, child := range c.children {
			flattenInto(records, siteID, c.id, i, child)
		}
	}
}

// Rebuild reconstructs a live tree from a snapshot. The snapshot must
// contain exactly one root record (ParentID == uuid.Nil); children are
// reattached in Position order through the normal Add path so the tree's
// ownership invariants hold for rebuilt trees too.
func Rebuild(records []NodeRecord) (Component, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty snapshot", ErrInvalidArgument)
	}

	nodes := make(map[uuid.UUID]Component, len(records))
	childRecords := make(map[uuid.UUID][]NodeRecord)
	var root Component

	for _, rec := range records {
		node, err := nodeFromRecord(rec)
		if err != nil {
			return nil, err
		}
		if _, dup := nodes[rec.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate node %s in snapshot", ErrInvalidArgument, rec.ID)
		}
		nodes[rec.ID] = node
		if rec.ParentID == uuid.Nil {
			if root != nil {
				return nil, fmt.Errorf("%w: snapshot has multiple roots", ErrInvalidArgument)
			}
			root = node
		} else {
			childRecords[rec.ParentID] = append(childRecords[rec.ParentID], rec)
		}
	}
	if root == nil {
		return nil, fmt.Errorf("%w: snapshot has no root", ErrInvalidArgument)
	}

	for parentID, children := range childRecords {
		parentNode, ok := nodes[parentID]
		if !ok {
			return nil, fmt.Errorf("%w: snapshot references missing parent %s", ErrInvalidArgument, parentID)
		}
		sort.Slice(children, func(i, j int) bool { return children[i].Position < children[j].Position })
		for _, rec := range children {
			if err := parentNode.Add(nodes[rec.ID]); err != nil {
				return nil, err
			}
		}
	}
	return root, nil
}

func nodeFromRecord(rec NodeRecord) (Component, error) {
	switch rec.Kind {
	case ComponentTypeSite, ComponentTypeCategory:
		node, err := newContainer(rec.Name, rec.Kind)
		if err != nil {
			return nil, err
		}
		node.id = rec.ID
		return node, nil
	case ComponentTypeContent:
		node, err := NewContentItem(ContentRecord{
			Title:    rec.Title,
			Body:     rec.Body,
			Status:   rec.Status,
			AuthorID: rec.AuthorID,
		})
		if err != nil {
			return nil, err
		}
		node.id = rec.ID
		return node, nil
	default:
		return nil, fmt.Errorf("%w: unknown component kind %q", ErrInvalidArgument, rec.Kind)
	}
}
