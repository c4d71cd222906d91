package sitetree

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openpublish/sitetree/pkg/sitetree/sanitize"
)

// service implements the Service interface. One exclusive lock serializes
// all tree access: the Component tree itself is not thread-safe, and the
// service is the synchronization point the library promises.
type service struct {
	mu           sync.Mutex
	repository   Repository
	blobStores   map[string]BlobStore
	defaultStore string
	gate         *Gate
	events       EventSink
	trees        map[uuid.UUID]Component
	sites        map[uuid.UUID]*Site
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore adds an attachment storage backend. The first registered
// backend becomes the default unless WithDefaultBlobStore overrides it.
func WithBlobStore(name string, store BlobStore) Option {
	return func(s *service) {
		if s.blobStores == nil {
			s.blobStores = make(map[string]BlobStore)
		}
		s.blobStores[name] = store
		if s.defaultStore == "" {
			s.defaultStore = name
		}
	}
}

// WithDefaultBlobStore selects which registered backend handles requests
// that don't name one.
func WithDefaultBlobStore(name string) Option {
	return func(s *service) {
		s.defaultStore = name
	}
}

// WithEventSink sets the event sink for the service and, unless WithGate
// supplies a pre-built gate, for the gate as well.
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.events = sink
	}
}

// WithGate sets a pre-configured validation gate.
func WithGate(gate *Gate) Option {
	return func(s *service) {
		s.gate = gate
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		blobStores: make(map[string]BlobStore),
		trees:      make(map[uuid.UUID]Component),
		sites:      make(map[uuid.UUID]*Site),
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.events == nil {
		s.events = NewNoopEventSink()
	}
	if s.gate == nil {
		s.gate = NewGate(WithGateEventSink(s.events))
	}

	return s, nil
}

// Site operations

func (s *service) CreateSite(ctx context.Context, req CreateSiteRequest) (*Site, error) {
	if err := s.gate.Authorize(req.Principal, OpConfigureSystem, ""); err != nil {
		return nil, err
	}

	root, err := NewSite(req.Name)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	site := &Site{
		ID:        root.ID(),
		Name:      root.Name(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repository.CreateSite(ctx, site, Flatten(site.ID, root)); err != nil {
		return nil, fmt.Errorf("create site: %w", err)
	}
	s.trees[site.ID] = root
	s.sites[site.ID] = site

	_ = s.events.SiteCreated(ctx, site)

	siteCopy := *site
	return &siteCopy, nil
}

func (s *service) GetSite(ctx context.Context, id uuid.UUID) (*Site, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, site, err := s.loadTree(ctx, id)
	if err != nil {
		return nil, err
	}
	siteCopy := *site
	return &siteCopy, nil
}

func (s *service) ListSites(ctx context.Context) ([]*Site, error) {
	return s.repository.ListSites(ctx)
}

func (s *service) DeleteSite(ctx context.Context, req DeleteSiteRequest) error {
	if err := s.gate.Authorize(req.Principal, OpConfigureSystem, req.SiteID.String()); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repository.DeleteSite(ctx, req.SiteID); err != nil {
		return err
	}
	delete(s.trees, req.SiteID)
	delete(s.sites, req.SiteID)

	_ = s.events.SiteDeleted(ctx, req.SiteID)
	return nil
}

// Tree mutations

func (s *service) AddCategory(ctx context.Context, req AddCategoryRequest) (uuid.UUID, error) {
	if err := s.gate.Authorize(req.Principal, OpEditContent, req.SiteID.String()); err != nil {
		return uuid.Nil, err
	}

	node, err := NewCategory(req.Name)
	if err != nil {
		return uuid.Nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	root, site, err := s.loadTree(ctx, req.SiteID)
	if err != nil {
		return uuid.Nil, err
	}
	parent, err := s.resolveParent(root, req.ParentID)
	if err != nil {
		return uuid.Nil, err
	}
	if err := parent.Add(node); err != nil {
		return uuid.Nil, err
	}
	if err := s.persist(ctx, site, root); err != nil {
		s.dropTree(req.SiteID)
		return uuid.Nil, err
	}

	_ = s.events.NodeAdded(ctx, req.SiteID, node)
	return node.ID(), nil
}

func (s *service) AddContent(ctx context.Context, req AddContentRequest) (uuid.UUID, error) {
	if err := s.gate.Authorize(req.Principal, OpCreateContent, req.SiteID.String()); err != nil {
		return uuid.Nil, err
	}
	if err := s.gate.CheckContent(&req.Content); err != nil {
		return uuid.Nil, err
	}

	if req.Content.AuthorID == uuid.Nil && req.Principal != nil {
		req.Content.AuthorID = req.Principal.ID
	}
	node, err := NewContentItem(req.Content)
	if err != nil {
		return uuid.Nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	root, site, err := s.loadTree(ctx, req.SiteID)
	if err != nil {
		return uuid.Nil, err
	}
	parent, err := s.resolveParent(root, req.ParentID)
	if err != nil {
		return uuid.Nil, err
	}
	if err := parent.Add(node); err != nil {
		return uuid.Nil, err
	}
	if err := s.persist(ctx, site, root); err != nil {
		s.dropTree(req.SiteID)
		return uuid.Nil, err
	}

	_ = s.events.NodeAdded(ctx, req.SiteID, node)
	return node.ID(), nil
}

func (s *service) EditContent(ctx context.Context, req EditContentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	root, site, err := s.loadTree(ctx, req.SiteID)
	if err != nil {
		return err
	}
	node, ok := findComponent(root, req.NodeID)
	if !ok {
		return ErrNodeNotFound
	}
	item, ok := node.(*ContentItem)
	if !ok {
		return &NodeError{Node: node.Name(), Op: "edit", Err: fmt.Errorf("%w: node is not a content item", ErrInvalidArgument)}
	}

	// Authors editing their own items need only the narrower permission.
	op := OpEditContent
	if req.Principal != nil && item.Record().AuthorID == req.Principal.ID {
		op = OpEditOwnContent
	}
	if err := s.gate.Authorize(req.Principal, op, req.NodeID.String()); err != nil {
		return err
	}
	if err := s.gate.CheckContent(&req.Content); err != nil {
		return err
	}

	prev := item.Record()
	if req.Content.AuthorID == uuid.Nil {
		req.Content.AuthorID = prev.AuthorID
	}
	if err := item.UpdateRecord(req.Content); err != nil {
		return err
	}
	if err := s.persist(ctx, site, root); err != nil {
		s.dropTree(req.SiteID)
		return err
	}
	return nil
}

func (s *service) RemoveNode(ctx context.Context, req RemoveNodeRequest) error {
	if err := s.gate.Authorize(req.Principal, OpDeleteContent, req.SiteID.String()); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	root, site, err := s.loadTree(ctx, req.SiteID)
	if err != nil {
		return err
	}
	node, ok := findComponent(root, req.NodeID)
	if !ok {
		return ErrNodeNotFound
	}
	owner := node.parent()
	if owner == nil {
		return &NodeError{Node: node.Name(), Op: "remove", Err: fmt.Errorf("%w: cannot remove the site root", ErrInvalidArgument)}
	}
	if err := owner.Remove(node); err != nil {
		return err
	}
	if err := s.persist(ctx, site, root); err != nil {
		s.dropTree(req.SiteID)
		return err
	}

	_ = s.events.NodeRemoved(ctx, req.SiteID, req.NodeID)
	return nil
}

// Tree traversal

func (s *service) RenderSite(ctx context.Context, siteID uuid.UUID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	root, _, err := s.loadTree(ctx, siteID)
	if err != nil {
		return "", err
	}
	return root.Display(), nil
}

func (s *service) CountItems(ctx context.Context, siteID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	root, _, err := s.loadTree(ctx, siteID)
	if err != nil {
		return 0, err
	}
	return root.ItemCount(), nil
}

func (s *service) GetNode(ctx context.Context, siteID, nodeID uuid.UUID) (*NodeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	root, _, err := s.loadTree(ctx, siteID)
	if err != nil {
		return nil, err
	}
	node, ok := findComponent(root, nodeID)
	if !ok {
		return nil, ErrNodeNotFound
	}
	rec := recordFor(siteID, node)
	return &rec, nil
}

func (s *service) ListChildren(ctx context.Context, siteID, nodeID uuid.UUID) ([]NodeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	root, _, err := s.loadTree(ctx, siteID)
	if err != nil {
		return nil, err
	}
	node := root
	if nodeID != uuid.Nil {
		found, ok := findComponent(root, nodeID)
		if !ok {
			return nil, ErrNodeNotFound
		}
		node = found
	}

	children := node.Children()
	records := make([]NodeRecord, 0, len(children))
	for i, child := range children {
		rec := recordFor(siteID, child)
		rec.Position = i
		records = append(records, rec)
	}
	return records, nil
}

// Attachment operations

func (s *service) UploadAttachment(ctx context.Context, req UploadAttachmentRequest, reader io.Reader) (string, error) {
	if err := s.gate.Authorize(req.Principal, OpCreateContent, req.SiteID.String()); err != nil {
		return "", err
	}

	// Read one byte past the cap so an oversized stream is detected even
	// when the declared size lies.
	data, err := io.ReadAll(io.LimitReader(reader, maxUploadSize+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	size := req.Size
	if size == 0 {
		size = int64(len(data))
	}
	if int64(len(data)) > size {
		size = int64(len(data))
	}
	if err := s.gate.CheckUpload(req.FileName, size, data); err != nil {
		return "", err
	}

	cleanName, err := sanitize.Filename(req.FileName)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	store, err := s.GetBackend(req.Backend)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	root, _, err := s.loadTree(ctx, req.SiteID)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	if _, ok := findComponent(root, req.NodeID); !ok {
		s.mu.Unlock()
		return "", ErrNodeNotFound
	}
	s.mu.Unlock()

	objectKey := fmt.Sprintf("sites/%s/nodes/%s/%s", req.SiteID, req.NodeID, cleanName)
	if err := store.UploadWithParams(ctx, bytes.NewReader(data), UploadParams{
		ObjectKey: objectKey,
		MimeType:  req.MimeType,
	}); err != nil {
		return "", fmt.Errorf("store attachment: %w", err)
	}

	_ = s.events.AttachmentUploaded(ctx, req.SiteID, objectKey)
	return objectKey, nil
}

func (s *service) DownloadAttachment(ctx context.Context, objectKey, backend string) (io.ReadCloser, error) {
	store, err := s.GetBackend(backend)
	if err != nil {
		return nil, err
	}
	return store.Download(ctx, objectKey)
}

func (s *service) DeleteAttachment(ctx context.Context, req DeleteAttachmentRequest) error {
	if err := s.gate.Authorize(req.Principal, OpDeleteContent, req.ObjectKey); err != nil {
		return err
	}
	store, err := s.GetBackend(req.Backend)
	if err != nil {
		return err
	}
	return store.Delete(ctx, req.ObjectKey)
}

// Session operations

func (s *service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	if err := s.gate.ValidateCredentials(req.Username, req.Password); err != nil {
		return nil, err
	}

	token, err := newSessionToken()
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	now := time.Now().UTC()
	session := &Session{
		Token:        token,
		PrincipalID:  req.PrincipalID,
		CreatedAt:    now,
		LastActivity: now,
	}

	_ = s.events.SessionCreated(ctx, session)
	return session, nil
}

func (s *service) ValidateSession(token string, lastActivity time.Time) error {
	return s.gate.ValidateSession(token, lastActivity)
}

// Storage backend operations

func (s *service) RegisterBackend(name string, store BlobStore) {
	s.blobStores[name] = store
	if s.defaultStore == "" {
		s.defaultStore = name
	}
}

func (s *service) GetBackend(name string) (BlobStore, error) {
	if name == "" {
		name = s.defaultStore
	}
	store, ok := s.blobStores[name]
	if !ok {
		return nil, fmt.Errorf("%w: storage backend %q is not registered", ErrInvalidArgument, name)
	}
	return store, nil
}

// Internal helpers. Callers hold s.mu.

func (s *service) loadTree(ctx context.Context, siteID uuid.UUID) (Component, *Site, error) {
	if root, ok := s.trees[siteID]; ok {
		return root, s.sites[siteID], nil
	}

	site, records, err := s.repository.GetSite(ctx, siteID)
	if err != nil {
		return nil, nil, err
	}
	root, err := Rebuild(records)
	if err != nil {
		return nil, nil, fmt.Errorf("rebuild site %s: %w", siteID, err)
	}
	s.trees[siteID] = root
	s.sites[siteID] = site
	return root, site, nil
}

// dropTree evicts a cached tree after a failed persist. The next access
// re-materializes it from the repository's last good snapshot, so the cache
// never drifts from what was actually written.
func (s *service) dropTree(siteID uuid.UUID) {
	delete(s.trees, siteID)
	delete(s.sites, siteID)
}

func (s *service) resolveParent(root Component, parentID uuid.UUID) (Component, error) {
	if parentID == uuid.Nil {
		return root, nil
	}
	parent, ok := findComponent(root, parentID)
	if !ok {
		return nil, ErrNodeNotFound
	}
	return parent, nil
}

func (s *service) persist(ctx context.Context, site *Site, root Component) error {
	site.UpdatedAt = time.Now().UTC()
	if err := s.repository.SaveSite(ctx, site, Flatten(site.ID, root)); err != nil {
		return fmt.Errorf("save site: %w", err)
	}
	return nil
}

// recordFor builds the flat form of a single node without walking its
// subtree.
func recordFor(siteID uuid.UUID, node Component) NodeRecord {
	rec := NodeRecord{
		ID:     node.ID(),
		SiteID: siteID,
		Kind:   node.Type(),
	}
	if owner := node.parent(); owner != nil {
		rec.ParentID = owner.ID()
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
	return rec
}

// newSessionToken returns a 64-character URL-safe random token matching the
// gate's structural pattern.
func newSessionToken() (string, error) {
	b := make([]byte, 48)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
