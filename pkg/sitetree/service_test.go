package sitetree_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/openpublish/sitetree/pkg/sitetree"
	"github.com/openpublish/sitetree/pkg/sitetree/repo/memory"
	memorystorage "github.com/openpublish/sitetree/pkg/sitetree/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceCreation(t *testing.T) {
	tests := []struct {
		name        string
		options     []sitetree.Option
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []sitetree.Option{},
			expectError: true,
		},
		{
			name: "with repository should succeed",
			options: []sitetree.Option{
				sitetree.WithRepository(memory.New()),
			},
			expectError: false,
		},
		{
			name: "with repository and blob store should succeed",
			options: []sitetree.Option{
				sitetree.WithRepository(memory.New()),
				sitetree.WithBlobStore("memory", memorystorage.New()),
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := sitetree.New(tt.options...)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func setupTestService(t *testing.T) sitetree.Service {
	t.Helper()
	svc, err := sitetree.New(
		sitetree.WithRepository(memory.New()),
		sitetree.WithBlobStore("memory", memorystorage.New()),
		sitetree.WithEventSink(sitetree.NewNoopEventSink()),
	)
	require.NoError(t, err)
	require.NotNil(t, svc)
	return svc
}

func createTestSite(t *testing.T, svc sitetree.Service) *sitetree.Site {
	t.Helper()
	site, err := svc.CreateSite(context.Background(), sitetree.CreateSiteRequest{
		Name:      "Test Site",
		Principal: activePrincipal(sitetree.RoleAdministrator),
	})
	require.NoError(t, err)
	return site
}

func TestCreateSiteRequiresConfigurePermission(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	_, err := svc.CreateSite(ctx, sitetree.CreateSiteRequest{
		Name:      "Editor Site",
		Principal: activePrincipal(sitetree.RoleEditor),
	})
	assert.ErrorIs(t, err, sitetree.ErrForbidden)

	_, err = svc.CreateSite(ctx, sitetree.CreateSiteRequest{Name: "No Principal"})
	assert.ErrorIs(t, err, sitetree.ErrUnauthenticated)

	site, err := svc.CreateSite(ctx, sitetree.CreateSiteRequest{
		Name:      "Admin Site",
		Principal: activePrincipal(sitetree.RoleAdministrator),
	})
	require.NoError(t, err)
	assert.Equal(t, "Admin Site", site.Name)
}

func TestSiteLifecycle(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	admin := activePrincipal(sitetree.RoleAdministrator)

	site := createTestSite(t, svc)

	got, err := svc.GetSite(ctx, site.ID)
	require.NoError(t, err)
	assert.Equal(t, site.Name, got.Name)

	sites, err := svc.ListSites(ctx)
	require.NoError(t, err)
	assert.Len(t, sites, 1)

	_, err = svc.GetSite(ctx, uuid.New())
	assert.ErrorIs(t, err, sitetree.ErrSiteNotFound)

	require.NoError(t, svc.DeleteSite(ctx, sitetree.DeleteSiteRequest{SiteID: site.ID, Principal: admin}))
	_, err = svc.GetSite(ctx, site.ID)
	assert.ErrorIs(t, err, sitetree.ErrSiteNotFound)
}

func TestAddContentGating(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	site := createTestSite(t, svc)

	t.Run("guest denied", func(t *testing.T) {
		_, err := svc.AddContent(ctx, sitetree.AddContentRequest{
			SiteID:    site.ID,
			Content:   sitetree.ContentRecord{Title: "Nope"},
			Principal: activePrincipal(sitetree.RoleGuest),
		})
		assert.ErrorIs(t, err, sitetree.ErrForbidden)
	})

	t.Run("author allowed and recorded as author", func(t *testing.T) {
		author := activePrincipal(sitetree.RoleAuthor)
		nodeID, err := svc.AddContent(ctx, sitetree.AddContentRequest{
			SiteID:    site.ID,
			Content:   sitetree.ContentRecord{Title: "Mine"},
			Principal: author,
		})
		require.NoError(t, err)

		rec, err := svc.GetNode(ctx, site.ID, nodeID)
		require.NoError(t, err)
		assert.Equal(t, author.ID, rec.AuthorID)
		assert.Equal(t, sitetree.ContentStatusDraft, rec.Status)
	})

	t.Run("unsafe content rejected before the tree changes", func(t *testing.T) {
		before, err := svc.CountItems(ctx, site.ID)
		require.NoError(t, err)

		_, err = svc.AddContent(ctx, sitetree.AddContentRequest{
			SiteID:    site.ID,
			Content:   sitetree.ContentRecord{Title: "Bad", Body: "<script>alert(1)</script>"},
			Principal: activePrincipal(sitetree.RoleEditor),
		})
		assert.ErrorIs(t, err, sitetree.ErrForbidden)

		after, err := svc.CountItems(ctx, site.ID)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})
}

func TestAddCategoryAndNesting(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	editor := activePrincipal(sitetree.RoleEditor)
	site := createTestSite(t, svc)

	newsID, err := svc.AddCategory(ctx, sitetree.AddCategoryRequest{
		SiteID:    site.ID,
		Name:      "News",
		Principal: editor,
	})
	require.NoError(t, err)

	_, err = svc.AddContent(ctx, sitetree.AddContentRequest{
		SiteID:    site.ID,
		ParentID:  newsID,
		Content:   sitetree.ContentRecord{Title: "First Post"},
		Principal: editor,
	})
	require.NoError(t, err)

	count, err := svc.CountItems(ctx, site.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	children, err := svc.ListChildren(ctx, site.ID, newsID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "First Post", children[0].Title)
	assert.Equal(t, newsID, children[0].ParentID)

	_, err = svc.AddCategory(ctx, sitetree.AddCategoryRequest{
		SiteID:    site.ID,
		ParentID:  uuid.New(),
		Name:      "Orphan",
		Principal: editor,
	})
	assert.ErrorIs(t, err, sitetree.ErrNodeNotFound)
}

func TestEditContentOwnership(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	site := createTestSite(t, svc)

	author := activePrincipal(sitetree.RoleAuthor)
	nodeID, err := svc.AddContent(ctx, sitetree.AddContentRequest{
		SiteID:    site.ID,
		Content:   sitetree.ContentRecord{Title: "Mine"},
		Principal: author,
	})
	require.NoError(t, err)

	t.Run("author edits own item", func(t *testing.T) {
		err := svc.EditContent(ctx, sitetree.EditContentRequest{
			SiteID:    site.ID,
			NodeID:    nodeID,
			Content:   sitetree.ContentRecord{Title: "Mine v2", Status: sitetree.ContentStatusPublished},
			Principal: author,
		})
		require.NoError(t, err)

		rec, err := svc.GetNode(ctx, site.ID, nodeID)
		require.NoError(t, err)
		assert.Equal(t, "Mine v2", rec.Title)
		assert.Equal(t, author.ID, rec.AuthorID)
	})

	t.Run("another author may not edit it", func(t *testing.T) {
		err := svc.EditContent(ctx, sitetree.EditContentRequest{
			SiteID:    site.ID,
			NodeID:    nodeID,
			Content:   sitetree.ContentRecord{Title: "Hijacked"},
			Principal: activePrincipal(sitetree.RoleAuthor),
		})
		assert.ErrorIs(t, err, sitetree.ErrForbidden)
	})

	t.Run("editor may edit any item", func(t *testing.T) {
		err := svc.EditContent(ctx, sitetree.EditContentRequest{
			SiteID:    site.ID,
			NodeID:    nodeID,
			Content:   sitetree.ContentRecord{Title: "Edited"},
			Principal: activePrincipal(sitetree.RoleEditor),
		})
		require.NoError(t, err)
	})

	t.Run("missing node", func(t *testing.T) {
		err := svc.EditContent(ctx, sitetree.EditContentRequest{
			SiteID:    site.ID,
			NodeID:    uuid.New(),
			Content:   sitetree.ContentRecord{Title: "Ghost"},
			Principal: activePrincipal(sitetree.RoleEditor),
		})
		assert.ErrorIs(t, err, sitetree.ErrNodeNotFound)
	})
}

func TestRemoveNode(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	editor := activePrincipal(sitetree.RoleEditor)
	site := createTestSite(t, svc)

	newsID, err := svc.AddCategory(ctx, sitetree.AddCategoryRequest{
		SiteID: site.ID, Name: "News", Principal: editor,
	})
	require.NoError(t, err)
	_, err = svc.AddContent(ctx, sitetree.AddContentRequest{
		SiteID: site.ID, ParentID: newsID,
		Content:   sitetree.ContentRecord{Title: "Post"},
		Principal: editor,
	})
	require.NoError(t, err)

	t.Run("author may not delete", func(t *testing.T) {
		err := svc.RemoveNode(ctx, sitetree.RemoveNodeRequest{
			SiteID: site.ID, NodeID: newsID,
			Principal: activePrincipal(sitetree.RoleAuthor),
		})
		assert.ErrorIs(t, err, sitetree.ErrForbidden)
	})

	t.Run("root removal rejected", func(t *testing.T) {
		err := svc.RemoveNode(ctx, sitetree.RemoveNodeRequest{
			SiteID: site.ID, NodeID: site.ID, Principal: editor,
		})
		assert.ErrorIs(t, err, sitetree.ErrInvalidArgument)
	})

	t.Run("subtree goes with its root", func(t *testing.T) {
		require.NoError(t, svc.RemoveNode(ctx, sitetree.RemoveNodeRequest{
			SiteID: site.ID, NodeID: newsID, Principal: editor,
		}))

		count, err := svc.CountItems(ctx, site.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		_, err = svc.GetNode(ctx, site.ID, newsID)
		assert.ErrorIs(t, err, sitetree.ErrNodeNotFound)
	})
}

// failingSaveRepo wraps a repository and fails a fixed number of SaveSite
// calls before delegating again.
type failingSaveRepo struct {
	sitetree.Repository
	failures int
}

func (r *failingSaveRepo) SaveSite(ctx context.Context, site *sitetree.Site, records []sitetree.NodeRecord) error {
	if r.failures > 0 {
		r.failures--
		return errors.New("storage unavailable")
	}
	return r.Repository.SaveSite(ctx, site, records)
}

func TestPersistFailureKeepsChildOrder(t *testing.T) {
	repo := &failingSaveRepo{Repository: memory.New()}
	svc, err := sitetree.New(sitetree.WithRepository(repo))
	require.NoError(t, err)

	ctx := context.Background()
	editor := activePrincipal(sitetree.RoleEditor)
	site, err := svc.CreateSite(ctx, sitetree.CreateSiteRequest{
		Name: "Ordered", Principal: activePrincipal(sitetree.RoleAdministrator),
	})
	require.NoError(t, err)

	firstID, err := svc.AddCategory(ctx, sitetree.AddCategoryRequest{
		SiteID: site.ID, Name: "First", Principal: editor,
	})
	require.NoError(t, err)
	_, err = svc.AddCategory(ctx, sitetree.AddCategoryRequest{
		SiteID: site.ID, Name: "Second", Principal: editor,
	})
	require.NoError(t, err)

	// A removal that fails to persist must leave the service serving the
	// tree the repository last saw, including child order.
	repo.failures = 1
	err = svc.RemoveNode(ctx, sitetree.RemoveNodeRequest{
		SiteID: site.ID, NodeID: firstID, Principal: editor,
	})
	require.Error(t, err)

	children, err := svc.ListChildren(ctx, site.ID, uuid.Nil)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "First", children[0].Name)
	assert.Equal(t, "Second", children[1].Name)

	// Same for a failed insertion: no phantom node survives in the cache.
	repo.failures = 1
	_, err = svc.AddCategory(ctx, sitetree.AddCategoryRequest{
		SiteID: site.ID, Name: "Third", Principal: editor,
	})
	require.Error(t, err)

	count, err := svc.CountItems(ctx, site.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestRenderSite(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	editor := activePrincipal(sitetree.RoleEditor)
	site := createTestSite(t, svc)

	newsID, err := svc.AddCategory(ctx, sitetree.AddCategoryRequest{
		SiteID: site.ID, Name: "News", Principal: editor,
	})
	require.NoError(t, err)
	_, err = svc.AddContent(ctx, sitetree.AddContentRequest{
		SiteID: site.ID, ParentID: newsID,
		Content:   sitetree.ContentRecord{Title: "Post", Status: sitetree.ContentStatusPublished},
		Principal: editor,
	})
	require.NoError(t, err)

	out, err := svc.RenderSite(ctx, site.ID)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "+ site: Test Site (3 items)", lines[0])
	assert.Equal(t, "  + category: News (2 items)", lines[1])
	assert.Equal(t, "    - content: Post [published]", lines[2])
}

func TestServiceSurvivesCacheLoss(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	editor := activePrincipal(sitetree.RoleEditor)

	first, err := sitetree.New(sitetree.WithRepository(repo))
	require.NoError(t, err)

	site, err := first.CreateSite(ctx, sitetree.CreateSiteRequest{
		Name: "Durable", Principal: activePrincipal(sitetree.RoleAdministrator),
	})
	require.NoError(t, err)
	newsID, err := first.AddCategory(ctx, sitetree.AddCategoryRequest{
		SiteID: site.ID, Name: "News", Principal: editor,
	})
	require.NoError(t, err)

	// A fresh service over the same repository must materialize the same tree.
	second, err := sitetree.New(sitetree.WithRepository(repo))
	require.NoError(t, err)

	count, err := second.CountItems(ctx, site.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	children, err := second.ListChildren(ctx, site.ID, uuid.Nil)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, newsID, children[0].ID)
	assert.Equal(t, "News", children[0].Name)
}

func TestUploadAttachment(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	editor := activePrincipal(sitetree.RoleEditor)
	site := createTestSite(t, svc)

	nodeID, err := svc.AddContent(ctx, sitetree.AddContentRequest{
		SiteID:    site.ID,
		Content:   sitetree.ContentRecord{Title: "Post"},
		Principal: editor,
	})
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		objectKey, err := svc.UploadAttachment(ctx, sitetree.UploadAttachmentRequest{
			SiteID:    site.ID,
			NodeID:    nodeID,
			FileName:  "notes.txt",
			MimeType:  "text/plain",
			Principal: editor,
		}, strings.NewReader("hello attachment"))
		require.NoError(t, err)
		assert.Contains(t, objectKey, nodeID.String())
		assert.True(t, strings.HasSuffix(objectKey, "/notes.txt"))

		reader, err := svc.DownloadAttachment(ctx, objectKey, "")
		require.NoError(t, err)
		defer reader.Close()
		data := make([]byte, 32)
		n, _ := reader.Read(data)
		assert.Equal(t, "hello attachment", string(data[:n]))

		require.NoError(t, svc.DeleteAttachment(ctx, sitetree.DeleteAttachmentRequest{
			ObjectKey: objectKey,
			Principal: editor,
		}))
		_, err = svc.DownloadAttachment(ctx, objectKey, "")
		assert.Error(t, err)
	})

	t.Run("executable bytes rejected", func(t *testing.T) {
		_, err := svc.UploadAttachment(ctx, sitetree.UploadAttachmentRequest{
			SiteID:    site.ID,
			NodeID:    nodeID,
			FileName:  "notes.txt",
			Principal: editor,
		}, strings.NewReader("#!/bin/sh\nrm -rf /"))
		assert.ErrorIs(t, err, sitetree.ErrForbidden)
	})

	t.Run("guest denied", func(t *testing.T) {
		_, err := svc.UploadAttachment(ctx, sitetree.UploadAttachmentRequest{
			SiteID:    site.ID,
			NodeID:    nodeID,
			FileName:  "notes.txt",
			Principal: activePrincipal(sitetree.RoleGuest),
		}, strings.NewReader("hi"))
		assert.ErrorIs(t, err, sitetree.ErrForbidden)
	})

	t.Run("unknown node rejected", func(t *testing.T) {
		_, err := svc.UploadAttachment(ctx, sitetree.UploadAttachmentRequest{
			SiteID:    site.ID,
			NodeID:    uuid.New(),
			FileName:  "notes.txt",
			Principal: editor,
		}, strings.NewReader("hi"))
		assert.ErrorIs(t, err, sitetree.ErrNodeNotFound)
	})

	t.Run("unknown backend rejected", func(t *testing.T) {
		_, err := svc.UploadAttachment(ctx, sitetree.UploadAttachmentRequest{
			SiteID:    site.ID,
			NodeID:    nodeID,
			FileName:  "notes.txt",
			Backend:   "s3-prod",
			Principal: editor,
		}, strings.NewReader("hi"))
		assert.ErrorIs(t, err, sitetree.ErrInvalidArgument)
	})
}

func TestLoginIssuesValidSession(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	session, err := svc.Login(ctx, sitetree.LoginRequest{
		PrincipalID: uuid.New(),
		Username:    "alice",
		Password:    "Tr0ub4dor&3",
	})
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Len(t, session.Token, 64)

	// The issued token passes the gate's own session check.
	assert.NoError(t, svc.ValidateSession(session.Token, session.LastActivity))

	_, err = svc.Login(ctx, sitetree.LoginRequest{
		PrincipalID: uuid.New(),
		Username:    "alice",
		Password:    "password",
	})
	assert.ErrorIs(t, err, sitetree.ErrInvalidArgument)
}

func TestBackendRegistry(t *testing.T) {
	svc := setupTestService(t)

	store, err := svc.GetBackend("")
	require.NoError(t, err)
	assert.NotNil(t, store)

	_, err = svc.GetBackend("missing")
	assert.ErrorIs(t, err, sitetree.ErrInvalidArgument)

	svc.RegisterBackend("second", memorystorage.New())
	got, err := svc.GetBackend("second")
	require.NoError(t, err)
	assert.NotNil(t, got)
}
