package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/openpublish/sitetree/pkg/sitetree"
	"github.com/openpublish/sitetree/pkg/sitetree/repo/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSite(name string, createdAt time.Time) (*sitetree.Site, []sitetree.NodeRecord) {
	id := uuid.New()
	site := &sitetree.Site{
		ID:        id,
		Name:      name,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	records := []sitetree.NodeRecord{
		{ID: id, SiteID: id, Kind: sitetree.ComponentTypeSite, Name: name},
	}
	return site, records
}

func TestSiteRoundTrip(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	site, records := testSite("My Site", time.Now().UTC())
	require.NoError(t, repo.CreateSite(ctx, site, records))

	got, gotRecords, err := repo.GetSite(ctx, site.ID)
	require.NoError(t, err)
	assert.Equal(t, site.Name, got.Name)
	assert.Equal(t, records, gotRecords)

	// The repository hands out copies; callers may scribble on them.
	got.Name = "scribbled"
	gotRecords[0].Name = "scribbled"

	again, againRecords, err := repo.GetSite(ctx, site.ID)
	require.NoError(t, err)
	assert.Equal(t, "My Site", again.Name)
	assert.Equal(t, "My Site", againRecords[0].Name)
}

func TestGetSiteNotFound(t *testing.T) {
	repo := memory.New()

	_, _, err := repo.GetSite(context.Background(), uuid.New())
	assert.ErrorIs(t, err, sitetree.ErrSiteNotFound)
}

func TestSaveSiteReplacesSnapshot(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	site, records := testSite("My Site", time.Now().UTC())
	require.NoError(t, repo.CreateSite(ctx, site, records))

	childID := uuid.New()
	updated := append(records, sitetree.NodeRecord{
		ID: childID, SiteID: site.ID, ParentID: site.ID,
		Kind: sitetree.ComponentTypeCategory, Name: "News", Position: 0,
	})
	require.NoError(t, repo.SaveSite(ctx, site, updated))

	_, gotRecords, err := repo.GetSite(ctx, site.ID)
	require.NoError(t, err)
	require.Len(t, gotRecords, 2)
	assert.Equal(t, childID, gotRecords[1].ID)

	missing, _ := testSite("Ghost", time.Now().UTC())
	assert.ErrorIs(t, repo.SaveSite(ctx, missing, nil), sitetree.ErrSiteNotFound)
}

func TestDeleteSite(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	site, records := testSite("My Site", time.Now().UTC())
	require.NoError(t, repo.CreateSite(ctx, site, records))

	require.NoError(t, repo.DeleteSite(ctx, site.ID))
	_, _, err := repo.GetSite(ctx, site.ID)
	assert.ErrorIs(t, err, sitetree.ErrSiteNotFound)

	assert.ErrorIs(t, repo.DeleteSite(ctx, site.ID), sitetree.ErrSiteNotFound)
}

func TestListSitesNewestFirst(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	base := time.Now().UTC()
	older, olderRecords := testSite("Older", base.Add(-time.Hour))
	newer, newerRecords := testSite("Newer", base)
	require.NoError(t, repo.CreateSite(ctx, older, olderRecords))
	require.NoError(t, repo.CreateSite(ctx, newer, newerRecords))

	sites, err := repo.ListSites(ctx)
	require.NoError(t, err)
	require.Len(t, sites, 2)
	assert.Equal(t, "Newer", sites[0].Name)
	assert.Equal(t, "Older", sites[1].Name)
}
