package fs_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openpublish/sitetree/pkg/sitetree"
	"github.com/openpublish/sitetree/pkg/sitetree/storage/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (sitetree.BlobStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := fs.New(fs.Config{BaseDir: dir})
	require.NoError(t, err)
	return store, dir
}

func TestNewRequiresBaseDir(t *testing.T) {
	_, err := fs.New(fs.Config{})
	assert.Error(t, err)
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, "sites/abc/photo.jpg", strings.NewReader("bytes")))

	reader, err := store.Download(ctx, "sites/abc/photo.jpg")
	require.NoError(t, err)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "bytes", string(data))
}

func TestRejectsEscapingKeys(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{
		"../outside.txt",
		"a/../../outside.txt",
		"/etc/passwd",
	} {
		err := store.Upload(ctx, key, strings.NewReader("x"))
		assert.Error(t, err, "key %q", key)
	}

	// Nothing escaped the base directory.
	_, err := os.Stat(filepath.Join(filepath.Dir(dir), "outside.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestDeletePrunesEmptyDirectories(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, "a/b/doc.txt", strings.NewReader("x")))
	require.NoError(t, store.Delete(ctx, "a/b/doc.txt"))

	_, err := os.Stat(filepath.Join(dir, "a"))
	assert.True(t, os.IsNotExist(err))

	// The base directory itself survives.
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestDeleteMissing(t *testing.T) {
	store, _ := newTestStore(t)
	assert.Error(t, store.Delete(context.Background(), "missing.txt"))
}

func TestGetDownloadURL(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	t.Run("no prefix configured", func(t *testing.T) {
		store, err := fs.New(fs.Config{BaseDir: dir})
		require.NoError(t, err)
		_, err = store.GetDownloadURL(ctx, "doc.txt", "doc.txt")
		assert.Error(t, err)
	})

	t.Run("with prefix", func(t *testing.T) {
		store, err := fs.New(fs.Config{BaseDir: dir, URLPrefix: "http://localhost:8080"})
		require.NoError(t, err)
		url, err := store.GetDownloadURL(ctx, "a/doc.txt", "my doc.txt")
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080/download/a/doc.txt?filename=my+doc.txt", url)
	})
}
