package memory_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/openpublish/sitetree/pkg/sitetree"
	"github.com/openpublish/sitetree/pkg/sitetree/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadDownload(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, "a/b/c.txt", strings.NewReader("hello")))

	reader, err := store.Download(ctx, "a/b/c.txt")
	require.NoError(t, err)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestDownloadMissing(t *testing.T) {
	store := memory.New()

	_, err := store.Download(context.Background(), "missing")
	assert.Error(t, err)
}

func TestUploadWithParamsRecordsMimeType(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	require.NoError(t, store.UploadWithParams(ctx, strings.NewReader("hello"), sitetree.UploadParams{
		ObjectKey: "doc.txt",
		MimeType:  "text/plain",
	}))

	meta, err := store.GetObjectMeta(ctx, "doc.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), meta.Size)
	assert.Equal(t, "text/plain", meta.ContentType)
}

func TestDelete(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, "doc.txt", strings.NewReader("hello")))
	require.NoError(t, store.Delete(ctx, "doc.txt"))

	_, err := store.Download(ctx, "doc.txt")
	assert.Error(t, err)
	assert.Error(t, store.Delete(ctx, "doc.txt"))
}

func TestGetDownloadURLUnsupported(t *testing.T) {
	store := memory.New()

	_, err := store.GetDownloadURL(context.Background(), "doc.txt", "doc.txt")
	assert.Error(t, err)
}
