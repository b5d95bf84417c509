package local

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/propertypassport/internal/domain"
)

func TestStoreSaveAndOpen(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	ctx := context.Background()
	data := []byte("%PDF-1.7 fake survey")

	key, size, err := store.Save(ctx, "prop-1/documents", "application/pdf", bytes.NewReader(data))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "prop-1/documents/"))
	assert.True(t, strings.HasSuffix(key, ".pdf"))
	assert.Equal(t, int64(len(data)), size)

	r, mimeType, err := store.Open(ctx, key)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, "application/pdf", mimeType)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = os.Stat(filepath.Join(dir, "prop-1", "documents"))
	assert.NoError(t, err)
}

func TestStoreSave_KeysAreUnique(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	a, _, err := store.Save(ctx, "p/media", "image/jpeg", bytes.NewReader([]byte("a")))
	require.NoError(t, err)
	b, _, err := store.Save(ctx, "p/media", "image/jpeg", bytes.NewReader([]byte("b")))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestStoreDelete(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key, _, err := store.Save(ctx, "p/media", "video/mp4", bytes.NewReader([]byte("mp4")))
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, key))

	_, _, err = store.Open(ctx, key)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	err = store.Delete(ctx, key)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStorePathTraversal(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, _, err = store.Open(ctx, "../../etc/passwd")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, _, err = store.Save(ctx, "../outside", "image/png", bytes.NewReader([]byte("x")))
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestMimeExtensionRoundTrip(t *testing.T) {
	for _, mime := range []string{"application/pdf", "image/jpeg", "image/png", "image/gif", "image/webp", "video/mp4"} {
		assert.Equal(t, mime, extToMimeType("x"+mimeTypeToExt(mime)), mime)
	}
	assert.Equal(t, "application/octet-stream", extToMimeType("x"+mimeTypeToExt("application/zip")))
}
