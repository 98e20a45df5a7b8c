package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"feedline/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(LocalConfig{BasePath: t.TempDir(), URLPrefix: "/media/"})
	require.NoError(t, err)
	return s
}

func TestLocalStorage_WriteReadDelete(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "posts/a.png", strings.NewReader("png-bytes"), 9, "image/png"))

	exists, err := s.Exists(ctx, "posts/a.png")
	require.NoError(t, err)
	assert.True(t, exists)

	rc, err := s.Read(ctx, "posts/a.png")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, s.Delete(ctx, "posts/a.png"))
	require.NoError(t, s.Delete(ctx, "posts/a.png"), "deleting a missing key is not an error")

	_, err = s.Read(ctx, "posts/a.png")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLocalStorage_NoTempFilesLeft(t *testing.T) {
	s := newLocal(t)
	require.NoError(t, s.Write(context.Background(), "posts/b.jpg", strings.NewReader("x"), 1, "image/jpeg"))

	entries, err := os.ReadDir(filepath.Join(s.BasePath(), "posts"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b.jpg", entries[0].Name())
}

func TestLocalStorage_KeysStayInsideBase(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "../../escape.txt", strings.NewReader("x"), 1, ""))
	_, err := os.Stat(filepath.Join(s.BasePath(), "escape.txt"))
	assert.NoError(t, err, "traversal segments are resolved inside the base path")

	_, err = s.Read(ctx, "")
	assert.Error(t, err)
}

func TestLocalStorage_URL(t *testing.T) {
	s := newLocal(t)
	assert.Equal(t, "/media/posts/a.png", s.URL("posts/a.png"))
}

func TestNew_SelectsBackend(t *testing.T) {
	cfg := &config.Config{StorageBackend: "local", StorageLocalPath: t.TempDir(), MediaURLPrefix: "/media"}
	s, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, s)

	cfg.StorageBackend = "s3"
	cfg.S3Bucket = "feedline"
	cfg.S3Endpoint = "http://localhost:9000"
	cfg.S3PublicURL = "https://cdn.example.com/feedline"
	s, err = New(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/feedline/posts/a.png", s.URL("posts/a.png"))

	cfg.StorageBackend = "ftp"
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)
}
