package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/flow-api/internal/config"
)

func TestObjectKey(t *testing.T) {
	tests := []struct {
		name        string
		kind        string
		id          string
		contentType string
		want        string
	}{
		{"mp4", "videos", "CAUSJ123", "video/mp4", "flow/videos/CAUSJ123.mp4"},
		{"png with params", "images", "abc", "image/png; charset=binary", "flow/images/abc.png"},
		{"unknown type", "images", "abc", "application/x-unknown", "flow/images/abc"},
		{"traversal", "videos", "../../etc/passwd", "video/mp4", "flow/videos/etc_passwd.mp4"},
		{"empty id", "videos", "", "video/mp4", "flow/videos/unnamed.mp4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ObjectKey(tt.kind, tt.id, tt.contentType))
		})
	}
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/flow/a.mp4", PublicURL("https://cdn.example.com/", "/flow/a.mp4"))
	assert.Equal(t, "https://cdn.example.com/flow/a.mp4", PublicURL("https://cdn.example.com", "flow/a.mp4"))
}

func TestS3StorageDisabledWithoutConfig(t *testing.T) {
	s, err := NewS3Storage(context.Background(), &config.Config{}, zerolog.Nop())
	require.NoError(t, err)

	url, ok, err := s.Put(context.Background(), "flow/videos/a.mp4", []byte("x"), "video/mp4")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, url)
	assert.NoError(t, s.Health(context.Background()))
	assert.Equal(t, "r2", s.Backend())
}

func TestLocalStoragePut(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{LocalMirrorPath: dir, LocalMirrorBaseURL: "http://localhost:8080/media/"}
	s, err := NewLocalStorage(cfg, zerolog.Nop())
	require.NoError(t, err)

	url, ok, err := s.Put(context.Background(), "flow/videos/a.mp4", []byte("video-bytes"), "video/mp4")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "http://localhost:8080/media/flow/videos/a.mp4", url)

	data, err := os.ReadFile(filepath.Join(dir, "flow", "videos", "a.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "video-bytes", string(data))
	assert.NoError(t, s.Health(context.Background()))
}

func TestLocalStorageFileURLWithoutBase(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(&config.Config{LocalMirrorPath: dir}, zerolog.Nop())
	require.NoError(t, err)

	url, ok, err := s.Put(context.Background(), "flow/images/b.png", []byte("png"), "image/png")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "file://"+filepath.Join(dir, "flow", "images", "b.png"), url)
}

func TestLocalStorageDisabled(t *testing.T) {
	s, err := NewLocalStorage(&config.Config{}, zerolog.Nop())
	require.NoError(t, err)

	_, ok, err := s.Put(context.Background(), "k", []byte("x"), "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewSelectsBackend(t *testing.T) {
	m, err := New(context.Background(), &config.Config{MirrorBackend: "local", LocalMirrorPath: t.TempDir()}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "local", m.Backend())

	m, err = New(context.Background(), &config.Config{MirrorBackend: "r2"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "r2", m.Backend())
}
