package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seqIDs struct{ n int }

func (s *seqIDs) New() string {
	s.n++
	return []string{"aaaaaaa1", "bbbbbbb2", "ccccccc3"}[s.n-1]
}

func TestSaveAndCollision(t *testing.T) {
	root := t.TempDir()
	s := NewLocalStore(root, "http://localhost:8000/media", &seqIDs{})
	ctx := context.Background()

	rel, err := s.Save(ctx, "products", "lamp photo.png", []byte("one"))
	require.NoError(t, err)
	assert.Equal(t, "products/lamp_photo.png", rel)

	rel2, err := s.Save(ctx, "products", "lamp photo.png", []byte("two"))
	require.NoError(t, err)
	assert.Equal(t, "products/lamp_photo_aaaaaaa.png", rel2)

	got, err := os.ReadFile(filepath.Join(root, "products", "lamp_photo.png"))
	require.NoError(t, err)
	assert.Equal(t, "one", string(got))

	assert.Equal(t, "http://localhost:8000/media/products/lamp_photo.png", s.URL(rel))
	assert.Empty(t, s.URL(""))
}

func TestSaveStripsDirectories(t *testing.T) {
	s := NewLocalStore(t.TempDir(), "/media/", nil)
	rel, err := s.Save(context.Background(), "product_files", "../../etc/setup.exe", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "product_files/setup.exe", rel)
}

func TestDelete(t *testing.T) {
	root := t.TempDir()
	s := NewLocalStore(root, "/media/", nil)
	ctx := context.Background()

	rel, err := s.Save(ctx, "products", "a.jpg", []byte("x"))
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, rel))
	_, err = os.Stat(filepath.Join(root, rel))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, s.Delete(ctx, rel), "deleting twice is fine")
	assert.NoError(t, s.Delete(ctx, ""))
}
