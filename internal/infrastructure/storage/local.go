// Package storage keeps uploaded media on the local filesystem.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Zhima-Mochi/minishop-storefront/app/internal/infrastructure/id"
)

// LocalStore writes files under Root and serves them under BaseURL.
type LocalStore struct {
	root    string
	baseURL string
	ids     id.Generator
}

func NewLocalStore(root, baseURL string, ids id.Generator) *LocalStore {
	if ids == nil {
		ids = id.UUID{}
	}
	return &LocalStore{
		root:    root,
		baseURL: strings.TrimSuffix(baseURL, "/") + "/",
		ids:     ids,
	}
}

func (s *LocalStore) Root() string { return s.root }

// Save writes data to dir/name. When the name is taken a short random
// suffix is added before the extension; the stored relative path is returned.
func (s *LocalStore) Save(_ context.Context, dir, name string, data []byte) (string, error) {
	name = cleanName(name)
	if err := os.MkdirAll(filepath.Join(s.root, dir), 0o755); err != nil {
		return "", fmt.Errorf("storage: mkdir: %w", err)
	}

	candidate := name
	for attempt := 0; attempt < 5; attempt++ {
		rel := path.Join(dir, candidate)
		f, err := os.OpenFile(filepath.Join(s.root, filepath.FromSlash(rel)), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			ext := path.Ext(name)
			candidate = strings.TrimSuffix(name, ext) + "_" + s.ids.New()[:7] + ext
			continue
		}
		if err != nil {
			return "", fmt.Errorf("storage: create: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			_ = os.Remove(f.Name())
			return "", fmt.Errorf("storage: write: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("storage: close: %w", err)
		}
		return rel, nil
	}
	return "", fmt.Errorf("storage: no free name for %q", name)
}

// Delete removes a stored file. Missing files are not an error.
func (s *LocalStore) Delete(_ context.Context, rel string) error {
	if rel == "" {
		return nil
	}
	full := filepath.Join(s.root, filepath.FromSlash(path.Clean("/"+rel)))
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete: %w", err)
	}
	return nil
}

// URL maps a stored relative path to its public URL, "" for no file.
func (s *LocalStore) URL(rel string) string {
	if rel == "" {
		return ""
	}
	return s.baseURL + strings.TrimPrefix(rel, "/")
}

func cleanName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '_'
		case r < 0x20, strings.ContainsRune(`<>:"|?*`, r):
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == "/" || name == ".." {
		return "upload"
	}
	return name
}
