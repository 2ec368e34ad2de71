package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Store persists uploaded product images and returns their public URL.
type Store interface {
	Save(ctx context.Context, key string, body io.ReadSeeker, contentType string) (string, error)
}

// ObjectKey builds a unique, URL-safe key under prefix from an uploaded filename.
func ObjectKey(prefix, filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filepath.Base(filename), ext)
	base = strings.ReplaceAll(base, " ", "_")
	return path.Join(prefix, fmt.Sprintf("%d_%s%s", time.Now().UnixNano(), base, strings.ToLower(ext)))
}

// Local writes files below Dir; they are served by the router at /uploads.
type Local struct {
	Dir           string
	PublicBaseURL string
}

func NewLocal(dir, publicBaseURL string) *Local {
	return &Local{Dir: dir, PublicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

func (l *Local) Save(ctx context.Context, key string, body io.ReadSeeker, contentType string) (string, error) {
	dest := filepath.Join(l.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), os.ModePerm); err != nil {
		return "", fmt.Errorf("create upload folder: %w", err)
	}

	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, body); err != nil {
		return "", err
	}
	if err := out.Sync(); err != nil {
		return "", err
	}
	return l.PublicBaseURL + "/uploads/" + key, nil
}
