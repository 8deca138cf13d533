// Package store persists result documents. Every driver addresses documents
// by key; the S3 driver takes full s3:// URLs, the others treat keys as
// opaque strings.
package store

import (
	"context"
	"errors"
	"os"
	"path"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrNotFound is returned by Get when no object exists under the key.
var ErrNotFound = errors.New("store: object not found")

// ObjectStore is the document persistence interface.
type ObjectStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
	// Put uploads the contents of localFile under key, replacing any
	// previous object.
	Put(ctx context.Context, localFile, key string) error
	Close() error
}

// Migrator is implemented by the SQL drivers.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// JoinKey joins a folder (a plain prefix or an s3:// URL) and a name.
func JoinKey(folder, name string) string {
	if folder == "" {
		return name
	}
	if scheme, rest, ok := strings.Cut(folder, "://"); ok {
		return scheme + "://" + path.Join(rest, name)
	}
	return path.Join(folder, name)
}

// DocumentKey is the key of an item's result document in folder.
func DocumentKey(folder, itemID string) string {
	return JoinKey(folder, itemID+".json")
}

// ParseS3Path splits s3://bucket/prefix into bucket and prefix.
// Backslashes are treated as separators.
func ParseS3Path(s3Path string) (bucket, prefix string, err error) {
	p := strings.ReplaceAll(s3Path, `\`, "/")
	rest, ok := strings.CutPrefix(p, "s3://")
	if !ok {
		return "", "", eris.Errorf("store: %q is not an s3:// path", s3Path)
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", eris.Errorf("store: %q has no bucket", s3Path)
	}
	return bucket, prefix, nil
}

// PutDocument stages body in a temporary file and uploads it under key.
func PutDocument(ctx context.Context, s ObjectStore, key string, body []byte) error {
	f, err := os.CreateTemp("", "urbancover-*.json")
	if err != nil {
		return eris.Wrap(err, "store: create temp file")
	}
	name := f.Name()
	defer func() {
		if rerr := os.Remove(name); rerr != nil {
			zap.L().Warn("store: remove temp file", zap.String("path", name), zap.Error(rerr))
		}
	}()

	if _, err := f.Write(body); err != nil {
		f.Close() //nolint:errcheck
		return eris.Wrap(err, "store: write temp file")
	}
	if err := f.Close(); err != nil {
		return eris.Wrap(err, "store: close temp file")
	}
	return s.Put(ctx, name, key)
}
