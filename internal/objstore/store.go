// store.go
//
// Game distribution marketplace service
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of gamestore.
// gamestore is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// gamestore is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with gamestore.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

// Package objstore keeps game binaries and images in a gocloud blob bucket.
package objstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"

	"github.com/localnerve/gamestore/internal/config"
	"github.com/localnerve/gamestore/internal/types"
)

// Key prefixes. Only the image prefixes are served publicly.
const (
	PrefixGames       = "games/"
	PrefixScreenshots = "screenshots/"
	PrefixProfiles    = "profiles/"
)

// Allowed upload extensions, lower case without the dot.
var (
	GameExtensions  = []string{"zip", "rar", "7z", "exe"}
	ImageExtensions = []string{"jpg", "jpeg", "png", "gif", "webp"}
)

// Store wraps a blob bucket.
type Store struct {
	bucket *blob.Bucket
	driver string
}

// Object is an open blob. The caller closes Body.
type Object struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
}

// Open opens the bucket selected by STORAGE_DRIVER.
func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	switch cfg.StorageDriver {
	case "file":
		if err := os.MkdirAll(cfg.StorageBaseDir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure storage dir: %w", err)
		}
		dir, err := filepath.Abs(cfg.StorageBaseDir)
		if err != nil {
			return nil, err
		}
		bucket, err := fileblob.OpenBucket(dir, nil)
		if err != nil {
			return nil, fmt.Errorf("open file bucket: %w", err)
		}
		return &Store{bucket: bucket, driver: "file"}, nil

	case "s3":
		bucket, err := blob.OpenBucket(ctx, s3URL(cfg))
		if err != nil {
			return nil, fmt.Errorf("open s3 bucket: %w", err)
		}
		return &Store{bucket: bucket, driver: "s3"}, nil

	case "mem":
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unsupported storage driver: %s", cfg.StorageDriver)
}

// NewMemory returns an in-process store, for tests and throwaway runs.
func NewMemory() *Store {
	return &Store{bucket: memblob.OpenBucket(nil), driver: "mem"}
}

func s3URL(cfg *config.Config) string {
	q := url.Values{}
	if cfg.StorageRegion != "" {
		q.Set("region", cfg.StorageRegion)
	}
	if cfg.StorageEndpoint != "" {
		q.Set("endpoint", cfg.StorageEndpoint)
	}
	if cfg.StorageForcePathStyle {
		q.Set("s3ForcePathStyle", "true")
	}
	u := url.URL{Scheme: "s3", Host: cfg.StorageBucket, RawQuery: q.Encode()}
	return u.String()
}

// Driver names the backing driver.
func (s *Store) Driver() string {
	return s.driver
}

// Put writes r under key.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	key, err := sanitizeKey(key)
	if err != nil {
		return err
	}
	w, err := s.bucket.NewWriter(ctx, key, &blob.WriterOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("open writer %s: %w", key, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close %s: %w", key, err)
	}
	return nil
}

// Get opens key for reading. A missing blob is a NotFoundError.
func (s *Store) Get(ctx context.Context, key string) (*Object, error) {
	key, err := sanitizeKey(key)
	if err != nil {
		return nil, types.NotFoundError("File not found.")
	}
	r, err := s.bucket.NewReader(ctx, key, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, types.NotFoundError("File not found.")
		}
		return nil, fmt.Errorf("open reader %s: %w", key, err)
	}
	return &Object{Body: r, Size: r.Size(), ContentType: r.ContentType()}, nil
}

// Delete removes key. Deleting a missing blob is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	key, err := sanitizeKey(key)
	if err != nil {
		return err
	}
	if err := s.bucket.Delete(ctx, key); err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Exists reports whether key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	key, err := sanitizeKey(key)
	if err != nil {
		return false, nil
	}
	return s.bucket.Exists(ctx, key)
}

// Ping checks that the bucket is reachable.
func (s *Store) Ping(ctx context.Context) error {
	ok, err := s.bucket.IsAccessible(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket not accessible")
	}
	return nil
}

// Close releases the bucket.
func (s *Store) Close() error {
	return s.bucket.Close()
}

// NewKey builds a unique key under prefix that keeps the upload's base name.
func NewKey(prefix, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, base)
	if base == "" || base == "." || base == ".." {
		base = "file"
	}
	return prefix + uuid.NewString() + "/" + base
}

// Extension returns the lower case extension of filename without the dot.
func Extension(filename string) string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
}

// CheckExtension validates filename against allowed and reports a field error.
func CheckExtension(field, filename string, allowed []string) error {
	ext := Extension(filename)
	for _, a := range allowed {
		if ext == a {
			return nil
		}
	}
	return types.FieldError(field, fmt.Sprintf("File extension %q is not allowed. Allowed extensions are: %s.",
		ext, strings.Join(allowed, ", ")))
}

// IsPublicKey reports whether key may be served on the media route.
func IsPublicKey(key string) bool {
	clean, err := sanitizeKey(key)
	if err != nil {
		return false
	}
	return strings.HasPrefix(clean, PrefixScreenshots) || strings.HasPrefix(clean, PrefixProfiles)
}

// sanitizeKey rejects absolute and parent-relative keys.
func sanitizeKey(key string) (string, error) {
	k := strings.TrimLeft(strings.ReplaceAll(key, "\\", "/"), "/")
	if k == "" {
		return "", fmt.Errorf("empty storage key")
	}
	clean := path.Clean(k)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return clean, nil
}
