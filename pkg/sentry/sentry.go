// Package sentry persists per-account device-authorization tokens.
//
// The platform pushes sentry data in chunks (offset + bytes); the file's
// SHA-1 content hash is what later logons present to skip the email
// challenge. The hash is always computed from a fresh read of the full file
// contents, never stored separately.
package sentry

import (
	"crypto/sha1" //nolint:gosec // hash format is fixed by the platform
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Store keeps one sentry file per account under a root directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. The directory is created lazily
// on the first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// FileName returns the base name of the sentry file for an account, as
// reported back to the platform in machine-auth acknowledgements.
func (s *Store) FileName(account string) string {
	return account + ".sentry"
}

func (s *Store) path(account string) string {
	return filepath.Join(s.dir, s.FileName(account))
}

// Hash returns the SHA-1 of the account's sentry file, or nil when the file
// is absent or empty. A nil hash means the machine is not authorized yet.
func (s *Store) Hash(account string) []byte {
	data, err := os.ReadFile(s.path(account))
	if err != nil || len(data) == 0 {
		return nil
	}
	sum := sha1.Sum(data) //nolint:gosec // see package comment
	return sum[:]
}

// Apply merges a device-authorization chunk into the account's sentry file:
// write data at offset, then rehash the full file. The whole
// read-modify-write-hash sequence runs on a single read-write handle, so a
// concurrent reader never observes the bytes without the matching hash.
// Returns the resulting file size and content hash.
func (s *Store) Apply(account string, offset int64, data []byte) (int64, []byte, error) {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return 0, nil, fmt.Errorf("sentry: create dir: %w", err)
	}

	f, err := os.OpenFile(s.path(account), os.O_RDWR|os.O_CREATE, 0o600) //nolint:gosec // path derived from configured account name
	if err != nil {
		return 0, nil, fmt.Errorf("sentry: open %s: %w", s.FileName(account), err)
	}
	defer f.Close()

	if _, err := f.WriteAt(data, offset); err != nil {
		return 0, nil, fmt.Errorf("sentry: write at %d: %w", offset, err)
	}

	info, err := f.Stat()
	if err != nil {
		return 0, nil, fmt.Errorf("sentry: stat: %w", err)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, nil, fmt.Errorf("sentry: rewind: %w", err)
	}
	h := sha1.New() //nolint:gosec // see package comment
	if _, err := io.Copy(h, f); err != nil {
		return 0, nil, fmt.Errorf("sentry: hash: %w", err)
	}

	return info.Size(), h.Sum(nil), nil
}
