package sentry_test

import (
	"bytes"
	"crypto/sha1"
	"os"
	"path/filepath"
	"testing"

	"github.com/xetas/tradebot/pkg/sentry"
)

func TestHashOfMissingFileIsNil(t *testing.T) {
	st := sentry.NewStore(t.TempDir())
	if got := st.Hash("nobody"); got != nil {
		t.Errorf("hash of missing sentry = %x, want nil", got)
	}
}

func TestApplyWritesChunksAndRehashes(t *testing.T) {
	dir := t.TempDir()
	st := sentry.NewStore(dir)

	first := []byte("abcd")
	size, hash, err := st.Apply("cardbot", 0, first)
	if err != nil {
		t.Fatalf("apply first chunk: %v", err)
	}
	wantFirst := sha1.Sum(first)
	if size != 4 || !bytes.Equal(hash, wantFirst[:]) {
		t.Errorf("first chunk: size %d hash %x, want 4/%x", size, hash, wantFirst)
	}

	// A second chunk at an offset extends the file; the hash covers the
	// whole file, not the chunk.
	second := []byte("efgh")
	size, hash, err = st.Apply("cardbot", 4, second)
	if err != nil {
		t.Fatalf("apply second chunk: %v", err)
	}
	wantFull := sha1.Sum([]byte("abcdefgh"))
	if size != 8 || !bytes.Equal(hash, wantFull[:]) {
		t.Errorf("second chunk: size %d hash %x, want 8/%x", size, hash, wantFull)
	}

	if got := st.Hash("cardbot"); !bytes.Equal(got, wantFull[:]) {
		t.Errorf("stored hash = %x, want %x", got, wantFull)
	}

	data, err := os.ReadFile(filepath.Join(dir, st.FileName("cardbot")))
	if err != nil {
		t.Fatalf("read sentry file: %v", err)
	}
	if string(data) != "abcdefgh" {
		t.Errorf("file contents = %q", data)
	}
}

func TestApplyOverwritesInPlace(t *testing.T) {
	st := sentry.NewStore(t.TempDir())

	if _, _, err := st.Apply("cardbot", 0, []byte("abcdefgh")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_, hash, err := st.Apply("cardbot", 2, []byte("XY"))
	if err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	want := sha1.Sum([]byte("abXYefgh"))
	if !bytes.Equal(hash, want[:]) {
		t.Errorf("hash after overwrite = %x, want %x", hash, want)
	}
}

func TestAccountsAreIsolated(t *testing.T) {
	st := sentry.NewStore(t.TempDir())
	if _, _, err := st.Apply("alpha", 0, []byte("alpha-data")); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := st.Hash("beta"); got != nil {
		t.Errorf("other account picked up a hash: %x", got)
	}
}
