package twofactor

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestSecretRoundTripPlaintext(t *testing.T) {
	dir := t.TempDir()
	store := NewSecretStore(dir, "")

	if err := store.Enroll("cardbot", testSharedSecret, testIdentitySecret); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	sec, err := store.Get("cardbot")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := &Secret{SharedSecret: testSharedSecret, IdentitySecret: testIdentitySecret}
	if diff := cmp.Diff(want, sec, cmpopts.IgnoreFields(Secret{}, "DeviceID")); diff != "" {
		t.Errorf("secret mismatch (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(sec.DeviceID, "android:") {
		t.Errorf("device ID = %q, want android: prefix", sec.DeviceID)
	}

	// Plaintext records are readable YAML, not sealed blobs.
	data, err := os.ReadFile(filepath.Join(dir, "cardbot.auth"))
	if err != nil {
		t.Fatalf("read secret file: %v", err)
	}
	if bytes.HasPrefix(data, fileMagic) {
		t.Error("plaintext store produced an encrypted file")
	}
}

func TestSecretRoundTripEncrypted(t *testing.T) {
	dir := t.TempDir()
	store := NewSecretStore(dir, "correct horse battery staple")

	if err := store.Enroll("cardbot", testSharedSecret, testIdentitySecret); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "cardbot.auth"))
	if err != nil {
		t.Fatalf("read secret file: %v", err)
	}
	if !bytes.HasPrefix(data, fileMagic) {
		t.Fatal("encrypted store wrote a file without the magic prefix")
	}
	if bytes.Contains(data, []byte(testSharedSecret)) {
		t.Fatal("shared secret appears in the file in the clear")
	}

	sec, err := store.Get("cardbot")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sec.SharedSecret != testSharedSecret {
		t.Errorf("shared secret = %q, want %q", sec.SharedSecret, testSharedSecret)
	}
}

func TestWrongPassphraseIsRejected(t *testing.T) {
	dir := t.TempDir()
	if err := NewSecretStore(dir, "right").Enroll("cardbot", testSharedSecret, testIdentitySecret); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	if _, err := NewSecretStore(dir, "wrong").Get("cardbot"); err == nil {
		t.Error("wrong passphrase decrypted the secret")
	}
	if _, err := NewSecretStore(dir, "").Get("cardbot"); err == nil {
		t.Error("missing passphrase decrypted the secret")
	}
}

func TestGetUnknownAccount(t *testing.T) {
	store := NewSecretStore(t.TempDir(), "")
	if _, err := store.Get("nobody"); !errors.Is(err, ErrNotEnrolled) {
		t.Errorf("err = %v, want ErrNotEnrolled", err)
	}
}
