package twofactor

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"gopkg.in/yaml.v3"
)

// fileMagic prefixes encrypted secret files. Plaintext YAML files never
// start with these bytes.
var fileMagic = []byte("TB2FA1")

var ErrNotEnrolled = errors.New("twofactor: account is not enrolled")

// Secret is one account's authenticator enrolment record.
type Secret struct {
	SharedSecret   string `yaml:"shared_secret"`   // base64, drives code generation
	IdentitySecret string `yaml:"identity_secret"` // base64, used for confirmations
	DeviceID       string `yaml:"device_id"`
}

// SecretStore keeps one enrolment record per account under a directory,
// optionally encrypted with a passphrase. File name: <account>.auth.
type SecretStore struct {
	dir        string
	passphrase string
}

// NewSecretStore returns a store rooted at dir. An empty passphrase keeps
// the records as plaintext YAML.
func NewSecretStore(dir, passphrase string) *SecretStore {
	return &SecretStore{dir: dir, passphrase: passphrase}
}

func (s *SecretStore) path(account string) string {
	return filepath.Join(s.dir, account+".auth")
}

// Enroll writes an enrolment record for the account, generating a fresh
// device identifier.
func (s *SecretStore) Enroll(account, sharedSecret, identitySecret string) error {
	sec := Secret{
		SharedSecret:   sharedSecret,
		IdentitySecret: identitySecret,
		DeviceID:       "android:" + uuid.NewString(),
	}
	return s.put(account, &sec)
}

func (s *SecretStore) put(account string, sec *Secret) error {
	data, err := yaml.Marshal(sec)
	if err != nil {
		return fmt.Errorf("twofactor: marshal secret: %w", err)
	}
	if s.passphrase != "" {
		if data, err = s.seal(data); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("twofactor: create dir: %w", err)
	}
	if err := os.WriteFile(s.path(account), data, 0o600); err != nil {
		return fmt.Errorf("twofactor: write secret: %w", err)
	}
	return nil
}

// Get loads the enrolment record for an account. Returns ErrNotEnrolled
// when no record exists.
func (s *SecretStore) Get(account string) (*Secret, error) {
	data, err := os.ReadFile(s.path(account))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotEnrolled
		}
		return nil, fmt.Errorf("twofactor: read secret: %w", err)
	}
	if len(data) > len(fileMagic) && string(data[:len(fileMagic)]) == string(fileMagic) {
		if data, err = s.open(data); err != nil {
			return nil, err
		}
	}
	var sec Secret
	if err := yaml.Unmarshal(data, &sec); err != nil {
		return nil, fmt.Errorf("twofactor: parse secret: %w", err)
	}
	if sec.SharedSecret == "" {
		return nil, ErrNotEnrolled
	}
	return &sec, nil
}

// seal encrypts plaintext with XChaCha20-Poly1305 under an Argon2id key.
// Layout: magic | salt(16) | nonce(24) | ciphertext.
func (s *SecretStore) seal(plaintext []byte) ([]byte, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("twofactor: salt: %w", err)
	}
	aead, err := chacha20poly1305.NewX(s.key(salt))
	if err != nil {
		return nil, fmt.Errorf("twofactor: cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("twofactor: nonce: %w", err)
	}

	out := append([]byte(nil), fileMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, nil), nil
}

func (s *SecretStore) open(data []byte) ([]byte, error) {
	if s.passphrase == "" {
		return nil, errors.New("twofactor: secret file is encrypted, passphrase required")
	}
	data = data[len(fileMagic):]
	if len(data) < 16+chacha20poly1305.NonceSizeX {
		return nil, errors.New("twofactor: secret file truncated")
	}
	salt, data := data[:16], data[16:]
	nonce, ciphertext := data[:chacha20poly1305.NonceSizeX], data[chacha20poly1305.NonceSizeX:]

	aead, err := chacha20poly1305.NewX(s.key(salt))
	if err != nil {
		return nil, fmt.Errorf("twofactor: cipher: %w", err)
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.New("twofactor: wrong passphrase or corrupt secret file")
	}
	return plaintext, nil
}

func (s *SecretStore) key(salt []byte) []byte {
	return argon2.IDKey([]byte(s.passphrase), salt, 1, 64*1024, 4, chacha20poly1305.KeySize)
}
