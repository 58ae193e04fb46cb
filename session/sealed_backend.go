package session

import (
	"crypto/rand"
	"encoding/base64"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	keySize   = 32
	nonceSize = 24
)

// sealSalt is fixed so a passphrase derives the same key on every run.
var sealSalt = []byte("teamtrack-session-v1")

// SealedBackend encrypts values with NaCl secretbox before handing them to
// the wrapped backend. Values that cannot be opened read as absent.
type SealedBackend struct {
	inner Backend
	key   [keySize]byte
}

var _ Backend = (*SealedBackend)(nil)

// NewSealedBackend derives the secretbox key from passphrase with scrypt.
func NewSealedBackend(inner Backend, passphrase string) (*SealedBackend, error) {
	if passphrase == "" {
		return nil, errors.New("NewSealedBackend: empty passphrase")
	}
	derived, err := scrypt.Key([]byte(passphrase), sealSalt, 1<<15, 8, 1, keySize)
	if err != nil {
		return nil, errors.Wrap(err, "NewSealedBackend scrypt.Key")
	}
	b := &SealedBackend{inner: inner}
	copy(b.key[:], derived)
	return b, nil
}

func (b *SealedBackend) Get(key string) (string, bool, error) {
	sealed, ok, err := b.inner.Get(key)
	if err != nil || !ok {
		return "", false, err
	}

	raw, err := base64.RawStdEncoding.DecodeString(sealed)
	if err != nil || len(raw) < nonceSize {
		return "", false, nil
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])

	opened, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &b.key)
	if !ok {
		return "", false, nil
	}
	return string(opened), true, nil
}

func (b *SealedBackend) Set(key, value string) error {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return errors.Wrap(err, "SealedBackend.Set nonce")
	}
	out := secretbox.Seal(nonce[:], []byte(value), &nonce, &b.key)
	return b.inner.Set(key, base64.RawStdEncoding.EncodeToString(out))
}

func (b *SealedBackend) Remove(key string) error {
	return b.inner.Remove(key)
}
