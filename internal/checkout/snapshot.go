package checkout

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ramonsune/custodia360/internal/onboarding/domain"
	"golang.org/x/crypto/hkdf"
)

const snapshotInfo = "custodia360/pending-contract/snapshot/v1"

// Sealer encrypts draft snapshots stored with pending contracts.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives an AES-256-GCM key from secret. An empty secret yields a
// random per-process key.
func NewSealer(secret string) (*Sealer, error) {
	key := make([]byte, 32)
	if secret == "" {
		if _, err := io.ReadFull(rand.Reader, key); err != nil {
			return nil, err
		}
	} else {
		kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(snapshotInfo))
		if _, err := io.ReadFull(kdf, key); err != nil {
			return nil, err
		}
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead}, nil
}

// Seal returns nonce || ciphertext of the draft JSON, bound to reference.
func (s *Sealer) Seal(draft *domain.FormDraft, reference string) ([]byte, error) {
	plaintext, err := json.Marshal(draft)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plaintext, []byte(reference)), nil
}

func (s *Sealer) Open(sealed []byte, reference string) (*domain.FormDraft, error) {
	size := s.aead.NonceSize()
	if len(sealed) < size {
		return nil, ErrSnapshotInvalid
	}
	plaintext, err := s.aead.Open(nil, sealed[:size], sealed[size:], []byte(reference))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotInvalid, err)
	}
	var draft domain.FormDraft
	if err := json.Unmarshal(plaintext, &draft); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotInvalid, err)
	}
	return &draft, nil
}
