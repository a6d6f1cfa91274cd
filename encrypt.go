package quarry

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"errors"
	"fmt"
)

// Encryption errors.
var (
	ErrInvalidKeySize   = errors.New("invalid key size")
	ErrCiphertextShort  = errors.New("ciphertext too short")
	ErrDecryptionFailed = errors.New("decryption failed")
	ErrMissingKey       = errors.New("missing key")
)

// Encryptor handles reversible field encryption.
type Encryptor interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

type aesGCM struct {
	aead cipher.AEAD
}

// AES returns an AES-GCM encryptor. The key must be 16, 24 or 32 bytes.
// Ciphertexts carry their nonce as a prefix.
func AES(key []byte) (Encryptor, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: want 16, 24 or 32 bytes, got %d", ErrInvalidKeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &aesGCM{aead: aead}, nil
}

func (e *aesGCM) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, e.aead.NonceSize(), e.aead.NonceSize()+len(plaintext)+e.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return e.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (e *aesGCM) Decrypt(ciphertext []byte) ([]byte, error) {
	n := e.aead.NonceSize()
	if len(ciphertext) < n {
		return nil, ErrCiphertextShort
	}
	plaintext, err := e.aead.Open(nil, ciphertext[:n], ciphertext[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

type rsaOAEP struct {
	pub  *rsa.PublicKey
	priv *rsa.PrivateKey
}

// RSA returns an RSA-OAEP (SHA-256) encryptor. pub is needed to encrypt and
// priv to decrypt; either may be nil when only one direction is used.
func RSA(pub *rsa.PublicKey, priv *rsa.PrivateKey) Encryptor {
	if pub == nil && priv != nil {
		pub = &priv.PublicKey
	}
	return &rsaOAEP{pub: pub, priv: priv}
}

func (e *rsaOAEP) Encrypt(plaintext []byte) ([]byte, error) {
	if e.pub == nil {
		return nil, fmt.Errorf("%w: public key", ErrMissingKey)
	}
	return rsa.EncryptOAEP(sha256.New(), rand.Reader, e.pub, plaintext, nil)
}

func (e *rsaOAEP) Decrypt(ciphertext []byte) ([]byte, error) {
	if e.priv == nil {
		return nil, fmt.Errorf("%w: private key", ErrMissingKey)
	}
	plaintext, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, e.priv, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
	}
	return plaintext, nil
}
