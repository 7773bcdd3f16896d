package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// HashCost is the bcrypt cost used by HashPassword. Tests lower it.
var HashCost = 12

var storageSalt = []byte("itsite/storage-key/v1")

func DeriveKey(password string, salt []byte) []byte {
	// Argon2id parameters: 1 pass, 64MB memory, 4 threads, 32 bytes key
	return argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
}

// StorageKey derives the AES key used to seal persisted values from the configured session key.
func StorageKey(sessionKey string) []byte {
	return DeriveKey(sessionKey, storageSalt)
}

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), HashCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(b), nil
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IsHash reports whether stored looks like a bcrypt hash rather than a cleartext password.
func IsHash(stored string) bool {
	if _, err := bcrypt.Cost([]byte(stored)); err != nil {
		return false
	}
	return strings.HasPrefix(stored, "$2")
}

// CheckPassword verifies password against a stored credential, which is either
// a bcrypt hash or a legacy cleartext value compared in constant time.
func CheckPassword(password, stored string) bool {
	if IsHash(stored) {
		return CheckPasswordHash(password, stored)
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(stored)) == 1
}

var (
	dummyOnce sync.Once
	dummyHash string
)

// DummyHash is compared against when the account does not exist so unknown
// and known emails take the same time to reject.
func DummyHash() string {
	dummyOnce.Do(func() {
		dummyHash, _ = HashPassword("itsite-dummy-password")
	})
	return dummyHash
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func Encrypt(text string, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(text), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func Decrypt(cryptoText string, key []byte) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(cryptoText)
	if err != nil {
		return "", err
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}
