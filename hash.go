package quarry

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Hasher performs one-way hashing.
type Hasher interface {
	// Hash returns the hash of plaintext as a string. Password hashers embed
	// their salt and parameters in the result.
	Hash(plaintext []byte) (string, error)
}

// HasherFunc adapts a function to the Hasher interface.
type HasherFunc func(plaintext []byte) (string, error)

// Hash calls f.
func (f HasherFunc) Hash(plaintext []byte) (string, error) {
	return f(plaintext)
}

// Argon2Params configures Argon2id hashing.
type Argon2Params struct {
	Time    uint32 // Number of iterations
	Memory  uint32 // Memory usage in KiB
	Threads uint8  // Parallelism factor
	KeyLen  uint32 // Output key length
	SaltLen uint32 // Salt length
}

// DefaultArgon2Params returns the OWASP baseline for Argon2id.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Time:    1,
		Memory:  64 * 1024,
		Threads: 4,
		KeyLen:  32,
		SaltLen: 16,
	}
}

// Argon2 returns an Argon2id hasher. The result is encoded in the PHC
// string format: $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>.
func Argon2(params Argon2Params) Hasher {
	return HasherFunc(func(plaintext []byte) (string, error) {
		salt := make([]byte, params.SaltLen)
		if _, err := rand.Read(salt); err != nil {
			return "", fmt.Errorf("generate salt: %w", err)
		}
		sum := argon2.IDKey(plaintext, salt, params.Time, params.Memory, params.Threads, params.KeyLen)
		return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
			argon2.Version, params.Memory, params.Time, params.Threads,
			base64.RawStdEncoding.EncodeToString(salt),
			base64.RawStdEncoding.EncodeToString(sum),
		), nil
	})
}

// Bcrypt returns a bcrypt hasher with the given cost.
func Bcrypt(cost int) Hasher {
	return HasherFunc(func(plaintext []byte) (string, error) {
		sum, err := bcrypt.GenerateFromPassword(plaintext, cost)
		if err != nil {
			return "", err
		}
		return string(sum), nil
	})
}

// SHA256 returns a hasher producing the hex-encoded SHA-256 digest.
func SHA256() Hasher {
	return HasherFunc(func(plaintext []byte) (string, error) {
		sum := sha256.Sum256(plaintext)
		return hex.EncodeToString(sum[:]), nil
	})
}

func builtinHashers() map[HashAlgo]Hasher {
	return map[HashAlgo]Hasher{
		HashArgon2: Argon2(DefaultArgon2Params()),
		HashBcrypt: Bcrypt(bcrypt.DefaultCost),
		HashSHA256: SHA256(),
	}
}
