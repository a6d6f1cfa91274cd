package quarry

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestArgon2_Hash(t *testing.T) {
	h := Argon2(DefaultArgon2Params())
	plaintext := []byte("password123")

	hash, err := h.Hash(plaintext)
	if err != nil {
		t.Fatalf("Hash() error: %v", err)
	}

	if !strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=1,p=4$") {
		t.Errorf("Hash() = %q, want PHC prefix", hash)
	}
	if parts := strings.Split(hash, "$"); len(parts) != 6 {
		t.Errorf("Hash() has %d segments, want 6", len(parts))
	}
}

func TestArgon2_DifferentSalts(t *testing.T) {
	h := Argon2(DefaultArgon2Params())
	plaintext := []byte("password123")

	hash1, _ := h.Hash(plaintext)
	hash2, _ := h.Hash(plaintext)

	if hash1 == hash2 {
		t.Error("same plaintext should produce different hashes (random salt)")
	}
}

func TestArgon2_CustomParams(t *testing.T) {
	h := Argon2(Argon2Params{Time: 2, Memory: 32 * 1024, Threads: 2, KeyLen: 16, SaltLen: 8})

	hash, err := h.Hash([]byte("test"))
	if err != nil {
		t.Fatalf("Hash() error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=32768,t=2,p=2$") {
		t.Errorf("Hash() = %q, want custom parameters encoded", hash)
	}
}

func TestDefaultArgon2Params(t *testing.T) {
	params := DefaultArgon2Params()

	if params.Time != 1 {
		t.Errorf("Time = %d, want 1", params.Time)
	}
	if params.Memory != 64*1024 {
		t.Errorf("Memory = %d, want %d", params.Memory, 64*1024)
	}
	if params.Threads != 4 {
		t.Errorf("Threads = %d, want 4", params.Threads)
	}
	if params.KeyLen != 32 {
		t.Errorf("KeyLen = %d, want 32", params.KeyLen)
	}
	if params.SaltLen != 16 {
		t.Errorf("SaltLen = %d, want 16", params.SaltLen)
	}
}

func TestBcrypt_Hash(t *testing.T) {
	h := Bcrypt(bcrypt.MinCost)
	plaintext := []byte("password123")

	hash, err := h.Hash(plaintext)
	if err != nil {
		t.Fatalf("Hash() error: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), plaintext); err != nil {
		t.Errorf("CompareHashAndPassword() error: %v", err)
	}

	other, _ := h.Hash(plaintext)
	if hash == other {
		t.Error("same plaintext should produce different hashes (random salt)")
	}
}

func TestBcrypt_InvalidCost(t *testing.T) {
	if _, err := Bcrypt(bcrypt.MaxCost + 1).Hash([]byte("x")); err == nil {
		t.Error("expected error for out of range cost")
	}
}

func TestSHA256(t *testing.T) {
	h := SHA256()

	hash, err := h.Hash([]byte("hello"))
	if err != nil {
		t.Fatalf("Hash() error: %v", err)
	}

	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if hash != want {
		t.Errorf("Hash() = %q, want %q", hash, want)
	}

	again, _ := h.Hash([]byte("hello"))
	if again != hash {
		t.Error("SHA256 should be deterministic")
	}
}

func TestHasherFunc(t *testing.T) {
	h := HasherFunc(func(p []byte) (string, error) { return strings.ToUpper(string(p)), nil })
	got, err := h.Hash([]byte("abc"))
	if err != nil || got != "ABC" {
		t.Errorf("Hash() = %q, %v; want ABC", got, err)
	}
}

func TestBuiltinHashers(t *testing.T) {
	hashers := builtinHashers()

	for _, algo := range []HashAlgo{HashArgon2, HashBcrypt, HashSHA256} {
		if _, ok := hashers[algo]; !ok {
			t.Errorf("builtinHashers() missing %q", algo)
		}
	}
}
