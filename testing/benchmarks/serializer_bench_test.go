package benchmarks

import (
	"context"
	"testing"

	"github.com/zoobzio/quarry"
	"github.com/zoobzio/quarry/json"
	"github.com/zoobzio/quarry/store"
	quarrytest "github.com/zoobzio/quarry/testing"
)

func sanitizedUser() *quarrytest.SanitizedUser {
	return &quarrytest.SanitizedUser{
		ID:       "123",
		Email:    "alice@example.com",
		Password: "secret",
		SSN:      "123-45-6789",
		Note:     "internal note",
	}
}

func BenchmarkEncode(b *testing.B) {
	user := sanitizedUser()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = quarry.Encode(user)
	}
}

func BenchmarkDecode(b *testing.B) {
	doc, _ := quarry.Encode(sanitizedUser())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = quarry.Decode[quarrytest.SanitizedUser](doc)
	}
}

func BenchmarkProcessor_Send_NoTransformation(b *testing.B) {
	proc, _ := quarry.NewProcessor[quarrytest.SimpleUser](json.New())
	id := int64(1)
	user := &quarrytest.SimpleUser{ID: &id, Name: "Alice"}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = proc.Send(ctx, user)
	}
}

func BenchmarkProcessor_Send_WithMaskingRedaction(b *testing.B) {
	proc, _ := quarry.NewProcessor[quarrytest.SanitizedUser](json.New())
	user := sanitizedUser()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = proc.Send(ctx, user)
	}
}

func BenchmarkProcessor_Receive_WithHashing(b *testing.B) {
	proc, _ := quarry.NewProcessor[quarrytest.SanitizedUser](json.New())
	ctx := context.Background()
	data, _ := proc.Send(ctx, sanitizedUser())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = proc.Receive(ctx, data)
	}
}

func BenchmarkBinding_ToRow_WithEncryption(b *testing.B) {
	binding, _ := store.Bind[quarrytest.SanitizedUser](quarrytest.SanitizedUsers,
		store.WithEncryptor(quarry.EncryptAES, quarrytest.TestEncryptor(b)))
	user := sanitizedUser()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = binding.ToRow(user)
	}
}

func BenchmarkBinding_FromRow_WithDecryption(b *testing.B) {
	binding, _ := store.Bind[quarrytest.SanitizedUser](quarrytest.SanitizedUsers,
		store.WithEncryptor(quarry.EncryptAES, quarrytest.TestEncryptor(b)))
	row, _ := binding.ToRow(sanitizedUser())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = binding.FromRow(row.Clone())
	}
}

func BenchmarkCopyFields(b *testing.B) {
	user := sanitizedUser()
	src, _ := quarry.NewStructAdapter(user)
	names := []string{"ID", "Email", "Password", "SSN", "Note"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		dst := quarry.MapAdapter{}
		quarry.CopyFields(src, dst, names)
	}
}

func BenchmarkAES_Encrypt(b *testing.B) {
	enc := quarrytest.TestEncryptor(b)
	plaintext := []byte("this is a test message for encryption benchmarking")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = enc.Encrypt(plaintext)
	}
}

func BenchmarkHasher_Argon2(b *testing.B) {
	h := quarry.Argon2(quarry.DefaultArgon2Params())
	data := []byte("password123")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = h.Hash(data)
	}
}

func BenchmarkHasher_SHA256(b *testing.B) {
	h := quarry.SHA256()
	data := []byte("this is a test message for hashing benchmarking")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = h.Hash(data)
	}
}
