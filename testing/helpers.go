// Package testing provides fixtures for quarry tests: keys, record types
// and an in-memory store wired to a unit of work.
package testing

import (
	"testing"

	"github.com/zoobzio/quarry"
	"github.com/zoobzio/quarry/store"
	"github.com/zoobzio/quarry/store/memory"
)

// TestKey returns a valid 32-byte AES key for testing.
func TestKey(t testing.TB) []byte {
	t.Helper()
	return []byte("32-byte-key-for-aes-256-encrypt!")
}

// TestEncryptor returns an AES encryptor configured for testing.
func TestEncryptor(t testing.TB) quarry.Encryptor {
	t.Helper()
	enc, err := quarry.AES(TestKey(t))
	if err != nil {
		t.Fatalf("AES() error: %v", err)
	}
	return enc
}

// SimpleUser is a record with no transform tags and a sequence key.
type SimpleUser struct {
	ID   *int64 `doc:"id" db:"id,pk"`
	Name string `doc:"name" db:"name"`
}

// SimpleUsers is the table SimpleUser records are stored in.
var SimpleUsers = store.Table{
	Name:       "simple_users",
	Columns:    []string{"id", "name"},
	PrimaryKey: "id",
}

// SanitizedUser is a record using every boundary transform.
// Tags use the compound syntax {context}.{action}:"{capability}".
type SanitizedUser struct {
	ID       string `doc:"id" db:"id,pk"`
	Email    string `doc:"email" db:"email" store.encrypt:"aes" load.decrypt:"aes" send.mask:"email"`
	Password string `doc:"password" db:"password" receive.hash:"sha256" send.redact:"***"`
	SSN      string `doc:"ssn" db:"ssn" send.mask:"ssn"`
	Note     string `doc:"note" db:"note" send.redact:"[REDACTED]"`
}

// SanitizedUsers is the table SanitizedUser records are stored in. Keys are
// UUIDs assigned by the store.
var SanitizedUsers = store.Table{
	Name:       "sanitized_users",
	Columns:    []string{"id", "email", "password", "ssn", "note"},
	PrimaryKey: "id",
	Keys:       store.KeyUUID,
}

// NewMemory returns an empty in-memory store and a unit of work over it.
func NewMemory(t testing.TB) (*memory.Store, *store.UnitOfWork) {
	t.Helper()
	db := memory.New()
	return db, store.NewUnitOfWork(db.Session)
}

// NewRepository binds T to table and returns its repository. The test AES
// encryptor is registered for store.encrypt and load.decrypt columns.
func NewRepository[T any](t testing.TB, table store.Table) *store.Repository[T] {
	t.Helper()
	b, err := store.Bind[T](table, store.WithEncryptor(quarry.EncryptAES, TestEncryptor(t)))
	if err != nil {
		t.Fatalf("Bind() error: %v", err)
	}
	return store.NewRepository(b, nil)
}
