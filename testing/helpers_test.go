package testing

import (
	"context"
	"testing"

	"github.com/zoobzio/quarry/store"
)

func TestTestKey(t *testing.T) {
	key := TestKey(t)
	if len(key) != 32 {
		t.Errorf("TestKey() length = %d, want 32", len(key))
	}
}

func TestTestEncryptor(t *testing.T) {
	enc := TestEncryptor(t)

	plaintext := []byte("test")
	ciphertext, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	decrypted, err := enc.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Decrypt() error: %v", err)
	}
	if string(decrypted) != string(plaintext) {
		t.Errorf("round-trip failed: %q", decrypted)
	}
}

func TestNewRepository(t *testing.T) {
	db, uow := NewMemory(t)
	repo := NewRepository[SanitizedUser](t, SanitizedUsers)
	ctx := context.Background()

	user := &SanitizedUser{Email: "alice@example.com", Password: "x"}
	err := uow.Do(ctx, func(ctx context.Context, s store.Session) error {
		_, err := repo.Create(ctx, s, user)
		return err
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if user.ID == "" {
		t.Fatal("Create() should assign a UUID key")
	}

	rows := db.Rows(SanitizedUsers.Name)
	if len(rows) != 1 || rows[0]["email"] == "alice@example.com" {
		t.Errorf("stored rows = %v, want one row with encrypted email", rows)
	}

	var got *SanitizedUser
	err = uow.Do(ctx, func(ctx context.Context, s store.Session) error {
		var err error
		got, err = repo.Get(ctx, s, user.ID)
		return err
	})
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got == nil || got.Email != "alice@example.com" {
		t.Errorf("Get() = %+v, want decrypted email", got)
	}
}

func TestSimpleUsersSequence(t *testing.T) {
	_, uow := NewMemory(t)
	repo := NewRepository[SimpleUser](t, SimpleUsers)

	err := uow.Do(context.Background(), func(ctx context.Context, s store.Session) error {
		for _, name := range []string{"a", "b"} {
			if _, err := repo.Create(ctx, s, &SimpleUser{Name: name}); err != nil {
				return err
			}
		}
		got, err := repo.GetOne(ctx, s, map[string]any{"name": "b"})
		if err != nil {
			return err
		}
		if got.ID == nil || *got.ID != 2 {
			t.Errorf("GetOne() = %+v, want id 2", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error: %v", err)
	}
}
