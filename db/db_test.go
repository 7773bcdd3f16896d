package db

import (
	"errors"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"itsite/crypto"
)

func openTemp(t *testing.T, key []byte) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test_itsite.db"), key)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpen(t *testing.T) {
	store := openTemp(t, nil)

	var count int
	if err := store.DB.QueryRow("SELECT COUNT(*) FROM kv").Scan(&count); err != nil {
		t.Errorf("Could not query kv table: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected empty kv table, got %d rows", count)
	}
}

func TestGetSetRemove(t *testing.T) {
	store := openTemp(t, nil)

	if _, ok, err := store.Get("session"); err != nil || ok {
		t.Fatalf("Get on empty store: ok=%v err=%v", ok, err)
	}

	if err := store.Set("session", `{"isLoggedIn":true}`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set("session", `{"isLoggedIn":true,"isAdmin":true}`); err != nil {
		t.Fatalf("Set (overwrite) failed: %v", err)
	}

	value, ok, err := store.Get("session")
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if value != `{"isLoggedIn":true,"isAdmin":true}` {
		t.Errorf("Unexpected value %q", value)
	}

	if err := store.Remove("session"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := store.Remove("session"); err != nil {
		t.Errorf("Second Remove should be a no-op, got %v", err)
	}
	if _, ok, _ := store.Get("session"); ok {
		t.Error("Value still present after Remove")
	}
}

func TestSealedValues(t *testing.T) {
	key := crypto.StorageKey("test-secret-key")
	store := openTemp(t, key)

	if err := store.Set("users", `[{"email":"a@x.com"}]`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var raw string
	if err := store.DB.QueryRow("SELECT value FROM kv WHERE key = 'users'").Scan(&raw); err != nil {
		t.Fatalf("raw select failed: %v", err)
	}
	if raw == `[{"email":"a@x.com"}]` {
		t.Error("Value stored in clear despite a key")
	}

	value, ok, err := store.Get("users")
	if err != nil || !ok || value != `[{"email":"a@x.com"}]` {
		t.Errorf("Get = %q, %v, %v", value, ok, err)
	}

	// Tampered row.
	if _, err := store.DB.Exec("UPDATE kv SET value = 'garbage' WHERE key = 'users'"); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if _, _, err := store.Get("users"); !errors.Is(err, ErrSealed) {
		t.Errorf("Expected ErrSealed, got %v", err)
	}
}

func TestUpdateConcurrent(t *testing.T) {
	store := openTemp(t, crypto.StorageKey("test-secret-key"))

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Update("counter", func(current string, found bool) (string, error) {
				n := 0
				if found {
					n, _ = strconv.Atoi(current)
				}
				return strconv.Itoa(n + 1), nil
			})
			if err != nil {
				t.Errorf("Update failed: %v", err)
			}
		}()
	}
	wg.Wait()

	value, _, err := store.Get("counter")
	if err != nil || value != strconv.Itoa(workers) {
		t.Errorf("counter = %q (%v), want %d", value, err, workers)
	}
}

func TestUpdateAbortsOnError(t *testing.T) {
	store := openTemp(t, nil)
	if err := store.Set("users", "before"); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("rejected")
	err := store.Update("users", func(current string, found bool) (string, error) {
		if !found || current != "before" {
			t.Errorf("fn saw %q, %v", current, found)
		}
		return "after", boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Update error = %v, want %v", err, boom)
	}
	if value, _, _ := store.Get("users"); value != "before" {
		t.Errorf("value changed to %q despite the error", value)
	}
}

func TestUpdateReplacesSealedGarbage(t *testing.T) {
	store := openTemp(t, crypto.StorageKey("test-secret-key"))
	if _, err := store.DB.Exec("INSERT INTO kv (key, value) VALUES ('users', 'garbage')"); err != nil {
		t.Fatal(err)
	}

	err := store.Update("users", func(current string, found bool) (string, error) {
		if found {
			t.Errorf("unreadable value handed over as %q", current)
		}
		return "fresh", nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if value, _, err := store.Get("users"); err != nil || value != "fresh" {
		t.Errorf("Get = %q, %v", value, err)
	}
}
