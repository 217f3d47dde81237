package repo

import (
	"context"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"usersock/db"
	"usersock/models"
)

// newTestStore opens an in-memory sqlite database. The pool is pinned to one
// connection: each sqlite :memory: connection is its own database.
func newTestStore(t *testing.T) UserStore {
	t.Helper()

	database, err := db.Open(db.Config{
		DSN:          ":memory:",
		DriverName:   "sqlite3",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	if err := EnsureSchema(context.Background(), database, "sqlite3"); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return NewUserStore(database)
}

func TestInsertAndListAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Insert(ctx, models.UserParams{Name: "Alice", Email: "alice@x.com"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.Insert(ctx, models.UserParams{Name: "Bob", Email: "bob@x.com"}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	users, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("len(users) = %d, want 2", len(users))
	}
	if users[0].ID == 0 || users[1].ID == 0 {
		t.Fatalf("storage should assign ids, got %+v", users)
	}
	if users[0].Name != "Alice" || users[1].Email != "bob@x.com" {
		t.Fatalf("unexpected rows: %+v", users)
	}
}

func TestListAll_EmptyTable(t *testing.T) {
	store := newTestStore(t)

	users, err := store.ListAll(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if users == nil {
		t.Fatal("expected empty non-nil slice")
	}
	if len(users) != 0 {
		t.Fatalf("len(users) = %d, want 0", len(users))
	}
}

func TestGetByID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Insert(ctx, models.UserParams{Name: "Alice", Email: "alice@x.com"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	users, err := store.ListAll(ctx)
	if err != nil || len(users) != 1 {
		t.Fatalf("list: %v (%d rows)", err, len(users))
	}

	got, err := store.GetByID(ctx, users[0].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Alice" || got.Email != "alice@x.com" {
		t.Fatalf("got %+v", got)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetByID(context.Background(), 999)
	if !db.IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestUpdateByID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Insert(ctx, models.UserParams{Name: "Alice", Email: "alice@x.com"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	users, _ := store.ListAll(ctx)
	id := users[0].ID

	if err := store.UpdateByID(ctx, id, models.UserParams{Name: "Alicia", Email: "alicia@x.com"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := store.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.Name != "Alicia" || got.Email != "alicia@x.com" {
		t.Fatalf("row not updated: %+v", got)
	}
}

// Updating an id that does not exist is a no-op, not an error.
func TestUpdateByID_AbsentIDSucceeds(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateByID(context.Background(), 999, models.UserParams{Name: "X", Email: "x@x.com"})
	if err != nil {
		t.Fatalf("blind update should not fail, got %v", err)
	}
}

func TestDeleteByID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Insert(ctx, models.UserParams{Name: "Alice", Email: "alice@x.com"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	users, _ := store.ListAll(ctx)
	id := users[0].ID

	if err := store.DeleteByID(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetByID(ctx, id); !db.IsNotFound(err) {
		t.Fatalf("row should be gone, got %v", err)
	}

	// Deleting again reports not-found; delete is not a blind write.
	if err := store.DeleteByID(ctx, id); !db.IsNotFound(err) {
		t.Fatalf("expected not-found on second delete, got %v", err)
	}
}

func TestDeleteByID_NotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.DeleteByID(context.Background(), 999)
	if !db.IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestEnsureSchema_UnknownDriver(t *testing.T) {
	err := EnsureSchema(context.Background(), nil, "oracle")
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
