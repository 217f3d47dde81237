package handler

import (
	"context"
	"io"
	"log/slog"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"usersock/db"
	"usersock/repo"
	"usersock/wire"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
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

	if err := repo.EnsureSchema(context.Background(), database, "sqlite3"); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(repo.NewUserStore(database), logger, nil)
}

func handle(t *testing.T, d *Dispatcher, raw string) string {
	t.Helper()
	return string(d.Handle(context.Background(), []byte(raw)))
}

func TestHandle_CreateThenReadOne(t *testing.T) {
	d := newTestDispatcher(t)

	got := handle(t, d, "POST /users HTTP/1.1\r\n\r\n{\"name\":\"Alice\",\"email\":\"alice@x.com\"}")
	if want := wire.OKResponse + "user created"; got != want {
		t.Fatalf("create reply = %q, want %q", got, want)
	}

	got = handle(t, d, "GET /users/1 HTTP/1.1\r\n\r\n")
	want := wire.OKResponse + `{"id":1,"name":"Alice","email":"alice@x.com"}`
	if got != want {
		t.Fatalf("read reply = %q, want %q", got, want)
	}
}

// The id assigned by storage wins over anything the client sends.
func TestHandle_CreateIgnoresClientID(t *testing.T) {
	d := newTestDispatcher(t)

	handle(t, d, "POST /users HTTP/1.1\r\n\r\n{\"id\":99,\"name\":\"A\",\"email\":\"a@x.com\"}")

	got := handle(t, d, "GET /users/1 HTTP/1.1\r\n\r\n")
	want := wire.OKResponse + `{"id":1,"name":"A","email":"a@x.com"}`
	if got != want {
		t.Fatalf("reply = %q, want %q", got, want)
	}
}

func TestHandle_ReadAll(t *testing.T) {
	d := newTestDispatcher(t)

	got := handle(t, d, "GET /users HTTP/1.1\r\n\r\n")
	if want := wire.OKResponse + "[]"; got != want {
		t.Fatalf("empty list reply = %q, want %q", got, want)
	}

	handle(t, d, "POST /users HTTP/1.1\r\n\r\n{\"name\":\"A\",\"email\":\"a@x.com\"}")
	handle(t, d, "POST /users HTTP/1.1\r\n\r\n{\"name\":\"B\",\"email\":\"b@x.com\"}")

	got = handle(t, d, "GET /users HTTP/1.1\r\n\r\n")
	want := wire.OKResponse + `[{"id":1,"name":"A","email":"a@x.com"},{"id":2,"name":"B","email":"b@x.com"}]`
	if got != want {
		t.Fatalf("list reply = %q, want %q", got, want)
	}
}

func TestHandle_ReadOneMissing(t *testing.T) {
	d := newTestDispatcher(t)

	got := handle(t, d, "GET /users/42 HTTP/1.1\r\n\r\n")
	if want := wire.NotFoundResponse + "User not found"; got != want {
		t.Fatalf("reply = %q, want %q", got, want)
	}
}

func TestHandle_Update(t *testing.T) {
	d := newTestDispatcher(t)

	handle(t, d, "POST /users HTTP/1.1\r\n\r\n{\"name\":\"A\",\"email\":\"a@x.com\"}")

	got := handle(t, d, "PUT /users/1 HTTP/1.1\r\n\r\n{\"name\":\"B\",\"email\":\"b@x.com\"}")
	if want := wire.OKResponse + "User updated"; got != want {
		t.Fatalf("update reply = %q, want %q", got, want)
	}

	got = handle(t, d, "GET /users/1 HTTP/1.1\r\n\r\n")
	want := wire.OKResponse + `{"id":1,"name":"B","email":"b@x.com"}`
	if got != want {
		t.Fatalf("read after update = %q, want %q", got, want)
	}
}

// Update reports success even when nothing matched; only read-one and delete
// distinguish a missing record.
func TestHandle_UpdateAbsentIDReports200(t *testing.T) {
	d := newTestDispatcher(t)

	got := handle(t, d, "PUT /users/42 HTTP/1.1\r\n\r\n{\"name\":\"X\",\"email\":\"x@x.com\"}")
	if want := wire.OKResponse + "User updated"; got != want {
		t.Fatalf("reply = %q, want %q", got, want)
	}
}

func TestHandle_DeleteThenDeleteAgain(t *testing.T) {
	d := newTestDispatcher(t)

	handle(t, d, "POST /users HTTP/1.1\r\n\r\n{\"name\":\"A\",\"email\":\"a@x.com\"}")

	got := handle(t, d, "DELETE /users/1 HTTP/1.1\r\n\r\n")
	if want := wire.OKResponse + "User deleted"; got != want {
		t.Fatalf("delete reply = %q, want %q", got, want)
	}

	got = handle(t, d, "DELETE /users/1 HTTP/1.1\r\n\r\n")
	if want := wire.NotFoundResponse + "User not found"; got != want {
		t.Fatalf("second delete reply = %q, want %q", got, want)
	}
}

func TestHandle_CreateMalformedBody(t *testing.T) {
	d := newTestDispatcher(t)

	got := handle(t, d, "POST /users HTTP/1.1\r\n\r\nnot json")
	if want := wire.ServerErrorResponse + "Error "; got != want {
		t.Fatalf("reply = %q, want %q", got, want)
	}

	// Nothing may have been written.
	got = handle(t, d, "GET /users HTTP/1.1\r\n\r\n")
	if want := wire.OKResponse + "[]"; got != want {
		t.Fatalf("table changed after failed create: %q", got)
	}
}

func TestHandle_CreateMissingField(t *testing.T) {
	d := newTestDispatcher(t)

	got := handle(t, d, "POST /users HTTP/1.1\r\n\r\n{\"name\":\"A\"}")
	if want := wire.ServerErrorResponse + "Error "; got != want {
		t.Fatalf("reply = %q, want %q", got, want)
	}
}

func TestHandle_UpdateMalformedBody(t *testing.T) {
	d := newTestDispatcher(t)

	handle(t, d, "POST /users HTTP/1.1\r\n\r\n{\"name\":\"A\",\"email\":\"a@x.com\"}")

	got := handle(t, d, "PUT /users/1 HTTP/1.1\r\n\r\n{\"name\":\"B\"}")
	if want := wire.ServerErrorResponse + "Error"; got != want {
		t.Fatalf("reply = %q, want %q", got, want)
	}

	// Row stays untouched.
	got = handle(t, d, "GET /users/1 HTTP/1.1\r\n\r\n")
	want := wire.OKResponse + `{"id":1,"name":"A","email":"a@x.com"}`
	if got != want {
		t.Fatalf("row changed after failed update: %q", got)
	}
}

func TestHandle_InvalidID(t *testing.T) {
	d := newTestDispatcher(t)

	tests := []struct {
		name string
		raw  string
	}{
		{"empty segment", "GET /users/ HTTP/1.1\r\n\r\n"},
		{"non-numeric", "GET /users/abc HTTP/1.1\r\n\r\n"},
		{"delete non-numeric", "DELETE /users/abc HTTP/1.1\r\n\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := handle(t, d, tt.raw)
			if want := wire.ServerErrorResponse + "Error"; got != want {
				t.Fatalf("reply = %q, want %q", got, want)
			}
		})
	}
}

func TestHandle_Unrecognized(t *testing.T) {
	d := newTestDispatcher(t)

	tests := []struct {
		name string
		raw  string
	}{
		{"wrong method", "PATCH /users HTTP/1.1\r\n\r\n"},
		{"wrong path", "GET /health HTTP/1.1\r\n\r\n"},
		{"empty request", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := handle(t, d, tt.raw)
			if want := wire.NotFoundResponse + "404 Not Found"; got != want {
				t.Fatalf("reply = %q, want %q", got, want)
			}
		})
	}
}
