package models

// User represents a row in the "users" table. Fields map 1-to-1 with columns;
// the id is always database-assigned and present on every stored record.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserParams holds the writable fields of a user. Keeping input types separate
// from the domain model means a client-supplied id can never reach an insert
// or update statement.
type UserParams struct {
	Name  string
	Email string
}
