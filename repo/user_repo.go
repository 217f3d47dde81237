// Package repo implements the persistence gateway: each of the five logical
// operations maps to exactly one statement against the users table. No
// retries, no multi-statement transactions.
package repo

import (
	"context"
	"fmt"

	"usersock/db"
	"usersock/models"
)

// UserStore defines the contract the dispatcher depends on.
type UserStore interface {
	// Insert appends one row; storage assigns the id.
	Insert(ctx context.Context, params models.UserParams) error

	// GetByID returns the matching record or db.ErrNotFound.
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// ListAll returns every row in storage scan order. Empty table yields an
	// empty, non-nil slice.
	ListAll(ctx context.Context) ([]models.User, error)

	// UpdateByID writes name and email unconditionally. It does not check
	// prior existence; updating an absent id is not an error.
	UpdateByID(ctx context.Context, id int64, params models.UserParams) error

	// DeleteByID removes the row, returning db.ErrNotFound when none matched.
	DeleteByID(ctx context.Context, id int64) error
}

type userStore struct {
	q db.Querier
}

// NewUserStore returns a UserStore backed by q.
func NewUserStore(q db.Querier) UserStore {
	return &userStore{q: q}
}

const (
	sqlInsertUser = `INSERT INTO users (name, email) VALUES ($1, $2)`

	sqlGetUserByID = `SELECT id, name, email FROM users WHERE id = $1`

	// Scan order is whatever the storage engine yields; the contract imposes
	// no ordering.
	sqlListUsers = `SELECT id, name, email FROM users`

	sqlUpdateUser = `UPDATE users SET name = $1, email = $2 WHERE id = $3`

	sqlDeleteUser = `DELETE FROM users WHERE id = $1`
)

func (s *userStore) Insert(ctx context.Context, params models.UserParams) error {
	_, err := s.q.Exec(ctx, sqlInsertUser, params.Name, params.Email)
	return err
}

func (s *userStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	u := &models.User{}
	row := s.q.QueryRow(ctx, sqlGetUserByID, id)
	if err := row.Scan(&u.ID, &u.Name, &u.Email); err != nil {
		return nil, fmt.Errorf("repo/user: %w", err)
	}
	return u, nil
}

func (s *userStore) ListAll(ctx context.Context) ([]models.User, error) {
	rows, err := s.q.Query(ctx, sqlListUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, fmt.Errorf("repo/user: scan: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *userStore) UpdateByID(ctx context.Context, id int64, params models.UserParams) error {
	// Blind write: affected-row count is deliberately ignored.
	_, err := s.q.Exec(ctx, sqlUpdateUser, params.Name, params.Email, id)
	return err
}

func (s *userStore) DeleteByID(ctx context.Context, id int64) error {
	res, err := s.q.Exec(ctx, sqlDeleteUser, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return db.ErrNotFound
	}
	return nil
}

var _ UserStore = (*userStore)(nil)
