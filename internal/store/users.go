package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is an account row of the _users table.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Roles        []string
	Active       bool
}

const userColumns = "id, email, password_hash, roles, active"

// usersTable is the accounts DDL in d's column types. Roles are a JSON array.
func usersTable(d Dialect) string {
	text := d.ColumnType("string", 0)
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS _users (
  id %[1]s PRIMARY KEY,
  email %[1]s NOT NULL UNIQUE,
  password_hash %[1]s NOT NULL,
  roles %[1]s NOT NULL,
  active %[2]s NOT NULL,
  created_at %[3]s NOT NULL
)`, text, d.ColumnType("boolean", 0), d.ColumnType("timestamp", 0))
}

// FindUserByEmail looks up an account by e-mail, case-insensitively.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	pb := s.Dialect.NewParamBuilder()
	row, err := s.queryOne(ctx,
		fmt.Sprintf("SELECT %s FROM _users WHERE LOWER(email) = %s", userColumns, pb.Add(strings.ToLower(email))),
		pb.Params()...)
	if err != nil {
		return nil, err
	}
	return userFromRow(row)
}

// FindUserByID looks up an account by identifier.
func (s *Store) FindUserByID(ctx context.Context, id string) (*User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	pb := s.Dialect.NewParamBuilder()
	row, err := s.queryOne(ctx,
		fmt.Sprintf("SELECT %s FROM _users WHERE id = %s", userColumns, pb.Add(id)),
		pb.Params()...)
	if err != nil {
		return nil, err
	}
	return userFromRow(row)
}

// CreateUser inserts an active account and returns it.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash string, roles []string) (*User, error) {
	if roles == nil {
		roles = []string{}
	}
	encoded, err := json.Marshal(roles)
	if err != nil {
		return nil, err
	}
	u := &User{ID: uuid.New().String(), Email: email, PasswordHash: passwordHash, Roles: roles, Active: true}

	pb := s.Dialect.NewParamBuilder()
	query := fmt.Sprintf("INSERT INTO _users (id, email, password_hash, roles, active, created_at) VALUES (%s, %s, %s, %s, %s, %s)",
		pb.Add(u.ID), pb.Add(email), pb.Add(passwordHash), pb.Add(string(encoded)),
		pb.Add(s.Dialect.EncodeValue("boolean", true)), pb.Add(s.Dialect.EncodeValue("timestamp", time.Now())))
	if _, err := s.exec(ctx, query, pb.Params()...); err != nil {
		return nil, fmt.Errorf("create user: %w", s.Dialect.MapError(err))
	}
	return u, nil
}

// SetPassword replaces the password hash of an account.
func (s *Store) SetPassword(ctx context.Context, id, passwordHash string) error {
	pb := s.Dialect.NewParamBuilder()
	query := fmt.Sprintf("UPDATE _users SET password_hash = %s WHERE id = %s", pb.Add(passwordHash), pb.Add(id))
	n, err := s.exec(ctx, query, pb.Params()...)
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func userFromRow(row Row) (*User, error) {
	u := &User{
		ID:           fmt.Sprint(row["id"]),
		Email:        fmt.Sprint(row["email"]),
		PasswordHash: fmt.Sprint(row["password_hash"]),
		Roles:        []string{},
	}
	if raw, ok := row["roles"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &u.Roles); err != nil {
			return nil, fmt.Errorf("decode roles of %s: %w", u.ID, err)
		}
	}
	switch v := row["active"].(type) {
	case bool:
		u.Active = v
	case int64:
		u.Active = v != 0
	}
	return u, nil
}
