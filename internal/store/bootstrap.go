package store

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	defaultAdminEmail    = "admin@localhost"
	defaultAdminPassword = "changeme"
)

// Bootstrap creates the accounts table. An empty table gets an admin
// account so the admin pages are reachable on first run.
func (s *Store) Bootstrap(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, usersTable(s.Dialect)); err != nil {
		return fmt.Errorf("create accounts table: %w", err)
	}

	var accounts int
	if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM _users").Scan(&accounts); err != nil {
		return fmt.Errorf("count accounts: %w", err)
	}
	if accounts > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(defaultAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if _, err := s.CreateUser(ctx, defaultAdminEmail, string(hash), []string{"admin"}); err != nil {
		return fmt.Errorf("seed admin account: %w", err)
	}
	s.log.WithField("email", defaultAdminEmail).Warn("seeded admin account with the default password; change it now")
	return nil
}
