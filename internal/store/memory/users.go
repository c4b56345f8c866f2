package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"fast-frontend/internal/store"
)

func (s *Store) FindUserByEmail(_ context.Context, email string) (*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) FindUserByID(_ context.Context, id string) (*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) CreateUser(_ context.Context, email, passwordHash string, roles []string) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return nil, fmt.Errorf("%w: _users.email", store.ErrUniqueViolation)
		}
	}
	u := &store.User{ID: uuid.New().String(), Email: email, PasswordHash: passwordHash, Roles: roles, Active: true}
	s.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (s *Store) SetPassword(_ context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}
