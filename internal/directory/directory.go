// Package directory answers identity and capability questions against the
// user directory. Permission parsing lives here and only here; callers ask
// HasPermission instead of splitting the raw list themselves.
package directory

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// StatusActive is the only status that grants any capability.
const StatusActive = "Active"

// Well-known permission tokens.
const (
	PermAdmin  = "admin"
	PermUpload = "upload"
)

// ErrUserNotFound is returned when no directory row matches an identity.
var ErrUserNotFound = errors.New("user not found in directory")

// User is one validated directory row. The row store maps whatever shape it
// holds into these named fields so nothing downstream depends on column
// order.
type User struct {
	Email        string
	DisplayName  string
	Status       string
	Permissions  string // raw comma-separated list
	PasswordHash string
	Company      string
}

// Active reports whether the row's status grants access at all.
func (u User) Active() bool {
	return strings.EqualFold(strings.TrimSpace(u.Status), StatusActive)
}

// PermissionSet parses the raw permission list: trimmed, lowercased, empty
// entries dropped.
func (u User) PermissionSet() map[string]struct{} {
	set := make(map[string]struct{})
	for _, token := range strings.Split(u.Permissions, ",") {
		token = strings.ToLower(strings.TrimSpace(token))
		if token != "" {
			set[token] = struct{}{}
		}
	}
	return set
}

type rowStore interface {
	GetUserByEmail(ctx context.Context, email string) (User, error)
}

// Service performs directory lookups and capability checks. It holds no
// cache; every check is a fresh lookup.
type Service struct {
	rows rowStore
}

func NewService(rows rowStore) *Service {
	return &Service{rows: rows}
}

// Lookup fetches a directory row by identity, case-insensitively.
func (s *Service) Lookup(ctx context.Context, email string) (User, error) {
	user, err := s.rows.GetUserByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// HasPermission reports whether the identity holds the required token. Fail
// closed: a missing or inactive row answers false without error, only a row
// store failure surfaces as an error.
func (s *Service) HasPermission(ctx context.Context, email, requiredToken string) (bool, error) {
	user, err := s.Lookup(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !user.Active() {
		return false, nil
	}
	_, ok := user.PermissionSet()[strings.ToLower(strings.TrimSpace(requiredToken))]
	return ok, nil
}
