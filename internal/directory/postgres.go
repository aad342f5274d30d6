package directory

import (
	"context"
	"database/sql"
)

// PostgresRows reads directory users from the relational store.
type PostgresRows struct {
	db *sql.DB
}

func NewPostgresRows(db *sql.DB) *PostgresRows {
	return &PostgresRows{db: db}
}

func (p *PostgresRows) GetUserByEmail(ctx context.Context, email string) (User, error) {
	const query = `
		SELECT email, display_name, status, permissions, password_hash, company
		FROM directory_users
		WHERE LOWER(email) = LOWER($1)
	`
	var user User
	err := p.db.QueryRowContext(ctx, query, email).Scan(
		&user.Email,
		&user.DisplayName,
		&user.Status,
		&user.Permissions,
		&user.PasswordHash,
		&user.Company,
	)
	if err != nil {
		return User{}, err
	}
	return user, nil
}
