package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Clients

func (s *PostgresStore) CreateClient(ctx context.Context, client Client) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clients (id, owner_email, display_name, business_type, contact_email)
		VALUES ($1, $2, $3, $4, $5)
	`, client.ID, client.OwnerEmail, client.DisplayName, client.BusinessType, client.ContactEmail)
	if err != nil {
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListClients(ctx context.Context, ownerEmail string) ([]Client, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_email, display_name, business_type, contact_email, created_at, updated_at
		FROM clients
		WHERE LOWER(owner_email) = LOWER($1)
		ORDER BY LOWER(display_name)
	`, ownerEmail)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var clients []Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.OwnerEmail, &c.DisplayName, &c.BusinessType, &c.ContactEmail, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (s *PostgresStore) GetClient(ctx context.Context, id, ownerEmail string) (Client, error) {
	var c Client
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_email, display_name, business_type, contact_email, created_at, updated_at
		FROM clients
		WHERE id = $1 AND LOWER(owner_email) = LOWER($2)
	`, id, ownerEmail).Scan(&c.ID, &c.OwnerEmail, &c.DisplayName, &c.BusinessType, &c.ContactEmail, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Client{}, err
	}
	return c, nil
}

func (s *PostgresStore) UpdateClient(ctx context.Context, client Client) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE clients
		SET display_name = $3, business_type = $4, contact_email = $5, updated_at = NOW()
		WHERE id = $1 AND LOWER(owner_email) = LOWER($2)
	`, client.ID, client.OwnerEmail, client.DisplayName, client.BusinessType, client.ContactEmail)
	if err != nil {
		return false, fmt.Errorf("update client: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update client: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) DeleteClient(ctx context.Context, id, ownerEmail string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM clients WHERE id = $1 AND LOWER(owner_email) = LOWER($2)
	`, id, ownerEmail)
	if err != nil {
		return false, fmt.Errorf("delete client: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete client: %w", err)
	}
	return affected > 0, nil
}

// Reports

func (s *PostgresStore) CreateReport(ctx context.Context, report Report) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reports (id, owner_email, client_id, title, period, body)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, report.ID, report.OwnerEmail, report.ClientID, report.Title, report.Period, []byte(report.Body))
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

const reportColumns = `
	r.id, r.owner_email, r.client_id, COALESCE(c.display_name, ''), r.title, r.period, r.body,
	r.share_token, r.share_expires_at, r.view_count, r.created_at, r.updated_at
`

func scanReport(row interface{ Scan(...any) error }) (Report, error) {
	var r Report
	var body []byte
	err := row.Scan(&r.ID, &r.OwnerEmail, &r.ClientID, &r.ClientName, &r.Title, &r.Period, &body,
		&r.ShareToken, &r.ShareExpiresAt, &r.ViewCount, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return Report{}, err
	}
	r.Body = body
	return r, nil
}

func (s *PostgresStore) ListReports(ctx context.Context, ownerEmail string) ([]Report, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reportColumns+`
		FROM reports r
		LEFT JOIN clients c ON c.id = r.client_id
		WHERE LOWER(r.owner_email) = LOWER($1)
		ORDER BY r.updated_at DESC
	`, ownerEmail)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func (s *PostgresStore) GetReport(ctx context.Context, id, ownerEmail string) (Report, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+reportColumns+`
		FROM reports r
		LEFT JOIN clients c ON c.id = r.client_id
		WHERE r.id = $1 AND LOWER(r.owner_email) = LOWER($2)
	`, id, ownerEmail)
	return scanReport(row)
}

func (s *PostgresStore) SetReportShare(ctx context.Context, id, ownerEmail, token string, expiresAt *time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE reports
		SET share_token = $3, share_expires_at = $4, updated_at = NOW()
		WHERE id = $1 AND LOWER(owner_email) = LOWER($2)
	`, id, ownerEmail, token, expiresAt)
	if err != nil {
		return false, fmt.Errorf("set report share: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set report share: %w", err)
	}
	return affected > 0, nil
}

// GetReportByShareToken resolves a public share link and bumps its view
// count. Expired links behave like missing ones.
func (s *PostgresStore) GetReportByShareToken(ctx context.Context, token string) (Report, error) {
	var r Report
	var body []byte
	err := s.db.QueryRowContext(ctx, `
		UPDATE reports
		SET view_count = view_count + 1
		WHERE share_token = $1
			AND (share_expires_at IS NULL OR share_expires_at > NOW())
		RETURNING id, owner_email, client_id, title, period, body,
			share_token, share_expires_at, view_count, created_at, updated_at
	`, token).Scan(&r.ID, &r.OwnerEmail, &r.ClientID, &r.Title, &r.Period, &body,
		&r.ShareToken, &r.ShareExpiresAt, &r.ViewCount, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return Report{}, err
	}
	r.Body = body

	var clientName sql.NullString
	if lookupErr := s.db.QueryRowContext(ctx,
		`SELECT display_name FROM clients WHERE id = $1`, r.ClientID,
	).Scan(&clientName); lookupErr != nil && !errors.Is(lookupErr, sql.ErrNoRows) {
		return Report{}, fmt.Errorf("lookup report client: %w", lookupErr)
	}
	r.ClientName = clientName.String
	return r, nil
}

// Login history

func (s *PostgresStore) InsertLoginEvent(ctx context.Context, event LoginEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO login_history (email, success, user_agent, remote_addr)
		VALUES ($1, $2, $3, $4)
	`, event.Email, event.Success, event.UserAgent, event.RemoteAddr)
	if err != nil {
		return fmt.Errorf("insert login event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListLoginHistory(ctx context.Context, limit int) ([]LoginEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, success, user_agent, remote_addr, created_at
		FROM login_history
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list login history: %w", err)
	}
	defer rows.Close()

	var events []LoginEvent
	for rows.Next() {
		var e LoginEvent
		if err := rows.Scan(&e.ID, &e.Email, &e.Success, &e.UserAgent, &e.RemoteAddr, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan login event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
