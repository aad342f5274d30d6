package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"peaksuite/api/internal/auth"
	"peaksuite/api/internal/blobpath"
	"peaksuite/api/internal/config"
	"peaksuite/api/internal/directory"
	"peaksuite/api/internal/email"
	"peaksuite/api/internal/export"
	"peaksuite/api/internal/objstore"
	"peaksuite/api/internal/search"
	"peaksuite/api/internal/session"
	"peaksuite/api/internal/store"
	"peaksuite/api/internal/thread"
	"peaksuite/api/internal/util"
)

// Session is an authenticated caller. Email is the acting identity; path
// resolution may be delegated to another workspace owner per request, but
// capability checks always run against Email.
type Session struct {
	Token        string
	RefreshToken string
	Email        string
	DisplayName  string
	Perms        string
	JTI          string
	ExpiresAt    time.Time
}

// workspaceOwner resolves the identity whose storage paths a request
// operates on. Empty means the caller's own workspace.
func (s Session) workspaceOwner(requested string) string {
	requested = strings.TrimSpace(requested)
	if requested != "" {
		return requested
	}
	return s.Email
}

type SaveThreadInput struct {
	WorkspaceOwner string            `json:"workspaceOwner"`
	ClientName     string            `json:"clientName"`
	Title          string            `json:"title"`
	ProjectType    string            `json:"projectType"`
	Status         string            `json:"status"`
	Priority       string            `json:"priority"`
	Conversation   []json.RawMessage `json:"conversation"`
}

type UpdateThreadInput struct {
	WorkspaceOwner string               `json:"workspaceOwner"`
	Path           string               `json:"filePath"`
	Metadata       thread.MetadataPatch `json:"metadata"`
	Conversation   []json.RawMessage    `json:"conversation"`
}

type ClientInput struct {
	DisplayName  string `json:"displayName"`
	BusinessType string `json:"businessType"`
	ContactEmail string `json:"contactEmail"`
}

type ReportInput struct {
	ClientID string          `json:"clientId"`
	Title    string          `json:"title"`
	Period   string          `json:"period"`
	Body     json.RawMessage `json:"body"`
}

type ShareReportInput struct {
	RecipientEmail string `json:"recipientEmail"`
	ExpiresInDays  int    `json:"expiresInDays"`
}

type dataStore interface {
	Ping(ctx context.Context) error
	CreateClient(ctx context.Context, client store.Client) error
	ListClients(ctx context.Context, ownerEmail string) ([]store.Client, error)
	GetClient(ctx context.Context, id, ownerEmail string) (store.Client, error)
	UpdateClient(ctx context.Context, client store.Client) (bool, error)
	DeleteClient(ctx context.Context, id, ownerEmail string) (bool, error)
	CreateReport(ctx context.Context, report store.Report) error
	ListReports(ctx context.Context, ownerEmail string) ([]store.Report, error)
	GetReport(ctx context.Context, id, ownerEmail string) (store.Report, error)
	SetReportShare(ctx context.Context, id, ownerEmail, token string, expiresAt *time.Time) (bool, error)
	GetReportByShareToken(ctx context.Context, token string) (store.Report, error)
	InsertLoginEvent(ctx context.Context, event store.LoginEvent) error
	ListLoginHistory(ctx context.Context, limit int) ([]store.LoginEvent, error)
}

type directoryService interface {
	Lookup(ctx context.Context, email string) (directory.User, error)
	HasPermission(ctx context.Context, email, requiredToken string) (bool, error)
}

type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash string, record session.Record, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (session.Record, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

type threadRepo interface {
	Create(ctx context.Context, in thread.CreateInput) (string, string, error)
	Load(ctx context.Context, path string) (thread.Document, error)
	Update(ctx context.Context, path string, patch thread.MetadataPatch, messages []json.RawMessage) error
	Archive(ctx context.Context, path string) (string, error)
	List(ctx context.Context, owner string, includeArchived bool, clientFilter string) ([]thread.Summary, error)
}

type clientIndex interface {
	ListClientNames(ctx context.Context, owner string) ([]string, error)
}

type Service struct {
	cfg       config.Config
	store     dataStore
	directory directoryService
	sessions  sessionStore
	threads   threadRepo
	folders   clientIndex
	layout    blobpath.Layout
	search    *search.Service
	exporter  *export.Service
	email     *email.Service
}

func New(cfg config.Config, dataStore dataStore, dir directoryService, sessions sessionStore, threads threadRepo, folders clientIndex, layout blobpath.Layout) *Service {
	return &Service{
		cfg:       cfg,
		store:     dataStore,
		directory: dir,
		sessions:  sessions,
		threads:   threads,
		folders:   folders,
		layout:    layout,
	}
}

// WithSearch attaches the optional search service.
func (s *Service) WithSearch(svc *search.Service) *Service {
	s.search = svc
	return s
}

// WithExporter attaches the optional report exporter.
func (s *Service) WithExporter(svc *export.Service) *Service {
	s.exporter = svc
	return s
}

// WithEmail attaches the optional share notification mailer.
func (s *Service) WithEmail(svc *email.Service) *Service {
	s.email = svc
	return s
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ── Auth ──

// Login verifies credentials against the directory and opens a session.
// Every attempt, successful or not, lands in the login history.
func (s *Service) Login(ctx context.Context, emailAddr, password, userAgent, remoteAddr string) (Session, error) {
	emailAddr = strings.TrimSpace(emailAddr)
	if emailAddr == "" || password == "" {
		return Session{}, validationError("email and password are required")
	}

	sess, loginErr := s.authenticate(ctx, emailAddr, password)

	event := store.LoginEvent{
		Email:      strings.ToLower(emailAddr),
		Success:    loginErr == nil,
		UserAgent:  userAgent,
		RemoteAddr: remoteAddr,
	}
	if err := s.store.InsertLoginEvent(ctx, event); err != nil {
		log.Printf("login history insert failed for %s: %v", event.Email, err)
	}

	return sess, loginErr
}

var errInvalidCredentials = domainError(401, "INVALID_CREDENTIALS", "Invalid email or password", nil)

func (s *Service) authenticate(ctx context.Context, emailAddr, password string) (Session, error) {
	user, err := s.directory.Lookup(ctx, emailAddr)
	if errors.Is(err, directory.ErrUserNotFound) {
		return Session{}, errInvalidCredentials
	}
	if err != nil {
		return Session{}, storageUnavailable()
	}
	if !user.Active() {
		return Session{}, errInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return Session{}, errInvalidCredentials
	}
	return s.openSession(ctx, user)
}

func (s *Service) openSession(ctx context.Context, user directory.User) (Session, error) {
	jti := util.NewID("jti")
	expiresAt := time.Now().Add(s.cfg.AccessTTL)
	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:   strings.ToLower(user.Email),
		Name:  user.DisplayName,
		Perms: user.Permissions,
		JTI:   jti,
		Exp:   expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refreshToken := util.NewID("rt")
	record := session.Record{
		Email:       strings.ToLower(user.Email),
		DisplayName: user.DisplayName,
		Permissions: user.Permissions,
	}
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refreshToken), record, time.Now().Add(s.cfg.RefreshTTL)); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refreshToken,
		Email:        strings.ToLower(user.Email),
		DisplayName:  user.DisplayName,
		Perms:        user.Permissions,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

// Refresh rotates a refresh token and issues a new access token. The
// directory row is re-checked so a deactivated user cannot keep refreshing.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	hash := auth.HashToken(refreshToken)
	record, err := s.sessions.LookupRefreshSession(ctx, hash)
	if errors.Is(err, session.ErrSessionNotFound) {
		return Session{}, domainError(401, "UNAUTHORIZED", "Refresh token invalid", nil)
	}
	if err != nil {
		return Session{}, err
	}

	user, err := s.directory.Lookup(ctx, record.Email)
	if errors.Is(err, directory.ErrUserNotFound) {
		_ = s.sessions.RevokeRefreshSession(ctx, hash)
		return Session{}, domainError(401, "UNAUTHORIZED", "Refresh token invalid", nil)
	}
	if err != nil {
		// A transient directory outage must not consume the token; the
		// client retries with the same one.
		return Session{}, storageUnavailable()
	}
	if !user.Active() {
		_ = s.sessions.RevokeRefreshSession(ctx, hash)
		return Session{}, domainError(401, "UNAUTHORIZED", "Refresh token invalid", nil)
	}

	if err := s.sessions.RevokeRefreshSession(ctx, hash); err != nil {
		return Session{}, err
	}
	return s.openSession(ctx, user)
}

// Logout revokes a refresh token. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return nil
	}
	return s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
}

// SessionFromToken validates an access token and rebuilds the session.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Email:       claims.Sub,
		DisplayName: claims.Name,
		Perms:       claims.Perms,
		JTI:         claims.JTI,
		ExpiresAt:   time.Unix(claims.Exp, 0),
	}, nil
}

// requirePermission re-checks the directory on every call; token claims are
// never trusted for capability gating.
func (s *Service) requirePermission(ctx context.Context, actingEmail, token string) error {
	ok, err := s.directory.HasPermission(ctx, actingEmail, token)
	if err != nil {
		return storageUnavailable()
	}
	if !ok {
		return forbidden()
	}
	return nil
}

// ── Threads ──

func (s *Service) SaveThread(ctx context.Context, sess Session, in SaveThreadInput) (map[string]any, error) {
	if err := s.requirePermission(ctx, sess.Email, directory.PermUpload); err != nil {
		return nil, err
	}
	owner := sess.workspaceOwner(in.WorkspaceOwner)

	threadID, path, err := s.threads.Create(ctx, thread.CreateInput{
		Owner:       owner,
		ClientName:  in.ClientName,
		Title:       in.Title,
		ProjectType: in.ProjectType,
		Status:      in.Status,
		Priority:    in.Priority,
		CreatedBy:   sess.Email,
		Messages:    in.Conversation,
	})
	if err != nil {
		return nil, mapThreadErr(err)
	}

	s.indexThread(ctx, owner, path)
	return map[string]any{"threadId": threadID, "filePath": path}, nil
}

func (s *Service) LoadThread(ctx context.Context, sess Session, workspaceOwner, path string) (thread.Document, error) {
	owner := sess.workspaceOwner(workspaceOwner)
	if err := s.ownedPath(owner, path); err != nil {
		return thread.Document{}, err
	}
	doc, err := s.threads.Load(ctx, path)
	if err != nil {
		return thread.Document{}, mapThreadErr(err)
	}
	return doc, nil
}

func (s *Service) UpdateThread(ctx context.Context, sess Session, in UpdateThreadInput) (thread.Document, error) {
	if err := s.requirePermission(ctx, sess.Email, directory.PermUpload); err != nil {
		return thread.Document{}, err
	}
	owner := sess.workspaceOwner(in.WorkspaceOwner)
	if err := s.ownedPath(owner, in.Path); err != nil {
		return thread.Document{}, err
	}

	if err := s.threads.Update(ctx, in.Path, in.Metadata, in.Conversation); err != nil {
		return thread.Document{}, mapThreadErr(err)
	}

	doc, err := s.threads.Load(ctx, in.Path)
	if err != nil {
		return thread.Document{}, mapThreadErr(err)
	}
	s.indexThread(ctx, owner, in.Path)
	return doc, nil
}

func (s *Service) ArchiveThread(ctx context.Context, sess Session, workspaceOwner, path string) (map[string]any, error) {
	if err := s.requirePermission(ctx, sess.Email, directory.PermUpload); err != nil {
		return nil, err
	}
	owner := sess.workspaceOwner(workspaceOwner)
	if err := s.ownedPath(owner, path); err != nil {
		return nil, err
	}

	newPath, err := s.threads.Archive(ctx, path)
	if err != nil {
		return nil, mapThreadErr(err)
	}
	s.indexThread(ctx, owner, newPath)
	return map[string]any{"filePath": newPath, "isArchived": true}, nil
}

func (s *Service) ListThreads(ctx context.Context, sess Session, workspaceOwner string, includeArchived bool, clientFilter string) ([]thread.Summary, error) {
	owner := sess.workspaceOwner(workspaceOwner)
	summaries, err := s.threads.List(ctx, owner, includeArchived, clientFilter)
	if err != nil {
		return nil, mapThreadErr(err)
	}
	return summaries, nil
}

func (s *Service) ListClientFolders(ctx context.Context, sess Session, workspaceOwner string) ([]string, error) {
	owner := sess.workspaceOwner(workspaceOwner)
	names, err := s.folders.ListClientNames(ctx, owner)
	if err != nil {
		return nil, mapThreadErr(err)
	}
	return names, nil
}

func (s *Service) SearchThreads(ctx context.Context, sess Session, q search.Query) search.Response {
	q.Owner = sess.workspaceOwner(q.Owner)
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Total: 0, Query: q.Text}
	}
	return s.search.Search(ctx, q)
}

// ownedPath rejects paths outside the resolved workspace before any store
// call is made.
func (s *Service) ownedPath(owner, path string) error {
	if strings.TrimSpace(path) == "" {
		return validationError("filePath is required")
	}
	if !strings.HasPrefix(path, s.layout.OwnerPrefix(owner)) {
		return forbidden()
	}
	return nil
}

// indexThread pushes a thread into the search index, best-effort. The
// owner identity is indexed as-is so search queries scoped to the same
// identity match.
func (s *Service) indexThread(ctx context.Context, owner, path string) {
	if s.search == nil {
		return
	}
	doc, err := s.threads.Load(ctx, path)
	if err != nil {
		log.Printf("search index skip %s: %v", path, err)
		return
	}
	s.search.IndexThread(search.ThreadRecord{
		ID:          doc.ThreadID,
		Title:       doc.Metadata.Title,
		ClientName:  doc.Metadata.ClientName,
		ProjectType: doc.Metadata.ProjectType,
		Status:      doc.Metadata.Status,
		Owner:       owner,
		Path:        path,
		Archived:    blobpath.IsArchivedPath(path),
	})
}

func mapThreadErr(err error) error {
	var domainErr *DomainError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, objstore.ErrNotFound):
		return notFound("Thread not found")
	case errors.Is(err, thread.ErrInvalidInput):
		return validationError(err.Error())
	case errors.Is(err, blobpath.ErrNotActivePath):
		return validationError(err.Error())
	default:
		return storageUnavailable()
	}
}

// ── Clients ──

func (s *Service) CreateClient(ctx context.Context, sess Session, in ClientInput) (store.Client, error) {
	if err := s.requirePermission(ctx, sess.Email, directory.PermUpload); err != nil {
		return store.Client{}, err
	}
	if strings.TrimSpace(in.DisplayName) == "" {
		return store.Client{}, validationError("displayName is required")
	}

	client := store.Client{
		ID:           util.NewID("client"),
		OwnerEmail:   sess.Email,
		DisplayName:  strings.TrimSpace(in.DisplayName),
		BusinessType: strings.TrimSpace(in.BusinessType),
		ContactEmail: strings.TrimSpace(in.ContactEmail),
	}
	if err := s.store.CreateClient(ctx, client); err != nil {
		return store.Client{}, err
	}
	return s.store.GetClient(ctx, client.ID, sess.Email)
}

func (s *Service) ListClients(ctx context.Context, sess Session) ([]store.Client, error) {
	return s.store.ListClients(ctx, sess.Email)
}

func (s *Service) UpdateClient(ctx context.Context, sess Session, id string, in ClientInput) (store.Client, error) {
	if err := s.requirePermission(ctx, sess.Email, directory.PermUpload); err != nil {
		return store.Client{}, err
	}
	if strings.TrimSpace(in.DisplayName) == "" {
		return store.Client{}, validationError("displayName is required")
	}

	updated, err := s.store.UpdateClient(ctx, store.Client{
		ID:           id,
		OwnerEmail:   sess.Email,
		DisplayName:  strings.TrimSpace(in.DisplayName),
		BusinessType: strings.TrimSpace(in.BusinessType),
		ContactEmail: strings.TrimSpace(in.ContactEmail),
	})
	if err != nil {
		return store.Client{}, err
	}
	if !updated {
		return store.Client{}, notFound("Client not found")
	}
	return s.store.GetClient(ctx, id, sess.Email)
}

func (s *Service) DeleteClient(ctx context.Context, sess Session, id string) error {
	if err := s.requirePermission(ctx, sess.Email, directory.PermUpload); err != nil {
		return err
	}
	deleted, err := s.store.DeleteClient(ctx, id, sess.Email)
	if err != nil {
		return err
	}
	if !deleted {
		return notFound("Client not found")
	}
	return nil
}

// ── Reports ──

func (s *Service) CreateReport(ctx context.Context, sess Session, in ReportInput) (store.Report, error) {
	if err := s.requirePermission(ctx, sess.Email, directory.PermUpload); err != nil {
		return store.Report{}, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return store.Report{}, validationError("title is required")
	}
	if strings.TrimSpace(in.ClientID) == "" {
		return store.Report{}, validationError("clientId is required")
	}
	if _, err := s.store.GetClient(ctx, in.ClientID, sess.Email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Report{}, notFound("Client not found")
		}
		return store.Report{}, err
	}

	body := in.Body
	if len(body) == 0 {
		body = json.RawMessage(`{}`)
	}
	report := store.Report{
		ID:         util.NewID("report"),
		OwnerEmail: sess.Email,
		ClientID:   in.ClientID,
		Title:      strings.TrimSpace(in.Title),
		Period:     strings.TrimSpace(in.Period),
		Body:       body,
	}
	if err := s.store.CreateReport(ctx, report); err != nil {
		return store.Report{}, err
	}
	return s.store.GetReport(ctx, report.ID, sess.Email)
}

func (s *Service) ListReports(ctx context.Context, sess Session) ([]store.Report, error) {
	return s.store.ListReports(ctx, sess.Email)
}

func (s *Service) GetReport(ctx context.Context, sess Session, id string) (store.Report, error) {
	report, err := s.store.GetReport(ctx, id, sess.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Report{}, notFound("Report not found")
	}
	return report, err
}

func (s *Service) ExportReport(ctx context.Context, sess Session, id string, format export.Format) (*export.Result, error) {
	if s.exporter == nil {
		return nil, domainError(503, "EXPORT_UNAVAILABLE", "Export service not configured", nil)
	}
	result, err := s.exporter.Export(ctx, export.Request{
		ReportID:   id,
		OwnerEmail: sess.Email,
		Format:     format,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("Report not found")
	}
	if errors.Is(err, export.ErrPDFDependencyMissing) {
		return nil, domainError(503, "EXPORT_UNAVAILABLE", "PDF renderer not available", nil)
	}
	return result, err
}

// ShareReport mints (or replaces) the public link for a report and
// optionally emails it to a recipient.
func (s *Service) ShareReport(ctx context.Context, sess Session, id string, in ShareReportInput) (map[string]any, error) {
	report, err := s.GetReport(ctx, sess, id)
	if err != nil {
		return nil, err
	}

	token := util.NewShareToken()
	var expiresAt *time.Time
	expiryNote := ""
	if in.ExpiresInDays > 0 {
		t := time.Now().Add(time.Duration(in.ExpiresInDays) * 24 * time.Hour)
		expiresAt = &t
		expiryNote = "This link expires on " + t.Format("Jan 2, 2006") + "."
	}

	updated, err := s.store.SetReportShare(ctx, id, sess.Email, token, expiresAt)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, notFound("Report not found")
	}

	shareURL := strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/share/" + token

	recipient := strings.TrimSpace(in.RecipientEmail)
	if recipient != "" && s.email != nil && s.email.IsConfigured() {
		if err := s.email.SendReportShareEmail(recipient, sess.DisplayName, report.ClientName, report.Title, shareURL, expiryNote); err != nil {
			log.Printf("share email to %s failed: %v", recipient, err)
		}
	}

	payload := map[string]any{"shareUrl": shareURL, "token": token}
	if expiresAt != nil {
		payload["expiresAt"] = expiresAt
	}
	return payload, nil
}

// PublicReport resolves a share token without authentication. The payload
// excludes the owner identity.
func (s *Service) PublicReport(ctx context.Context, token string) (map[string]any, error) {
	report, err := s.store.GetReportByShareToken(ctx, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("Share link not found or expired")
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"title":      report.Title,
		"clientName": report.ClientName,
		"period":     report.Period,
		"body":       report.Body,
		"updatedAt":  report.UpdatedAt,
	}, nil
}

// ── Admin ──

func (s *Service) LoginHistory(ctx context.Context, sess Session, limit int) ([]store.LoginEvent, error) {
	if err := s.requirePermission(ctx, sess.Email, directory.PermAdmin); err != nil {
		return nil, err
	}
	return s.store.ListLoginHistory(ctx, limit)
}

// ReportExportStore adapts the relational store to the exporter's view of a
// report.
type ReportExportStore struct {
	Store *store.PostgresStore
}

func (r ReportExportStore) GetReportForExport(ctx context.Context, ownerEmail, id string) (export.ReportInfo, error) {
	report, err := r.Store.GetReport(ctx, id, ownerEmail)
	if err != nil {
		return export.ReportInfo{}, err
	}
	return export.ReportInfo{
		ID:         report.ID,
		Title:      report.Title,
		ClientName: report.ClientName,
		Period:     report.Period,
		Author:     report.OwnerEmail,
		Body:       report.Body,
		UpdatedAt:  report.UpdatedAt,
	}, nil
}
