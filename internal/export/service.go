package export

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"time"
)

// DataStore defines the interface for data access
type DataStore interface {
	GetReportForExport(ctx context.Context, ownerEmail, id string) (ReportInfo, error)
}

// ReportInfo holds the report fields the exporter needs
type ReportInfo struct {
	ID         string
	Title      string
	ClientName string
	Period     string
	Author     string
	Body       json.RawMessage
	UpdatedAt  time.Time
}

// Service provides report export functionality
type Service struct {
	store DataStore
}

// NewService creates a new export service
func NewService(store DataStore) *Service {
	return &Service{store: store}
}

// Export generates an export in the requested format
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	report, err := s.store.GetReportForExport(ctx, req.OwnerEmail, req.ReportID)
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}

	html, err := RenderReportHTML(TemplateData{
		Title:       report.Title,
		ClientName:  report.ClientName,
		Period:      report.Period,
		BodyHTML:    template.HTML(BodyToHTML(report.Body)),
		Author:      report.Author,
		GeneratedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch req.Format {
	case FormatPDF:
		return exportPDF(html, report.Title)
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
}
