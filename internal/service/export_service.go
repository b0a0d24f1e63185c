package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/dto"
	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
	"github.com/noah-isme/grievance-api/pkg/export"
)

const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

var exportHeaders = []string{
	"grievanceId", "category", "subCategory", "title", "status",
	"submittedBy", "createdAt", "updatedAt", "resolutionComments", "details",
}

type grievanceLister interface {
	List(ctx context.Context, query dto.GrievanceQuery, actor models.Actor) ([]models.Grievance, error)
}

// ExportFile is a rendered export ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
	Rows        int
	Truncated   bool
}

// ExportService renders the reviewer's visible grievance set as CSV or PDF.
type ExportService struct {
	lister    grievanceLister
	renderers map[string]export.Renderer
	maxRows   int
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs the service with CSV and PDF renderers.
func NewExportService(lister grievanceLister, maxRows int, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		lister: lister,
		renderers: map[string]export.Renderer{
			ExportFormatCSV: export.NewCSVExporter(),
			ExportFormatPDF: export.NewPDFExporter(),
		},
		maxRows: maxRows,
		logger:  logger,
		now:     time.Now,
	}
}

// Export renders the grievances matching query. Only reviewers may export.
func (s *ExportService) Export(ctx context.Context, query dto.ExportQuery, actor models.Actor) (*ExportFile, error) {
	if !actor.Role.IsReviewer() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorizedAction, "only reviewers may export grievances")
	}
	format := strings.ToLower(strings.TrimSpace(query.Format))
	if format == "" {
		format = ExportFormatCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.WithField(appErrors.ErrValidation, "format", fmt.Sprintf("unsupported export format %q", query.Format))
	}

	records, err := s.lister.List(ctx, query.GrievanceQuery, actor)
	if err != nil {
		return nil, err
	}
	truncated := false
	if s.maxRows > 0 && len(records) > s.maxRows {
		records = records[:s.maxRows]
		truncated = true
	}

	generatedAt := s.now().UTC()
	dataset := export.Dataset{
		Title:       "Grievances",
		GeneratedAt: generatedAt,
		Headers:     exportHeaders,
		Rows:        make([]map[string]string, 0, len(records)),
	}
	for _, g := range records {
		dataset.Rows = append(dataset.Rows, exportRow(g))
	}

	body, err := renderer.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.logger.Info("grievances exported",
		zap.String("format", format),
		zap.Int("rows", len(records)),
		zap.Bool("truncated", truncated),
		zap.String("actor_id", actor.ID),
	)
	return &ExportFile{
		Filename:    fmt.Sprintf("grievances-%s.%s", generatedAt.Format("20060102-150405"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
		Rows:        len(records),
		Truncated:   truncated,
	}, nil
}

func exportRow(g models.Grievance) map[string]string {
	row := map[string]string{
		"grievanceId": g.GrievanceID,
		"category":    string(g.Category),
		"subCategory": g.SubCategory,
		"title":       g.Title,
		"status":      string(g.Status),
		"submittedBy": g.SubmittedBy,
		"createdAt":   g.CreatedAt.UTC().Format(time.RFC3339),
		"updatedAt":   g.UpdatedAt.UTC().Format(time.RFC3339),
		"details":     formatDetails(g.Details),
	}
	if g.ResolutionComments != nil {
		row["resolutionComments"] = *g.ResolutionComments
	}
	return row
}

func formatDetails(details models.Details) string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + details[k]
	}
	return strings.Join(parts, "; ")
}
