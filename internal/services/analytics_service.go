package services

import (
	"bytes"
	"context"
	"log/slog"

	apierrors "licensor/internal/errors"
	"licensor/internal/exporter"
	"licensor/internal/license"
	"licensor/pkg/contracts/domain"
)

// AnalyticsService provides the read-side views over the audit log.
type AnalyticsService interface {
	Logs(ctx context.Context, filter license.LogFilter) ([]domain.ValidationLog, error)
	Summary(ctx context.Context) (*license.Summary, error)
	ExportXLSX(ctx context.Context) ([]byte, error)
}

type analyticsService struct {
	manager *license.Manager
	logger  *slog.Logger
}

// NewAnalyticsService creates an analytics service over the license manager.
func NewAnalyticsService(manager *license.Manager, logger *slog.Logger) AnalyticsService {
	return &analyticsService{
		manager: manager,
		logger:  logger.With(slog.String("service", "analytics")),
	}
}

func (s *analyticsService) Logs(ctx context.Context, filter license.LogFilter) ([]domain.ValidationLog, error) {
	entries, err := s.manager.Logs(ctx, filter)
	if err != nil {
		return nil, apierrors.InternalError(err)
	}
	return entries, nil
}

func (s *analyticsService) Summary(ctx context.Context) (*license.Summary, error) {
	summary, err := s.manager.Summarize(ctx)
	if err != nil {
		return nil, apierrors.InternalError(err)
	}
	return summary, nil
}

// ExportXLSX renders the full audit trail and its summary into an xlsx
// workbook and returns the encoded bytes.
func (s *analyticsService) ExportXLSX(ctx context.Context) ([]byte, error) {
	summary, err := s.manager.Summarize(ctx)
	if err != nil {
		return nil, apierrors.InternalError(err)
	}
	entries, err := s.manager.Logs(ctx, license.LogFilter{})
	if err != nil {
		return nil, apierrors.InternalError(err)
	}

	workbook, err := exporter.BuildWorkbook(summary, entries)
	if err != nil {
		return nil, apierrors.InternalError(err)
	}
	defer workbook.Close()

	var buf bytes.Buffer
	if err := workbook.Write(&buf); err != nil {
		return nil, apierrors.InternalError(err)
	}
	s.logger.InfoContext(ctx, "analytics workbook exported",
		slog.Int("entries", len(entries)),
		slog.Int("bytes", buf.Len()),
	)
	return buf.Bytes(), nil
}
