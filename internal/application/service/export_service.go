package service

import (
	"context"
	"fmt"
	"io"

	"github.com/garyjia/purchase-approval/internal/application/port"
	"github.com/garyjia/purchase-approval/internal/domain/entity"
	domainwf "github.com/garyjia/purchase-approval/internal/domain/workflow"
)

// MaxExportRows caps a single export
const MaxExportRows = 10000

// ExportService writes the visible requests matching a query to a document
type ExportService interface {
	Export(ctx context.Context, actor entity.Actor, query ListQuery, w io.Writer) error
	ContentType() string
	Extension() string
}

type exportServiceImpl struct {
	requests port.PurchaseRequestRepository
	exporter port.RequestExporter
	logger   Logger
}

// NewExportService creates a new ExportService
func NewExportService(requests port.PurchaseRequestRepository, exporter port.RequestExporter, logger Logger) ExportService {
	return &exportServiceImpl{
		requests: requests,
		exporter: exporter,
		logger:   orNop(logger),
	}
}

func (s *exportServiceImpl) ContentType() string { return s.exporter.ContentType() }
func (s *exportServiceImpl) Extension() string   { return s.exporter.Extension() }

// Export ignores the query's paging and walks every matching page
func (s *exportServiceImpl) Export(ctx context.Context, actor entity.Actor, query ListQuery, w io.Writer) error {
	query.Page, query.PageSize = 1, MaxPageSize
	filter, err := BuildFilter(actor, query)
	if err != nil {
		return err
	}

	var rows []*entity.PurchaseRequest
	for len(rows) < MaxExportRows {
		page, total, err := s.requests.List(ctx, filter)
		if err != nil {
			return fmt.Errorf("%w: %w", domainwf.ErrPersistence, err)
		}
		rows = append(rows, page...)
		if len(page) < filter.Limit || len(rows) >= total {
			break
		}
		filter.Offset += filter.Limit
	}
	if len(rows) > MaxExportRows {
		rows = rows[:MaxExportRows]
	}

	if err := s.exporter.Export(ctx, w, rows); err != nil {
		s.logger.Error("Failed to export requests", "actor_id", actor.ID, "rows", len(rows), "error", err)
		return fmt.Errorf("export requests: %w", err)
	}
	s.logger.Info("Requests exported", "actor_id", actor.ID, "rows", len(rows))
	return nil
}
