package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/purchase-approval/internal/application/port"
	"github.com/garyjia/purchase-approval/internal/domain/entity"
)

// SheetName is the worksheet holding the exported requests
const SheetName = "Requests"

const dateLayout = "2006-01-02 15:04"

var headers = []interface{}{
	"ID", "Requester", "Department", "Item", "Quantity", "Estimated cost",
	"Final cost", "Urgency", "Status", "Budget available", "Rejection reason", "Created at", "Updated at",
}

// XLSXExporter renders purchase requests as a spreadsheet
type XLSXExporter struct {
	logger *zap.Logger
}

// NewXLSXExporter creates a new XLSXExporter
func NewXLSXExporter(logger *zap.Logger) *XLSXExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &XLSXExporter{logger: logger}
}

func (e *XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (e *XLSXExporter) Extension() string { return "xlsx" }

// Export writes one header row and one row per request
func (e *XLSXExporter) Export(ctx context.Context, w io.Writer, requests []*entity.PurchaseRequest) error {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if err := file.SetSheetRow(SheetName, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	lastCol, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := file.SetCellStyle(SheetName, "A1", lastCol, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	if err := file.SetColWidth(SheetName, "D", "D", 40); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}

	for i, req := range requests {
		if err := ctx.Err(); err != nil {
			return err
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := rowFor(req)
		if err := file.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write request %d: %w", req.ID, err)
		}
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Debug("Requests exported to workbook", zap.Int("rows", len(requests)))
	return nil
}

func rowFor(req *entity.PurchaseRequest) []interface{} {
	var finalCost interface{}
	if req.FinalCost.Valid {
		finalCost = req.FinalCost.Decimal.InexactFloat64()
	}
	var budget interface{}
	if req.BudgetAvailable != nil {
		budget = *req.BudgetAvailable
	}

	return []interface{}{
		req.ID,
		req.RequesterID,
		req.Department,
		req.ItemDescription,
		req.Quantity,
		req.EstimatedCost.InexactFloat64(),
		finalCost,
		string(req.Urgency),
		string(req.Status),
		budget,
		req.RejectionReason,
		formatTime(req.CreatedAt),
		formatTime(req.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

var _ port.RequestExporter = (*XLSXExporter)(nil)
