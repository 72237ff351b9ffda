// Package export renders expense lists for download.
package export

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/club-expenses/internal/application/port"
	"github.com/garyjia/club-expenses/internal/domain/entity"
)

const (
	sheetName = "Expenses"

	// XLSXContentType is the MIME type of the generated workbook
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var headers = []string{
	"ID", "Club", "Description", "Amount", "Status",
	"Submitted", "Submitter", "Flagged", "Admin Comment", "Receipt",
}

// ExcelReportWriter writes expenses into a single-sheet xlsx workbook
type ExcelReportWriter struct {
	logger *zap.Logger
}

var _ port.ReportWriter = (*ExcelReportWriter)(nil)

// NewExcelReportWriter creates a new ExcelReportWriter
func NewExcelReportWriter(logger *zap.Logger) *ExcelReportWriter {
	return &ExcelReportWriter{logger: logger}
}

// ContentType returns the xlsx MIME type
func (w *ExcelReportWriter) ContentType() string {
	return XLSXContentType
}

// WriteExpenses writes one row per expense followed by a total row
func (w *ExcelReportWriter) WriteExpenses(ctx context.Context, out io.Writer, expenses []entity.Expense) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	if err := f.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	total := 0.0
	for i, e := range expenses {
		if err := ctx.Err(); err != nil {
			return err
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			e.ID,
			clubLabel(e),
			e.Description,
			e.Amount,
			e.Status.String(),
			e.SubmittedDate.Format("2006-01-02"),
			e.SubmitterName,
			yesNo(e.IsFlagged),
			e.AdminComment,
			e.ReceiptURL,
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
		total += e.Amount
	}

	totalRow := len(expenses) + 2
	w.setCell(f, fmt.Sprintf("C%d", totalRow), "Total")
	w.setCell(f, fmt.Sprintf("D%d", totalRow), total)

	if err := w.applyStyles(f, totalRow); err != nil {
		w.logger.Warn("Failed to style expense report", zap.Error(err))
	}

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	w.logger.Info("Expense report written",
		zap.Int("rows", len(expenses)),
		zap.Float64("total", total))
	return nil
}

func (w *ExcelReportWriter) setCell(f *excelize.File, cell string, value interface{}) {
	if err := f.SetCellValue(sheetName, cell, value); err != nil {
		w.logger.Warn("Failed to set cell value",
			zap.String("cell", cell),
			zap.Error(err))
	}
}

func (w *ExcelReportWriter) applyStyles(f *excelize.File, totalRow int) error {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", "J1", bold); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, fmt.Sprintf("C%d", totalRow), fmt.Sprintf("D%d", totalRow), bold); err != nil {
		return err
	}

	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "D2", fmt.Sprintf("D%d", totalRow), money); err != nil {
		return err
	}

	if err := f.SetColWidth(sheetName, "B", "C", 28); err != nil {
		return err
	}
	return f.SetColWidth(sheetName, "I", "J", 32)
}

func clubLabel(e entity.Expense) string {
	if e.ClubName != "" {
		return e.ClubName
	}
	return e.ClubID
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
