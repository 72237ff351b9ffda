package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/club-expenses/internal/domain/entity"
)

func TestExcelReportWriter_WriteExpenses(t *testing.T) {
	w := NewExcelReportWriter(zap.NewNop())
	day := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)

	expenses := []entity.Expense{
		{ID: "e1", ClubID: "chess", ClubName: "Chess Club", Description: "Tournament entry fees",
			Amount: 120.5, Status: entity.ExpenseStatusPending, SubmittedDate: day, SubmitterName: "Ann", IsFlagged: true},
		{ID: "e2", ClubID: "rowing", Description: "Boat repair parts",
			Amount: 79.5, Status: entity.ExpenseStatusApproved, SubmittedDate: day, AdminComment: "ok"},
	}

	var buf bytes.Buffer
	require.NoError(t, w.WriteExpenses(context.Background(), &buf, expenses))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, headers, rows[0])
	assert.Equal(t, "e1", rows[1][0])
	assert.Equal(t, "Chess Club", rows[1][1])
	assert.Equal(t, "Pending", rows[1][4])
	assert.Equal(t, "2024-05-02", rows[1][5])
	assert.Equal(t, "Yes", rows[1][7])
	assert.Equal(t, "rowing", rows[2][1])
	assert.Equal(t, "No", rows[2][7])
	assert.Equal(t, "ok", rows[2][8])

	total, err := f.GetCellValue(sheetName, "D4", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "200", total)
}

func TestExcelReportWriter_Empty(t *testing.T) {
	w := NewExcelReportWriter(zap.NewNop())

	var buf bytes.Buffer
	require.NoError(t, w.WriteExpenses(context.Background(), &buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Total", rows[1][2])
}

func TestExcelReportWriter_Canceled(t *testing.T) {
	w := NewExcelReportWriter(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	err := w.WriteExpenses(ctx, &buf, []entity.Expense{{ID: "e1"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, buf.Len())
}

func TestContentType(t *testing.T) {
	assert.Equal(t, XLSXContentType, NewExcelReportWriter(zap.NewNop()).ContentType())
}
