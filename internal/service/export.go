package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/spec-kit/helpdesk/internal/domain"
)

var exportHeaders = []string{
	"ID", "Queue", "Category", "Title", "Status", "Priority",
	"Assigned To", "Created By", "Documents", "Created At", "Updated At", "Closed At",
}

func exportRow(t domain.Ticket) []string {
	assigned := ""
	if t.AssignedToID != nil {
		assigned = *t.AssignedToID
	}
	closed := ""
	if t.ClosedAt != nil {
		closed = t.ClosedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		t.ID,
		t.QueueID,
		t.CategoryID,
		t.Title,
		string(t.Status),
		string(t.Priority),
		assigned,
		t.CreatedByID,
		strings.Join(t.DocumentIDs, ";"),
		t.CreatedAt.UTC().Format(time.RFC3339),
		t.UpdatedAt.UTC().Format(time.RFC3339),
		closed,
	}
}

// WriteTicketsCSV writes tickets as CSV with a header row.
func WriteTicketsCSV(w io.Writer, tickets []domain.Ticket) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeaders); err != nil {
		return err
	}
	for _, t := range tickets {
		if err := cw.Write(exportRow(t)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTicketsXLSX writes tickets as a single-sheet workbook.
func WriteTicketsXLSX(w io.Writer, tickets []domain.Ticket) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Tickets"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return err
		}
	}
	for rowIdx, t := range tickets {
		for colIdx, v := range exportRow(t) {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	for i := range exportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheet, col, col, 20)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
