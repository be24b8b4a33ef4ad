package sheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/theirongolddev/ptab/internal/model"
)

var (
	balanceHeaders = []string{"Year", "Project", "Project code", "Item code", "Activity code", "Baseline", "Balance"}
	requestHeaders = []string{"Sub-request", "Request", "Issuer", "Type", "Kind", "Object", "Total", "Status", "Created"}
)

// WriteBalances writes the balance listing as an xlsx workbook.
func WriteBalances(w io.Writer, rows []model.BalanceRow) error {
	data := make([][]any, len(rows))
	for i, r := range rows {
		data[i] = []any{r.Year, r.Project, r.ProjectCode, r.ItemCode, r.ActivityCode, r.BaselineAmount, r.Balance}
	}
	return writeWorkbook(w, "Balances", balanceHeaders, data)
}

// WriteRequests writes the sub-request listing as an xlsx workbook.
func WriteRequests(w io.Writer, rows []model.SubRequestRow) error {
	data := make([][]any, len(rows))
	for i, r := range rows {
		data[i] = []any{r.SubRequestID, r.RequestID, r.IssuerRef, r.RequestType, r.Kind, r.Object,
			r.TotalAmount, r.Status, r.CreatedAt.Format("2006-01-02 15:04")}
	}
	return writeWorkbook(w, "Requests", requestHeaders, data)
}

func writeWorkbook(w io.Writer, sheet string, headers []string, data [][]any) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return err
	}

	for r, row := range data {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return f.Write(w)
}
