// Package sheet reads budget spreadsheets into import rows and writes
// balance and request listings as xlsx workbooks.
package sheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/theirongolddev/ptab/internal/model"
)

// Required holds the normalised header names a budget sheet must carry.
var Required = []string{"activities", "projet_code", "result", "item_code", "activity_code", "amount"}

// ReadFile parses a .csv or .xlsx budget file.
func ReadFile(path string) ([]model.BudgetRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return Read(f, filepath.Ext(path))
}

// Read parses a budget sheet from r. ext selects the format and includes
// the dot.
func Read(r io.Reader, ext string) ([]model.BudgetRow, error) {
	var (
		cells [][]string
		err   error
	)
	switch strings.ToLower(ext) {
	case ".csv":
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true
		cells, err = cr.ReadAll()
	case ".xlsx", ".xlsm":
		cells, err = readWorkbook(r)
	default:
		return nil, model.Invalid("file", fmt.Sprintf("unsupported file type %q", ext))
	}
	if err != nil {
		return nil, model.Invalid("file", err.Error())
	}
	return ParseRows(cells)
}

func readWorkbook(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return f.GetRows(f.GetSheetName(0))
}

// NormalizeHeader trims, lowercases and replaces spaces with underscores.
// A leading byte order mark is dropped.
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
}

// ParseRows turns a header row plus data rows into budget rows. Blank rows
// are skipped; a blank amount or activity code reads as zero.
func ParseRows(cells [][]string) ([]model.BudgetRow, error) {
	if len(cells) == 0 {
		return nil, model.Invalid("file", "empty sheet")
	}

	col := make(map[string]int, len(cells[0]))
	for i, h := range cells[0] {
		col[NormalizeHeader(h)] = i
	}
	var missing []string
	for _, name := range Required {
		if _, ok := col[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, model.Invalid("header", "missing columns: "+strings.Join(missing, ", "))
	}

	var rows []model.BudgetRow
	for n, rec := range cells[1:] {
		if blank(rec) {
			continue
		}
		line := n + 2
		get := func(name string) string {
			if i := col[name]; i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}

		code, err := ParseAmount(get("activity_code"))
		if err != nil {
			return nil, model.Invalid(fmt.Sprintf("line %d: activity_code", line), err.Error())
		}
		amount, err := ParseAmount(get("amount"))
		if err != nil {
			return nil, model.Invalid(fmt.Sprintf("line %d: amount", line), err.Error())
		}
		rows = append(rows, model.BudgetRow{
			Activities:   get("activities"),
			ProjectCode:  get("projet_code"),
			Result:       get("result"),
			ItemCode:     get("item_code"),
			ActivityCode: code,
			Amount:       amount,
		})
	}
	return rows, nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ParseAmount reads a whole monetary amount. Spaces, non-breaking spaces and
// comma thousands separators are ignored; an empty cell is zero. Fractional
// values are refused.
func ParseAmount(s string) (int64, error) {
	s = strings.NewReplacer(" ", "", "\u00a0", "", ",", "").Replace(s)
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("%s has a fractional part", d.String())
	}
	if d.Abs().GreaterThan(decimal.NewFromInt(model.MaxAmount)) {
		return 0, fmt.Errorf("%s is out of range", d.String())
	}
	return d.IntPart(), nil
}
