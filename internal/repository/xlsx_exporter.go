package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"FinWatch/internal/domain/models"
	drepo "FinWatch/internal/domain/repository"
	"FinWatch/pkg/util"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Data"

var xlsxHeader = []interface{}{"Datetime", "original", "ma", "median", "maximum", "minimum"}

// XLSXExporter writes <SYMBOL>_exported.xlsx under dir, replacing any
// previous export of the same symbol.
type XLSXExporter struct {
	dir string
}

var _ drepo.Exporter = (*XLSXExporter)(nil)

func NewXLSXExporter(dir string) *XLSXExporter {
	return &XLSXExporter{dir: dir}
}

func (e *XLSXExporter) Format() string { return "xlsx" }

// Path returns the file an export of symbol is written to.
func (e *XLSXExporter) Path(symbol string) string {
	return filepath.Join(e.dir, util.SanitizeFilename(symbol)+"_exported.xlsx")
}

func (e *XLSXExporter) Export(ctx context.Context, r *models.Result) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName(f.GetSheetName(0), xlsxSheet); err != nil {
		return "", fmt.Errorf("xlsx sheet: %w", err)
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &xlsxHeader); err != nil {
		return "", fmt.Errorf("xlsx header: %w", err)
	}

	for i, row := range r.Rows() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", err
		}
		values := []interface{}{
			row.Time.UTC().Format("2006-01-02 15:04:05"),
			floatCell(row.Original),
			floatCell(row.MovingAverage),
			floatCell(row.Median),
			floatCell(row.Maximum),
			floatCell(row.Minimum),
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &values); err != nil {
			return "", fmt.Errorf("xlsx row %d: %w", i, err)
		}
	}

	path := e.Path(r.Symbol)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	return path, nil
}

// floatCell leaves missing values as empty cells.
func floatCell(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
