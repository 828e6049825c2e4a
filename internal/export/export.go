// Package export writes grids and receipts as Excel workbooks.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gusesba/renova-web/internal/format"
	"github.com/gusesba/renova-web/internal/grid"
	"github.com/gusesba/renova-web/internal/store"
	"github.com/xuri/excelize/v2"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	defaultSheet = "Sheet1"
	maxSheetName = 31
	minColWidth  = 8
	maxColWidth  = 60
)

// FileName is the download name of an export of resource taken at t.
func FileName(resource string, t time.Time) string {
	name := strings.NewReplacer("/", "-", " ", "-").Replace(resource)
	return fmt.Sprintf("%s-%s.xlsx", name, t.In(format.Location).Format("2006-01-02"))
}

func sheetName(name string) string {
	name = strings.NewReplacer("/", " ", "\\", " ", "?", "", "*", "", "[", "", "]", "", ":", "").Replace(name)
	if name == "" {
		return defaultSheet
	}
	if utf8.RuneCountInString(name) > maxSheetName {
		name = string([]rune(name)[:maxSheetName])
	}
	return name
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

// WriteTable writes t as a single-sheet workbook: a bold, frozen header row
// with an auto filter, then one row per record.
func WriteTable(w io.Writer, t *grid.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(t.Name)
	if err := f.SetSheetName(defaultSheet, sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E7E6E6"}},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	widths := make([]int, len(t.Headers))
	row := make([]any, len(t.Headers))
	for i, h := range t.Headers {
		row[i] = h
		widths[i] = utf8.RuneCountInString(h)
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for r, rec := range t.Rows {
		vals := make([]any, len(rec))
		for i, v := range rec {
			vals[i] = v
			if i < len(widths) {
				widths[i] = max(widths[i], utf8.RuneCountInString(v))
			}
		}
		if err := f.SetSheetRow(sheet, cell(1, r+2), &vals); err != nil {
			return fmt.Errorf("writing row %d: %w", r+1, err)
		}
	}

	if n := len(t.Headers); n > 0 {
		last := cell(n, 1)
		if err := f.SetCellStyle(sheet, "A1", last, header); err != nil {
			return fmt.Errorf("styling header: %w", err)
		}
		if err := f.AutoFilter(sheet, "A1:"+cell(n, max(len(t.Rows)+1, 1)), nil); err != nil {
			return fmt.Errorf("adding filter: %w", err)
		}
		for i, wd := range widths {
			col, _ := excelize.ColumnNumberToName(i + 1)
			_ = f.SetColWidth(sheet, col, col, float64(min(max(wd+2, minColWidth), maxColWidth)))
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freezing header: %w", err)
	}

	return f.Write(w)
}

// Receipt is a finished checkout.
type Receipt struct {
	Sell       store.Sell
	ClientName string
	Items      []store.Product
	Total      float64
	Discount   float64
	Date       time.Time
}

// WriteReceipt writes the receipt of a sale: a short heading, one line per
// product and the totals at the bottom.
func WriteReceipt(w io.Writer, r *Receipt) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(r.Sell.Type.Label())
	if err := f.SetSheetName(defaultSheet, sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr(`"R$" #,##0.00`)})
	if err != nil {
		return fmt.Errorf("creating money style: %w", err)
	}

	f.SetCellValue(sheet, "A1", "Renova")
	f.SetCellValue(sheet, "A2", "Data")
	f.SetCellValue(sheet, "B2", r.Date.In(format.Location).Format("02/01/2006"))
	f.SetCellValue(sheet, "A3", "Número")
	f.SetCellValue(sheet, "B3", format.ShortID(r.Sell.ID))
	f.SetCellValue(sheet, "A4", "Cliente")
	f.SetCellValue(sheet, "B4", r.ClientName)
	f.SetCellValue(sheet, "A5", "Tipo")
	f.SetCellValue(sheet, "B5", r.Sell.Type.Label())

	const itemsStartRow = 7
	head := []any{"Id", "Produto", "Marca", "Tamanho", "Cor", "Preço"}
	if err := f.SetSheetRow(sheet, cell(1, itemsStartRow), &head); err != nil {
		return fmt.Errorf("writing item header: %w", err)
	}
	_ = f.SetCellStyle(sheet, cell(1, itemsStartRow), cell(len(head), itemsStartRow), bold)

	row := itemsStartRow + 1
	for _, p := range r.Items {
		vals := []any{format.ShortID(p.ID), p.Type, p.Brand, p.Size, p.Color, p.Price}
		if err := f.SetSheetRow(sheet, cell(1, row), &vals); err != nil {
			return fmt.Errorf("writing item %s: %w", p.ID, err)
		}
		row++
	}
	if len(r.Items) > 0 {
		_ = f.SetCellStyle(sheet, cell(6, itemsStartRow+1), cell(6, row-1), money)
	}

	row++
	for _, line := range []struct {
		label string
		value float64
	}{
		{"Total", r.Total},
		{"Desconto", r.Discount},
		{"Final", r.Total - r.Discount},
	} {
		f.SetCellValue(sheet, cell(5, row), line.label)
		f.SetCellValue(sheet, cell(6, row), line.value)
		_ = f.SetCellStyle(sheet, cell(5, row), cell(5, row), bold)
		_ = f.SetCellStyle(sheet, cell(6, row), cell(6, row), money)
		row++
	}
	_ = f.SetCellStyle(sheet, "A1", "A1", bold)
	_ = f.SetColWidth(sheet, "A", "A", 12)
	_ = f.SetColWidth(sheet, "B", "E", 16)

	return f.Write(w)
}

func strPtr(s string) *string { return &s }
