package catalog

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kiranshivaraju/scenegen/internal/config"
)

// Store reads the catalog and persists the updated copy.
type Store interface {
	Read(ctx context.Context) (*Sheet, error)
	Write(ctx context.Context, s *Sheet) error
}

// NewStore picks the store by file extension. Input and output must share a format.
func NewStore(cfg config.CatalogConfig) (Store, error) {
	in, out := format(cfg.InputPath), format(cfg.OutputPath)
	if in != out {
		return nil, fmt.Errorf("%w: input %s and output %s differ", ErrUnsupportedFormat, filepath.Ext(cfg.InputPath), filepath.Ext(cfg.OutputPath))
	}
	switch in {
	case "xlsx":
		return &ExcelStore{InputPath: cfg.InputPath, OutputPath: cfg.OutputPath, SheetName: cfg.Sheet}, nil
	case "csv":
		return &CSVStore{InputPath: cfg.InputPath, OutputPath: cfg.OutputPath}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(cfg.InputPath))
	}
}

func format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return "xlsx"
	case ".csv":
		return "csv"
	default:
		return ""
	}
}

// numericColumns are written back as numbers so spreadsheet formulas keep working.
var numericColumns = map[string]bool{
	normalize(ColQOH):        true,
	normalize(ColRetail):     true,
	normalize(ColMAP):        true,
	normalize(ColCost):       true,
	normalize(ColLandedCost): true,
}

// ExcelStore reads one worksheet of an .xlsx workbook and writes the result
// to a new single-sheet workbook at OutputPath.
type ExcelStore struct {
	InputPath  string
	OutputPath string
	// SheetName selects the worksheet; empty means the first one.
	SheetName string
}

func (s *ExcelStore) Read(ctx context.Context) (*Sheet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(s.InputPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", s.InputPath, err)
	}
	defer f.Close()

	name := s.SheetName
	if name == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%s has no worksheets", s.InputPath)
		}
		name = sheets[0]
	}

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", name, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", name)
	}

	return NewSheet(name, rows[0], trimTrailingRows(rows[1:])), nil
}

func (s *ExcelStore) Write(ctx context.Context, sh *Sheet) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	name := sh.Name
	if name == "" {
		name = "Sheet1"
	}
	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	if err := setRow(f, name, 1, toCells(sh.Header, nil)); err != nil {
		return err
	}
	for i, row := range sh.Rows {
		if err := setRow(f, name, i+2, toCells(row, sh.Header)); err != nil {
			return err
		}
	}

	if err := ensureDir(s.OutputPath); err != nil {
		return err
	}
	if err := f.SaveAs(s.OutputPath); err != nil {
		return fmt.Errorf("saving %s: %w", s.OutputPath, err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, rowNum int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("writing row %d: %w", rowNum, err)
	}
	return nil
}

// toCells converts a row for excelize. With a header, numeric columns holding
// a parseable number are written as float64.
func toCells(row, header []string) []interface{} {
	out := make([]interface{}, len(row))
	for i, v := range row {
		out[i] = v
		if header == nil || i >= len(header) || !numericColumns[normalize(header[i])] {
			continue
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			out[i] = f
		}
	}
	return out
}

// CSVStore reads and writes comma-separated catalogs with a header row.
type CSVStore struct {
	InputPath  string
	OutputPath string
}

func (s *CSVStore) Read(ctx context.Context) (*Sheet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.InputPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", s.InputPath, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.InputPath, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s is empty", s.InputPath)
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	name := strings.TrimSuffix(filepath.Base(s.InputPath), filepath.Ext(s.InputPath))
	return NewSheet(name, header, trimTrailingRows(records[1:])), nil
}

func (s *CSVStore) Write(ctx context.Context, sh *Sheet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ensureDir(s.OutputPath); err != nil {
		return err
	}

	f, err := os.Create(s.OutputPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", s.OutputPath, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(sh.Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := w.WriteAll(sh.Rows); err != nil {
		return fmt.Errorf("writing rows: %w", err)
	}
	return f.Close()
}

// trimTrailingRows drops blank rows at the end of the sheet.
func trimTrailingRows(rows [][]string) [][]string {
	n := len(rows)
	for n > 0 && isEmptyRow(rows[n-1]) {
		n--
	}
	return rows[:n]
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}

var (
	_ Store = (*ExcelStore)(nil)
	_ Store = (*CSVStore)(nil)
)
