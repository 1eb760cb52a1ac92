// Package catalog reads and writes the product spreadsheet.
package catalog

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingColumn     = errors.New("required column missing")
	ErrInvalidValue      = errors.New("invalid cell value")
	ErrUnsupportedFormat = errors.New("unsupported catalog format")
)

// Column names as they appear in the catalog header row.
const (
	ColModel          = "Model"
	ColQOH            = "QOH"
	ColWL             = "WL"
	ColRetail         = "Retail"
	ColMAP            = "MAP"
	ColCost           = "Cost"
	ColLandedCost     = "Landed Cost"
	ColSiloImage      = "Silo Image"
	ColWebsiteLink    = "WebSite Link for Context"
	ColLifestyleImage = "Lifestyle Image"
	ColComment        = "Comment"
	ColEditedImage    = "Edited Image"
)

// Sheet is an in-memory table: a header row plus data rows addressed by
// column name. Column lookup ignores case and surrounding whitespace.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]string

	index map[string]int
}

// NewSheet builds a sheet. Rows shorter than the header are padded.
func NewSheet(name string, header []string, rows [][]string) *Sheet {
	s := &Sheet{Name: name, Header: header, Rows: rows}
	s.reindex()
	for i := range s.Rows {
		s.pad(i)
	}
	return s
}

func (s *Sheet) reindex() {
	s.index = make(map[string]int, len(s.Header))
	for i, h := range s.Header {
		key := normalize(h)
		if _, dup := s.index[key]; !dup {
			s.index[key] = i
		}
	}
}

func (s *Sheet) pad(row int) {
	for len(s.Rows[row]) < len(s.Header) {
		s.Rows[row] = append(s.Rows[row], "")
	}
}

func normalize(col string) string {
	return strings.ToLower(strings.TrimSpace(col))
}

// Len returns the number of data rows.
func (s *Sheet) Len() int { return len(s.Rows) }

func (s *Sheet) HasColumn(col string) bool {
	_, ok := s.index[normalize(col)]
	return ok
}

// Get returns the trimmed cell value, or "" when the column is absent.
func (s *Sheet) Get(row int, col string) string {
	i, ok := s.index[normalize(col)]
	if !ok || row < 0 || row >= len(s.Rows) || i >= len(s.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(s.Rows[row][i])
}

// Set writes a cell, appending the column to the header if it is missing.
func (s *Sheet) Set(row int, col, value string) {
	i, ok := s.index[normalize(col)]
	if !ok {
		s.Header = append(s.Header, col)
		i = len(s.Header) - 1
		s.index[normalize(col)] = i
	}
	s.pad(row)
	s.Rows[row][i] = value
}

// RequireColumns returns ErrMissingColumn naming the first absent column.
func (s *Sheet) RequireColumns(cols ...string) error {
	for _, c := range cols {
		if !s.HasColumn(c) {
			return fmt.Errorf("%w: %q", ErrMissingColumn, c)
		}
	}
	return nil
}

// Validate checks the columns the batch needs: Silo Image, Lifestyle Image
// and at least one of WL or Model.
func Validate(s *Sheet) error {
	if err := s.RequireColumns(ColSiloImage, ColLifestyleImage); err != nil {
		return err
	}
	if !s.HasColumn(ColWL) && !s.HasColumn(ColModel) {
		return fmt.Errorf("%w: %q or %q", ErrMissingColumn, ColWL, ColModel)
	}
	return nil
}
