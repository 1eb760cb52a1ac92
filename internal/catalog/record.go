package catalog

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kiranshivaraju/scenegen/pkg/models"
)

// ParseRecord builds the ProductRecord for one data row. Empty numeric cells
// are left unset; negative or malformed numbers are rejected.
func ParseRecord(s *Sheet, row int) (models.ProductRecord, error) {
	p := models.ProductRecord{
		Model:                 s.Get(row, ColModel),
		WL:                    s.Get(row, ColWL),
		SiloImage:             s.Get(row, ColSiloImage),
		WebsiteLinkForContext: s.Get(row, ColWebsiteLink),
		LifestyleImage:        s.Get(row, ColLifestyleImage),
		Comment:               s.Get(row, ColComment),
		EditedImage:           s.Get(row, ColEditedImage),
	}

	qoh, err := parseQuantity(s.Get(row, ColQOH))
	if err != nil {
		return models.ProductRecord{}, fmt.Errorf("%s: %w", ColQOH, err)
	}
	p.QOH = qoh

	for _, f := range []struct {
		col string
		dst *decimal.NullDecimal
	}{
		{ColRetail, &p.Retail},
		{ColMAP, &p.MAP},
		{ColCost, &p.Cost},
		{ColLandedCost, &p.LandedCost},
	} {
		d, err := parseMoney(s.Get(row, f.col))
		if err != nil {
			return models.ProductRecord{}, fmt.Errorf("%s: %w", f.col, err)
		}
		*f.dst = d
	}

	return p, nil
}

func parseQuantity(v string) (*int, error) {
	if isBlank(v) {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f != math.Trunc(f) {
		return nil, fmt.Errorf("%w: %q is not a whole number", ErrInvalidValue, v)
	}
	if f < 0 {
		return nil, fmt.Errorf("%w: %q is negative", ErrInvalidValue, v)
	}
	n := int(f)
	return &n, nil
}

func parseMoney(v string) (decimal.NullDecimal, error) {
	if isBlank(v) {
		return decimal.NullDecimal{}, nil
	}
	clean := strings.NewReplacer("$", "", ",", "").Replace(v)
	d, err := decimal.NewFromString(strings.TrimSpace(clean))
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, v)
	}
	if d.IsNegative() {
		return decimal.NullDecimal{}, fmt.Errorf("%w: %q is negative", ErrInvalidValue, v)
	}
	return decimal.NewNullDecimal(d), nil
}

// isBlank treats spreadsheet NaN placeholders as empty.
func isBlank(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "nan", "n/a":
		return true
	}
	return false
}
