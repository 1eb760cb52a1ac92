package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ProductRecord is one catalog row. It is built once when the catalog is read
// and treated as read-only afterwards; the orchestrator writes results back to
// the sheet cells, never into the record.
type ProductRecord struct {
	Model                 string              `json:"model"`
	QOH                   *int                `json:"qoh,omitempty"`
	WL                    string              `json:"wl,omitempty"`
	Retail                decimal.NullDecimal `json:"retail"`
	MAP                   decimal.NullDecimal `json:"map"`
	Cost                  decimal.NullDecimal `json:"cost"`
	LandedCost            decimal.NullDecimal `json:"landed_cost"`
	SiloImage             string              `json:"silo_image,omitempty"`
	WebsiteLinkForContext string              `json:"website_link_for_context,omitempty"`
	LifestyleImage        string              `json:"lifestyle_image,omitempty"`
	Comment               string              `json:"comment,omitempty"`
	EditedImage           string              `json:"edited_image,omitempty"`
}

// Identifier returns the key used for file names and logging: the WL id when
// present, otherwise the model identifier.
func (p ProductRecord) Identifier() string {
	if id := strings.TrimSpace(p.WL); id != "" {
		return id
	}
	return strings.TrimSpace(p.Model)
}

// HasLifestyleImage reports whether a lifestyle image was already generated.
func (p ProductRecord) HasLifestyleImage() bool {
	return strings.TrimSpace(p.LifestyleImage) != ""
}

// HasEditedImage reports whether a refined image was already produced.
func (p ProductRecord) HasEditedImage() bool {
	return strings.TrimSpace(p.EditedImage) != ""
}

// RetailString renders the retail price for prompts, or "N/A" when absent.
func (p ProductRecord) RetailString() string {
	if !p.Retail.Valid || p.Retail.Decimal.IsZero() {
		return "N/A"
	}
	return p.Retail.Decimal.String()
}
