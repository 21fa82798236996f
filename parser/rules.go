package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Product field names, used as rule keys and in FieldError.
const (
	FieldName          = "name"
	FieldCountry       = "country"
	FieldArticle       = "article"
	FieldColor         = "color"
	FieldType          = "type"
	FieldUpperMaterial = "upper_material"
	FieldSize          = "size"
	FieldSeason        = "season"
	FieldPrice         = "price"
)

// FieldRule describes how one field is read from the product container.
// Offset counts characters of label text preceding the value.
type FieldRule struct {
	Field    string
	Selector string
	Optional bool
	Offset   int
	Trim     bool
}

// Extract evaluates the rule against root. Optional fields fall back to
// sentinel; required fields fail with a *FieldError.
func (r FieldRule) Extract(root *goquery.Selection, sentinel string) (string, error) {
	sel := root.Find(r.Selector).First()
	if sel.Length() == 0 && !r.Optional {
		return "", &FieldError{Field: r.Field, Selector: r.Selector, Err: ErrMissingField}
	}
	value := TrailingText(sel, r.Offset, sentinel)
	if r.Trim {
		value = strings.TrimSpace(value)
	}
	return value, nil
}

// Template groups every selector the scraper depends on for one site layout.
type Template struct {
	PageMarker    string
	ItemContainer string
	ItemLink      string
	Container     string
	Fields        []FieldRule
}

// DefaultTemplate matches the obuv-tut2000.ru storefront.
func DefaultTemplate() Template {
	return Template{
		PageMarker:    "li.page-num.page_last",
		ItemContainer: "div.product-item__top",
		ItemLink:      "a",
		Container:     "div.card-page",
		Fields: []FieldRule{
			{Field: FieldName, Selector: "h1"},
			{Field: FieldCountry, Selector: "div.gr-vendor-block", Optional: true, Trim: true},
			{Field: FieldArticle, Selector: "div.shop2-product-article"},
			{Field: FieldColor, Selector: "div.option-item.cvet.odd", Offset: 4},
			{Field: FieldUpperMaterial, Selector: "div.option-item.material_verha_960.odd", Offset: 14},
			{Field: FieldSize, Selector: "div.option-item.razmery_v_korobke.even", Offset: 7},
			{Field: FieldSeason, Selector: "div.option-item.sezon.even", Optional: true, Offset: 5},
			{Field: FieldPrice, Selector: "strong", Trim: true},
		},
	}
}
