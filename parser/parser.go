package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-catalog/models"
)

// LastPage reads the last-page marker of a search result document.
// Result sets without a marker fit on a single page.
func (t Template) LastPage(doc *goquery.Document) (int, error) {
	marker := doc.Find(t.PageMarker).First()
	if marker.Length() == 0 {
		return 1, nil
	}
	text := strings.TrimSpace(marker.Text())
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedPageMarker, text)
	}
	return n, nil
}

// ProductLinks returns origin+href for every item container on a search
// result page, in page order. Containers without a linked anchor are
// skipped and counted.
func (t Template) ProductLinks(doc *goquery.Document, origin string) (links []string, skipped int) {
	doc.Find(t.ItemContainer).Each(func(_ int, item *goquery.Selection) {
		href, ok := item.Find(t.ItemLink).First().Attr("href")
		if !ok {
			skipped++
			return
		}
		links = append(links, origin+href)
	})
	return links, skipped
}

// ExtractProduct evaluates every field rule against the product container.
// The first failing rule aborts extraction, so a record is either complete
// or not produced at all.
func (t Template) ExtractProduct(doc *goquery.Document, sentinel string) (*models.Product, error) {
	container := doc.Find(t.Container).First()
	if container.Length() == 0 {
		return nil, ErrNotProductPage
	}

	values := make(map[string]string, len(t.Fields))
	for _, rule := range t.Fields {
		value, err := rule.Extract(container, sentinel)
		if err != nil {
			return nil, err
		}
		values[rule.Field] = value
	}

	name := values[FieldName]
	tokens := strings.Fields(name)
	if len(tokens) == 0 {
		return nil, &FieldError{Field: FieldType, Selector: "first word of " + FieldName, Err: ErrMissingField}
	}

	price, err := ParsePrice(values[FieldPrice])
	if err != nil {
		return nil, err
	}

	return &models.Product{
		Name:          name,
		Country:       values[FieldCountry],
		Article:       values[FieldArticle],
		Color:         values[FieldColor],
		Type:          tokens[0],
		UpperMaterial: values[FieldUpperMaterial],
		Size:          values[FieldSize],
		Season:        values[FieldSeason],
		Price:         price,
		ScrapedAt:     time.Now(),
	}, nil
}

// ParsePrice converts trimmed price text into an integer amount.
// Empty text means the price is not shown and maps to 0.
func ParsePrice(text string) (int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, nil
	}
	price, err := strconv.Atoi(text)
	if err != nil {
		return 0, &PriceError{Text: text, Err: err}
	}
	return price, nil
}

// ValidateProduct ensures the scraper captured the fields every report line needs.
func ValidateProduct(p *models.Product) error {
	if p == nil {
		return fmt.Errorf("product is nil")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("product missing name")
	}
	if p.Type == "" {
		return fmt.Errorf("product missing type for %s", p.Name)
	}
	if p.URL == "" {
		return fmt.Errorf("product missing url for %s", p.Name)
	}
	return nil
}
