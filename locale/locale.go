// Package locale holds the label tables used by the prompt and the report.
package locale

import (
	"fmt"
	"sort"
	"strings"
)

// Labels is one localized label table.
type Labels struct {
	Name          string
	Country       string
	Article       string
	Color         string
	Type          string
	UpperMaterial string
	Size          string
	Season        string
	Price         string
	Currency      string

	// Missing replaces optional fields whose block is absent from the page.
	Missing string

	EnterQuery string
	OutputFile string
}

var tables = map[string]Labels{
	"ru": {
		Name:          "Название",
		Country:       "Страна",
		Article:       "Артикул",
		Color:         "Цвет",
		Type:          "Тип обуви",
		UpperMaterial: "Материал верха",
		Size:          "Размер",
		Season:        "Сезон",
		Price:         "Цена",
		Currency:      "руб.",
		Missing:       "Отсутствует информация",
		EnterQuery:    "Введите поисковый запрос",
		OutputFile:    "Информация о товарах в следующем файле",
	},
	"en": {
		Name:          "Name",
		Country:       "Country",
		Article:       "Article",
		Color:         "Color",
		Type:          "Type of shoe",
		UpperMaterial: "Upper material",
		Size:          "Size",
		Season:        "Season",
		Price:         "Price",
		Currency:      "RUB",
		Missing:       "No information",
		EnterQuery:    "Enter search query",
		OutputFile:    "Product information is in the following file",
	},
}

// Lookup returns the label table for lang (case-insensitive).
func Lookup(lang string) (Labels, error) {
	labels, ok := tables[strings.ToLower(strings.TrimSpace(lang))]
	if !ok {
		return Labels{}, fmt.Errorf("unsupported locale %q (available: %s)", lang, strings.Join(Available(), ", "))
	}
	return labels, nil
}

// Available lists the supported locale codes.
func Available() []string {
	out := make([]string, 0, len(tables))
	for code := range tables {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
