package locale

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	labels, err := Lookup(" RU ")
	require.NoError(t, err)
	require.Equal(t, "Отсутствует информация", labels.Missing)
	require.Equal(t, "руб.", labels.Currency)

	en, err := Lookup("en")
	require.NoError(t, err)
	require.NotEqual(t, labels.Name, en.Name)
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup("de")
	require.ErrorContains(t, err, "unsupported locale")
	require.ErrorContains(t, err, "en, ru")
}

func TestTablesComplete(t *testing.T) {
	for _, code := range Available() {
		labels, err := Lookup(code)
		require.NoError(t, err)
		for name, value := range map[string]string{
			"name":     labels.Name,
			"country":  labels.Country,
			"article":  labels.Article,
			"color":    labels.Color,
			"type":     labels.Type,
			"material": labels.UpperMaterial,
			"size":     labels.Size,
			"season":   labels.Season,
			"price":    labels.Price,
			"currency": labels.Currency,
			"missing":  labels.Missing,
			"prompt":   labels.EnterQuery,
			"output":   labels.OutputFile,
		} {
			require.NotEmptyf(t, value, "%s label missing for %s", name, code)
		}
	}
}
