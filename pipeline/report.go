package pipeline

import (
	"fmt"

	"github.com/aluiziolira/go-scrape-catalog/models"
)

// WriteReport writes products in the given order, publishes the output and
// validates it. On a write failure the previous output is left untouched.
func WriteReport(w OutputWriter, products []*models.Product) error {
	if err := w.Write(products); err != nil {
		if cerr := w.Close(); cerr != nil {
			return fmt.Errorf("write report: %w (close: %v)", err, cerr)
		}
		return fmt.Errorf("write report: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	if err := w.Validate(); err != nil {
		return fmt.Errorf("validate report: %w", err)
	}
	return nil
}
