// Package pipeline provides dual output writer for the text report and JSON.
package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aluiziolira/go-scrape-catalog/locale"
	"github.com/aluiziolira/go-scrape-catalog/models"
)

// DualWriter outputs the text report and JSONL simultaneously
type DualWriter struct {
	textWriter *TextWriter
	jsonWriter *JSONWriter
	mu         sync.Mutex
}

// NewDualWriter creates a new dual writer for the report and JSON output
func NewDualWriter(textFilename, jsonFilename string, labels locale.Labels) (*DualWriter, error) {
	textWriter, err := NewTextWriter(textFilename, labels)
	if err != nil {
		return nil, fmt.Errorf("failed to create report writer: %w", err)
	}

	jsonWriter, err := NewJSONWriter(jsonFilename)
	if err != nil {
		textWriter.file.abort()
		return nil, fmt.Errorf("failed to create JSON writer: %w", err)
	}

	return &DualWriter{
		textWriter: textWriter,
		jsonWriter: jsonWriter,
	}, nil
}

// Write writes products to both outputs. A failure in either one
// discards both on Close.
func (dw *DualWriter) Write(products []*models.Product) error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if err := dw.textWriter.Write(products); err != nil {
		dw.jsonWriter.markFailed()
		return fmt.Errorf("report write failed: %w", err)
	}
	if err := dw.jsonWriter.Write(products); err != nil {
		dw.textWriter.markFailed()
		return fmt.Errorf("JSON write failed: %w", err)
	}
	return nil
}

// Close closes both writers
func (dw *DualWriter) Close() error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	var errs []error
	if err := dw.textWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("report close failed: %w", err))
	}
	if err := dw.jsonWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("JSON close failed: %w", err))
	}
	return errors.Join(errs...)
}

// Validate validates both output files
func (dw *DualWriter) Validate() error {
	var errs []error
	if err := dw.textWriter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("report validation failed: %w", err))
	}
	if err := dw.jsonWriter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("JSON validation failed: %w", err))
	}
	return errors.Join(errs...)
}
