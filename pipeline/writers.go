package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-catalog/locale"
	"github.com/aluiziolira/go-scrape-catalog/models"
)

const separator = "----------------------------------------"

// atomicFile stages output in a temporary file next to the destination and
// renames it over the destination on commit, so readers never see a partial report.
type atomicFile struct {
	*os.File
	path string
	done bool
}

func createAtomic(filename string) (*atomicFile, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}
	f, err := os.CreateTemp(filepath.Dir(filename), "."+filepath.Base(filename)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file for %q: %w", filename, err)
	}
	return &atomicFile{File: f, path: filename}, nil
}

func (a *atomicFile) commit() error {
	if a.done {
		return nil
	}
	a.done = true
	if err := a.Sync(); err != nil {
		a.abort()
		return fmt.Errorf("sync %q: %w", a.Name(), err)
	}
	if err := a.Chmod(0o644); err != nil {
		a.abort()
		return fmt.Errorf("chmod %q: %w", a.Name(), err)
	}
	if err := a.File.Close(); err != nil {
		os.Remove(a.Name())
		return fmt.Errorf("close %q: %w", a.Name(), err)
	}
	if err := os.Rename(a.Name(), a.path); err != nil {
		os.Remove(a.Name())
		return fmt.Errorf("replace %q: %w", a.path, err)
	}
	return nil
}

func (a *atomicFile) abort() {
	a.done = true
	a.File.Close()
	os.Remove(a.Name())
}

// TextWriter renders the labeled plain-text report.
type TextWriter struct {
	file   *atomicFile
	writer *bufio.Writer
	labels locale.Labels
	failed bool
	mu     sync.Mutex
}

// NewTextWriter stages a report that replaces filename on Close.
func NewTextWriter(filename string, labels locale.Labels) (*TextWriter, error) {
	f, err := createAtomic(filename)
	if err != nil {
		return nil, err
	}
	return &TextWriter{
		file:   f,
		writer: bufio.NewWriter(f),
		labels: labels,
	}, nil
}

// Write appends one block per product.
func (tw *TextWriter) Write(products []*models.Product) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	for _, product := range products {
		if err := writeBlock(tw.writer, product, tw.labels); err != nil {
			tw.failed = true
			return fmt.Errorf("write report block: %w", err)
		}
	}
	return nil
}

// Close publishes the report, or discards it if a write failed.
func (tw *TextWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.failed {
		tw.file.abort()
		return fmt.Errorf("report %q not written: earlier write failed", tw.file.path)
	}
	if err := tw.writer.Flush(); err != nil {
		tw.file.abort()
		return fmt.Errorf("flush report: %w", err)
	}
	return tw.file.commit()
}

// markFailed makes Close discard the staged report.
func (tw *TextWriter) markFailed() {
	tw.mu.Lock()
	tw.failed = true
	tw.mu.Unlock()
}

// Validate ensures the report exists at its destination.
func (tw *TextWriter) Validate() error {
	return validateOutput(tw.file.path, false)
}

func writeBlock(w io.Writer, p *models.Product, labels locale.Labels) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", labels.Name, p.Name)
	fmt.Fprintf(&b, "%s: %s\n", labels.Country, p.Country)
	fmt.Fprintf(&b, "%s: %s\n", labels.Article, p.Article)
	fmt.Fprintf(&b, "%s: %s\n", labels.Color, p.Color)
	fmt.Fprintf(&b, "%s: %s\n", labels.Type, p.Type)
	fmt.Fprintf(&b, "%s: %s\n", labels.UpperMaterial, p.UpperMaterial)
	fmt.Fprintf(&b, "%s: %s\n", labels.Size, p.Size)
	fmt.Fprintf(&b, "%s: %s\n", labels.Season, p.Season)
	fmt.Fprintf(&b, "%s: %d %s\n", labels.Price, p.Price, labels.Currency)
	b.WriteString(separator + "\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// CSVWriter writes records to CSV.
type CSVWriter struct {
	file   *atomicFile
	writer *csv.Writer
	failed bool
	mu     sync.Mutex
}

// NewCSVWriter initialises a CSV writer and writes the header row.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	f, err := createAtomic(filename)
	if err != nil {
		return nil, err
	}

	writer := csv.NewWriter(f)
	header := []string{"name", "country", "article", "color", "type", "upper_material", "size", "season", "price", "url", "scraped_at"}
	if err := writer.Write(header); err != nil {
		f.abort()
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	return &CSVWriter{
		file:   f,
		writer: writer,
	}, nil
}

// Write appends products to the CSV output.
func (cw *CSVWriter) Write(products []*models.Product) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for _, p := range products {
		record := []string{
			p.Name,
			p.Country,
			p.Article,
			p.Color,
			p.Type,
			p.UpperMaterial,
			p.Size,
			p.Season,
			strconv.Itoa(p.Price),
			p.URL,
			p.ScrapedAt.Format(time.RFC3339),
		}
		if err := cw.writer.Write(record); err != nil {
			cw.failed = true
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	return nil
}

// Close flushes and publishes the file.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.failed {
		cw.file.abort()
		return fmt.Errorf("csv %q not written: earlier write failed", cw.file.path)
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		cw.file.abort()
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.commit()
}

// Validate ensures the file exists and holds at least the header.
func (cw *CSVWriter) Validate() error {
	return validateOutput(cw.file.path, true)
}

// JSONWriter writes newline-delimited JSON records.
type JSONWriter struct {
	file    *atomicFile
	writer  *bufio.Writer
	encoder *json.Encoder
	failed  bool
	mu      sync.Mutex
}

// NewJSONWriter initialises the JSON writer.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	f, err := createAtomic(filename)
	if err != nil {
		return nil, err
	}

	buffer := bufio.NewWriter(f)
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	return &JSONWriter{
		file:    f,
		writer:  buffer,
		encoder: encoder,
	}, nil
}

// Write appends products in JSONL format.
func (jw *JSONWriter) Write(products []*models.Product) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	for _, p := range products {
		if err := jw.encoder.Encode(p); err != nil {
			jw.failed = true
			return fmt.Errorf("encode json record: %w", err)
		}
	}
	return nil
}

// Close flushes buffers and publishes the file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.failed {
		jw.file.abort()
		return fmt.Errorf("json %q not written: earlier write failed", jw.file.path)
	}
	if err := jw.writer.Flush(); err != nil {
		jw.file.abort()
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.commit()
}

func (jw *JSONWriter) markFailed() {
	jw.mu.Lock()
	jw.failed = true
	jw.mu.Unlock()
}

// Validate ensures the JSON file exists.
func (jw *JSONWriter) Validate() error {
	return validateOutput(jw.file.path, false)
}

func validateOutput(path string, requireContent bool) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %q: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%q is not a regular file", path)
	}
	if requireContent && info.Size() <= 0 {
		return fmt.Errorf("%q is empty", path)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
