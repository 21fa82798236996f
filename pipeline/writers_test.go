package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-catalog/locale"
	"github.com/aluiziolira/go-scrape-catalog/models"
)

func sampleProduct() *models.Product {
	return &models.Product{
		Name:          "Ботинки мужские",
		Country:       "Россия",
		Article:       "A-1042",
		Color:         "черный",
		Type:          "Ботинки",
		UpperMaterial: "кожа",
		Size:          "40-45",
		Season:        "Отсутствует информация",
		Price:         4590,
		URL:           "http://shop.test/p/1",
		ScrapedAt:     time.Date(2025, 11, 4, 13, 9, 13, 0, time.UTC),
	}
}

func mustLabels(t *testing.T, lang string) locale.Labels {
	t.Helper()
	labels, err := locale.Lookup(lang)
	if err != nil {
		t.Fatalf("lookup labels: %v", err)
	}
	return labels
}

func TestTextWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sorted_products.txt")

	writer, err := NewTextWriter(path, mustLabels(t, "ru"))
	if err != nil {
		t.Fatalf("create text writer: %v", err)
	}
	cheap := sampleProduct()
	cheap.Price = 0
	if err := WriteReport(writer, []*models.Product{cheap, sampleProduct()}); err != nil {
		t.Fatalf("write report: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}

	want := strings.Join([]string{
		"Название: Ботинки мужские",
		"Страна: Россия",
		"Артикул: A-1042",
		"Цвет: черный",
		"Тип обуви: Ботинки",
		"Материал верха: кожа",
		"Размер: 40-45",
		"Сезон: Отсутствует информация",
		"Цена: 0 руб.",
		strings.Repeat("-", 40),
		"Название: Ботинки мужские",
		"Страна: Россия",
		"Артикул: A-1042",
		"Цвет: черный",
		"Тип обуви: Ботинки",
		"Материал верха: кожа",
		"Размер: 40-45",
		"Сезон: Отсутствует информация",
		"Цена: 4590 руб.",
		strings.Repeat("-", 40),
	}, "\n") + "\n"
	if string(data) != want {
		t.Fatalf("report mismatch:\n%s\nwant:\n%s", data, want)
	}
}

func TestTextWriterReplacesExistingReport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.txt")
	if err := os.WriteFile(path, []byte("stale report from a previous run\n"), 0o644); err != nil {
		t.Fatalf("seed report: %v", err)
	}

	for run := 0; run < 2; run++ {
		writer, err := NewTextWriter(path, mustLabels(t, "en"))
		if err != nil {
			t.Fatalf("create text writer: %v", err)
		}
		if err := WriteReport(writer, []*models.Product{sampleProduct()}); err != nil {
			t.Fatalf("write report: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if strings.Contains(string(data), "stale") {
		t.Fatalf("report was not replaced")
	}
	if got := strings.Count(string(data), strings.Repeat("-", 40)); got != 1 {
		t.Fatalf("blocks = %d, want 1 after identical reruns", got)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %v", entries)
	}
}

func TestTextWriterEmptyReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.txt")

	writer, err := NewTextWriter(path, mustLabels(t, "ru"))
	if err != nil {
		t.Fatalf("create text writer: %v", err)
	}
	if err := WriteReport(writer, nil); err != nil {
		t.Fatalf("write empty report: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat report: %v", err)
	}
	if info.Size() != 0 {
		t.Fatalf("empty result should produce an empty report, size=%d", info.Size())
	}
}

func TestCSVWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "products.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	if err := WriteReport(writer, []*models.Product{sampleProduct()}); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records=%d, want 2", len(records))
	}
	if records[0][0] != "name" || records[0][8] != "price" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	if records[1][8] != "4590" {
		t.Fatalf("price column = %q", records[1][8])
	}
}

func TestJSONWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "products.jsonl")

	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}
	if err := WriteReport(writer, []*models.Product{sampleProduct()}); err != nil {
		t.Fatalf("write json: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open json: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	count := 0
	for scanner.Scan() {
		var decoded models.Product
		if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid json line: %v", err)
		}
		if decoded.Price != 4590 || decoded.Name != "Ботинки мужские" {
			t.Fatalf("decoded = %+v", decoded)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan json: %v", err)
	}
	if count != 1 {
		t.Fatalf("json lines=%d, want 1", count)
	}
}

func TestDualWriterWrite(t *testing.T) {
	dir := t.TempDir()
	textPath := filepath.Join(dir, "products.txt")
	jsonPath := filepath.Join(dir, "products.jsonl")

	writer, err := NewDualWriter(textPath, jsonPath, mustLabels(t, "ru"))
	if err != nil {
		t.Fatalf("create dual writer: %v", err)
	}
	if err := WriteReport(writer, []*models.Product{sampleProduct()}); err != nil {
		t.Fatalf("write dual: %v", err)
	}

	if info, err := os.Stat(textPath); err != nil || info.Size() == 0 {
		t.Fatalf("report file missing or empty")
	}
	if info, err := os.Stat(jsonPath); err != nil || info.Size() == 0 {
		t.Fatalf("json file missing or empty")
	}
}

func TestDualWriterFailedJSONKeepsPreviousReport(t *testing.T) {
	dir := t.TempDir()
	textPath := filepath.Join(dir, "products.txt")
	jsonPath := filepath.Join(dir, "products.jsonl")
	if err := os.WriteFile(textPath, []byte("previous report\n"), 0o644); err != nil {
		t.Fatalf("seed report: %v", err)
	}

	writer, err := NewDualWriter(textPath, jsonPath, mustLabels(t, "ru"))
	if err != nil {
		t.Fatalf("create dual writer: %v", err)
	}
	// A closed staging file makes the JSON side fail once its buffer spills.
	writer.jsonWriter.file.File.Close()

	big := sampleProduct()
	big.Name = strings.Repeat("Ботинки ", 2000)
	if err := WriteReport(writer, []*models.Product{big}); err == nil {
		t.Fatalf("expected dual write to fail")
	}

	data, err := os.ReadFile(textPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if string(data) != "previous report\n" {
		t.Fatalf("text report was published after the JSON side failed: %q", data)
	}
	if _, err := os.Stat(jsonPath); !os.IsNotExist(err) {
		t.Fatalf("json output should not exist, stat err = %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %v", entries)
	}
}
