package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtract_PlainText(t *testing.T) {
	path := writeFile(t, "notes.txt", []byte("The quick brown fox and the lazy dog.\n"))
	res, err := NewExtractor().Extract(path)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if !strings.Contains(res.Text, "quick brown fox") {
		t.Errorf("text: got %q", res.Text)
	}
	if res.Lang != "en" {
		t.Errorf("lang: got %q", res.Lang)
	}
	if res.OCRConfidence != nil {
		t.Error("plain text should not set OCR confidence")
	}
}

func TestExtract_EmptyFile(t *testing.T) {
	path := writeFile(t, "empty.txt", nil)
	res, err := NewExtractor().Extract(path)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if res.Text != "" {
		t.Errorf("expected empty text, got %q", res.Text)
	}
}

func TestExtract_InvalidUTF8(t *testing.T) {
	path := writeFile(t, "junk.txt", []byte{'o', 'k', 0xff, 0xfe, '!'})
	res, err := NewExtractor().Extract(path)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if !strings.HasPrefix(res.Text, "ok") {
		t.Errorf("text: got %q", res.Text)
	}
}

func TestExtract_BinaryJunkRejected(t *testing.T) {
	content := bytes.Repeat([]byte{0x00, 0x92, 'P', 0xff, 0x03, 0xd8}, 512)
	path := writeFile(t, "blob.bin", content)
	_, err := NewExtractor().Extract(path)
	if !errors.Is(err, ErrExtractionFailed) {
		t.Errorf("expected ErrExtractionFailed for binary content, got %v", err)
	}
}

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtract_DOCX(t *testing.T) {
	xml := `<w:document><w:body>` +
		`<w:p w:rsidR="0"><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Refund Policy</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Refunds are processed</w:t></w:r><w:r><w:t xml:space="preserve"> within 30 days.</w:t></w:r></w:p>` +
		`</w:body></w:document>`
	path := writeFile(t, "policy.docx", buildDocx(t, xml))
	res, err := NewExtractor().Extract(path)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if !strings.Contains(res.Text, "## Refund Policy") {
		t.Errorf("heading marker missing: %q", res.Text)
	}
	if !strings.Contains(res.Text, "Refunds are processed within 30 days.") {
		t.Errorf("run join failed: %q", res.Text)
	}
	if len(res.Structure) != 1 || res.Structure[0].Heading != "Refund Policy" {
		t.Errorf("structure: got %+v", res.Structure)
	}
}

func TestExtract_DOCX_NotAZip(t *testing.T) {
	path := writeFile(t, "broken.docx", []byte("not a zip"))
	if _, err := NewExtractor().Extract(path); err == nil {
		t.Error("expected error for corrupt docx")
	}
}

func TestExtract_CSV(t *testing.T) {
	csv := "name,amount\nwidget,10\ngadget,20\n"
	path := writeFile(t, "inventory.csv", []byte(csv))
	res, err := NewExtractor().Extract(path)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if !strings.Contains(res.Text, "TABLE COLUMNS: name, amount") {
		t.Errorf("header missing: %q", res.Text)
	}
	if !strings.Contains(res.Text, "Row 1 — name: widget; amount: 10") {
		t.Errorf("row serialization: %q", res.Text)
	}
	if len(res.Structure) != 1 || res.Structure[0].Heading != "inventory.csv" {
		t.Errorf("structure: got %+v", res.Structure)
	}
}

func TestExtract_CSV_RowCap(t *testing.T) {
	var b strings.Builder
	b.WriteString("id\n")
	for i := 0; i < 50; i++ {
		b.WriteString("x\n")
	}
	path := writeFile(t, "big.csv", []byte(b.String()))
	e := NewExtractor()
	e.MaxTableRows = 10
	res, err := e.Extract(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(res.Text, "Row 11 ") {
		t.Error("row cap not applied")
	}
	if !strings.Contains(res.Text, "Row 10 ") {
		t.Error("expected 10 rows")
	}
}

func TestDetectLang(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"The contract is valid for the term stated in this agreement.", "en"},
		{"Der Vertrag ist gültig und die Bedingungen sind nicht verhandelbar.", "de"},
		{"", "en"},
	}
	for _, tt := range tests {
		if got := detectLang(tt.text); got != tt.want {
			t.Errorf("detectLang(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestPageHeading(t *testing.T) {
	if got := pageHeading("ANNUAL REPORT 2024\nbody text follows here"); got != "ANNUAL REPORT 2024" {
		t.Errorf("got %q", got)
	}
	if got := pageHeading("\n\n\n\n\n\nDeep heading"); got != "" {
		t.Errorf("heading beyond first five lines should be ignored, got %q", got)
	}
}
