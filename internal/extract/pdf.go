package extract

import (
	"bytes"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// headingLine matches a short line starting with an uppercase letter or digit,
// used as a crude per-page heading heuristic.
var headingLine = regexp.MustCompile(`^\s*[A-Z0-9].{0,80}$`)

// extractPDF extracts per-page text. Pages yielding less text than
// MinPageChars are considered scanned; when any are present and an OCR
// command is configured, the whole file is run through OCR and the result
// replaces the extracted text. OCRConfidence reflects how that went.
func (e *Extractor) extractPDF(path string, content []byte) (*Extracted, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	numPages := r.NumPage()
	pages := make([]string, 0, numPages)
	var structure []Section
	lowPages := 0
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			lowPages++
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			text = ""
		}
		if len(strings.TrimSpace(text)) < e.MinPageChars {
			lowPages++
		}
		if h := pageHeading(text); h != "" {
			structure = append(structure, Section{Heading: h, Page: i})
		}
		pages = append(pages, text)
	}
	res := &Extracted{
		Text:      strings.Join(pages, "\n\n"),
		Structure: structure,
		Pages:     pages,
	}
	if lowPages > 0 {
		conf := e.runOCR(path, res)
		res.OCRConfidence = &conf
	}
	return res, nil
}

// runOCR invokes the configured OCR command and, when it yields more text
// than native extraction did, replaces res.Text. Returns a confidence value:
// 0.7 when OCR produced usable text, 0.0 otherwise.
func (e *Extractor) runOCR(path string, res *Extracted) float64 {
	if e.OCRCommand == "" {
		return 0.0
	}
	out, err := exec.Command(e.OCRCommand, path).Output()
	if err != nil {
		return 0.0
	}
	text := strings.TrimSpace(string(out))
	if len(text) <= 30 {
		return 0.0
	}
	if len(text) > len(strings.TrimSpace(res.Text)) {
		res.Text = text
	}
	return 0.7
}

// pageHeading returns the first heading-looking line among the first five
// lines of a page, or "".
func pageHeading(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) > 5 {
		lines = lines[:5]
	}
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && headingLine.MatchString(trimmed) {
			if len(trimmed) > 120 {
				trimmed = trimmed[:120]
			}
			return trimmed
		}
	}
	return ""
}
