package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// docxDocumentXMLPath is the path to the main document body inside a .docx zip.
const docxDocumentXMLPath = "word/document.xml"

// paragraphTag matches a whole <w:p> element (paragraphs may carry attributes,
// so the open tag is matched loosely).
var paragraphTag = regexp.MustCompile(`(?s)<w:p[ >].*?</w:p>`)

// wtTag matches <w:t>text</w:t> or <w:t xml:space="preserve">text</w:t>.
var wtTag = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

// headingStyle matches a paragraph style reference to a heading or title style.
var headingStyle = regexp.MustCompile(`<w:pStyle[^>]*w:val="(?:[Hh]eading[0-9]*|Title)"`)

// extractDOCX extracts paragraph text from .docx bytes. DOCX is a ZIP
// containing word/document.xml (OOXML); we walk <w:p> paragraphs and collect
// their <w:t> text nodes. Paragraphs styled as headings are marked with a
// "## " prefix and recorded as structure entries.
func extractDOCX(content []byte) (*Extracted, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("extract DOCX: not a zip: %w", err)
	}
	var docXML []byte
	for _, f := range zr.File {
		if f.Name != docxDocumentXMLPath {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("extract DOCX: open %s: %w", f.Name, err)
		}
		docXML, err = io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("extract DOCX: read %s: %w", f.Name, err)
		}
		break
	}
	if docXML == nil {
		return nil, fmt.Errorf("extract DOCX: %s not found", docxDocumentXMLPath)
	}

	var lines []string
	var structure []Section
	for _, para := range paragraphTag.FindAllString(string(docXML), -1) {
		runs := wtTag.FindAllStringSubmatch(para, -1)
		if len(runs) == 0 {
			continue
		}
		var b strings.Builder
		for _, r := range runs {
			b.WriteString(r[1])
		}
		text := strings.TrimSpace(b.String())
		if text == "" {
			continue
		}
		if headingStyle.MatchString(para) {
			heading := text
			if len(heading) > 120 {
				heading = heading[:120]
			}
			structure = append(structure, Section{Heading: heading})
			lines = append(lines, "## "+text)
		} else {
			lines = append(lines, text)
		}
	}
	return &Extracted{Text: strings.Join(lines, "\n"), Structure: structure}, nil
}
