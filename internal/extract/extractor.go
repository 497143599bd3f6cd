// Package extract provides text extraction from various document formats.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrExtractionFailed marks a document whose content could not be extracted.
// Nothing is persisted for such documents.
var ErrExtractionFailed = errors.New("extraction failed")

// Section is a structural hint (a detected heading and the page it starts on).
type Section struct {
	Heading string
	Page    int
}

// Extracted is the result of extracting a document.
type Extracted struct {
	Text      string
	Structure []Section
	Pages     []string
	Lang      string
	// OCRConfidence is set only when the OCR fallback ran for a PDF.
	OCRConfidence *float64
}

// Extractor extracts plain text and structure from document files.
type Extractor struct {
	// MinPageChars is the per-page text length under which a PDF page is
	// considered scanned (triggers the OCR fallback).
	MinPageChars int
	// OCRCommand is an optional external OCR command (path as argv[1],
	// text on stdout). Empty disables OCR.
	OCRCommand string
	// MaxTableRows caps the number of serialized rows for tabular files.
	MaxTableRows int
}

// NewExtractor returns an Extractor with sane limits.
func NewExtractor() *Extractor {
	return &Extractor{MinPageChars: 30, MaxTableRows: 2000}
}

// Extract reads the file at path and returns its text, structure, and language.
// Supported formats: PDF (with OCR fallback for scanned pages), DOCX (heading
// styles become structure entries), .xlsx/.csv (row-serialized), and plain text.
// Unknown extensions are treated as plain text.
func (e *Extractor) Extract(path string) (*Extracted, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	var res *Extracted
	switch ext {
	case ".pdf":
		res, err = e.extractPDF(path, content)
	case ".docx":
		res, err = extractDOCX(content)
	case ".xlsx":
		res, err = e.extractExcel(path, content)
	case ".csv":
		res, err = e.extractCSV(path, content)
	default:
		res, err = extractPlain(content)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrExtractionFailed, filepath.Base(path), err)
	}
	res.Lang = detectLang(res.Text)
	return res, nil
}
