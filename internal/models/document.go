// Package models defines core data structures for documents, chunks, and tags.
package models

import "time"

// Sensitivity is the access-control label assigned to a document.
type Sensitivity string

const (
	SensitivityPublic       Sensitivity = "Public"
	SensitivityInternal     Sensitivity = "Internal"
	SensitivityConfidential Sensitivity = "Confidential"
)

// Valid reports whether s is one of the known sensitivity labels.
func (s Sensitivity) Valid() bool {
	switch s {
	case SensitivityPublic, SensitivityInternal, SensitivityConfidential:
		return true
	}
	return false
}

// DocTypes is the closed vocabulary for document type labels.
var DocTypes = []string{"Policy", "SOP", "Contract", "Invoice", "Spec", "Email", "Report", "Minutes", "Playbook", "Other"}

// Domains is the closed vocabulary for business domain labels.
var Domains = []string{"Finance", "Healthcare", "HR", "Legal", "IT", "Sales", "Support", "Ops", "Other"}

// Sensitivities is the closed vocabulary for sensitivity labels.
var Sensitivities = []string{string(SensitivityPublic), string(SensitivityInternal), string(SensitivityConfidential)}

// InVocabulary reports whether value is in the given closed vocabulary.
func InVocabulary(value string, vocabulary []string) bool {
	for _, v := range vocabulary {
		if v == value {
			return true
		}
	}
	return false
}

// Document represents a stored document with classification metadata.
// ContentHash is the deduplication key: it is unique across all documents and
// re-ingesting identical content returns the existing document.
type Document struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	SourcePath    string      `json:"source_path"`
	DocType       string      `json:"doc_type"`
	Lang          string      `json:"lang"`
	Sensitivity   Sensitivity `json:"sensitivity"`
	Tags          []string    `json:"tags"`
	Topics        []string    `json:"topics"`
	Confidence    float64     `json:"confidence"`
	OCRConfidence *float64    `json:"ocr_confidence,omitempty"`
	ContentHash   string      `json:"content_hash"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Chunk is a retrieval unit belonging to exactly one document. Index is
// 0-based and contiguous within a document; Text is never empty.
type Chunk struct {
	ID        string    `json:"id"`
	DocID     string    `json:"doc_id"`
	Index     int       `json:"chunk_idx"`
	Heading   string    `json:"heading,omitempty"`
	Page      int       `json:"page,omitempty"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// TagSet is the validated output of the tagging classifier.
type TagSet struct {
	DocType     string      `json:"doc_type"`
	Domain      string      `json:"domain"`
	Topics      []string    `json:"topics"`
	Sensitivity Sensitivity `json:"sensitivity"`
	Confidence  float64     `json:"confidence"`
}

// NamespacedTags returns the tag strings persisted on the document
// (e.g. "Domain/Finance", "DocType/Invoice").
func (t TagSet) NamespacedTags() []string {
	return []string{"Domain/" + t.Domain, "DocType/" + t.DocType}
}
