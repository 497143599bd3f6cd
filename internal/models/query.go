package models

import "fmt"

// SearchFilters restricts search candidates. All active filters combine
// conjunctively and apply identically to the vector and keyword branches.
type SearchFilters struct {
	// Tags requires the document to carry at least one of these tags.
	Tags []string `json:"tags,omitempty"`
	// Sensitivity requires an exact sensitivity match.
	Sensitivity string `json:"sensitivity,omitempty"`
	// DocType requires the document type to be one of these values.
	DocType []string `json:"doc_type,omitempty"`
}

// Empty reports whether no filter is active.
func (f *SearchFilters) Empty() bool {
	return f == nil || (len(f.Tags) == 0 && f.Sensitivity == "" && len(f.DocType) == 0)
}

// SearchRequest is a search query with optional filters.
type SearchRequest struct {
	Query        string         `json:"query"`
	K            int            `json:"k,omitempty"`
	Filters      *SearchFilters `json:"filters,omitempty"`
	ReturnAnswer *bool          `json:"return_answer,omitempty"`
}

const (
	defaultK = 8
	maxK     = 50
)

// Validate ensures the request has valid fields and sets defaults.
// K defaults to 8 and is capped at 50; ReturnAnswer defaults to true.
func (r *SearchRequest) Validate() error {
	if r.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if r.K <= 0 {
		r.K = defaultK
	}
	if r.K > maxK {
		r.K = maxK
	}
	if r.Filters != nil && r.Filters.Sensitivity != "" && !Sensitivity(r.Filters.Sensitivity).Valid() {
		return fmt.Errorf("unknown sensitivity %q", r.Filters.Sensitivity)
	}
	if r.ReturnAnswer == nil {
		t := true
		r.ReturnAnswer = &t
	}
	return nil
}
