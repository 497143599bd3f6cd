package store

import (
	"fmt"
	"strings"

	"github.com/seekdocs/tansaku/internal/models"
)

// buildFilterClause renders search filters as a parameterized SQL predicate
// over the documents table (aliased d). Placeholders start at $start so the
// clause composes with surrounding query parameters. Active filters combine
// with AND; no filters yields "TRUE".
func buildFilterClause(filters *models.SearchFilters, start int) (string, []any) {
	if filters.Empty() {
		return "TRUE", nil
	}

	var clauses []string
	var args []any
	next := start

	if filters.Sensitivity != "" {
		clauses = append(clauses, fmt.Sprintf("d.sensitivity = $%d", next))
		args = append(args, filters.Sensitivity)
		next++
	}
	if len(filters.Tags) > 0 {
		// Matches documents carrying at least one of the requested tags.
		clauses = append(clauses, fmt.Sprintf("d.tags ?| $%d", next))
		args = append(args, filters.Tags)
		next++
	}
	if len(filters.DocType) > 0 {
		clauses = append(clauses, fmt.Sprintf("d.doc_type = ANY($%d)", next))
		args = append(args, filters.DocType)
		next++
	}

	return strings.Join(clauses, " AND "), args
}
