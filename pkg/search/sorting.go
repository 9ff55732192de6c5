package search

import (
	"strings"

	"github.com/platinummonkey/backer/pkg/apierrors"
)

// Sort is one ORDER BY key
type Sort struct {
	Key  string
	Desc bool
}

// String renders the sort the way clients send it
func (s Sort) String() string {
	if s.Desc {
		return "-" + s.Key
	}
	return s.Key
}

// ParseSorting parses sort values such as "-started_at". Empty input yields
// defaults. Keys not present in allowed are rejected.
func ParseSorting(values []string, allowed map[string]bool, defaults []Sort) ([]Sort, error) {
	var sorts []Sort
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			s := Sort{Key: part}
			if strings.HasPrefix(part, "-") {
				s = Sort{Key: part[1:], Desc: true}
			}
			if !allowed[s.Key] {
				return nil, apierrors.BadRequest("Invalid sorting key: %s", s.Key)
			}
			sorts = append(sorts, s)
		}
	}
	if len(sorts) == 0 {
		return defaults, nil
	}
	return sorts, nil
}

// OrderBy renders an ORDER BY clause. columns maps each sort key to one or
// more SQL expressions. idColumn is appended ascending as the final tie
// breaker.
func OrderBy(sorts []Sort, columns map[string][]string, idColumn string) string {
	parts := make([]string, 0, len(sorts)+1)
	for _, s := range sorts {
		direction := "ASC"
		if s.Desc {
			direction = "DESC"
		}
		for _, column := range columns[s.Key] {
			parts = append(parts, column+" "+direction)
		}
	}
	parts = append(parts, idColumn+" ASC")
	return "\n\t\tORDER BY " + strings.Join(parts, ", ")
}
