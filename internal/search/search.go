// Package search flattens the catalog tree and filters it by substring.
package search

import (
	"strings"

	"github.com/starford/studyshelf/internal/models"
)

// Flatten lists every resource in tree order (years, branches, subjects,
// resources, each in stored order) with its ancestry names attached.
func Flatten(m *models.Manifest) []models.Record {
	out := []models.Record{}
	if m == nil {
		return out
	}
	for _, y := range m.Years {
		for _, b := range y.Branches {
			for _, s := range b.Subjects {
				for _, r := range s.Resources {
					out = append(out, models.Record{
						ID:      r.ID,
						Year:    y.Name,
						Branch:  b.Name,
						Subject: s.Name,
						Title:   r.Title,
						Type:    r.Type,
						URL:     r.URL,
						Path:    r.Path,
					})
				}
			}
		}
	}
	return out
}

// Search returns the records whose title, subject, branch or year contains
// query, ignoring case. Callers decide what an empty query means.
func Search(m *models.Manifest, query string) []models.Record {
	return Filter(Flatten(m), query)
}

// Filter keeps the records matching query, preserving order.
func Filter(records []models.Record, query string) []models.Record {
	q := Fold(query)
	out := []models.Record{}
	for _, r := range records {
		if matchFolded(r, q) {
			out = append(out, r)
		}
	}
	return out
}

// Match reports whether rec matches query.
func Match(rec models.Record, query string) bool {
	return matchFolded(rec, Fold(query))
}

// Fold is the case mapping applied to both sides of a comparison.
func Fold(s string) string { return strings.ToLower(s) }

func matchFolded(r models.Record, q string) bool {
	return strings.Contains(Fold(r.Title), q) ||
		strings.Contains(Fold(r.Subject), q) ||
		strings.Contains(Fold(r.Branch), q) ||
		strings.Contains(Fold(r.Year), q)
}
