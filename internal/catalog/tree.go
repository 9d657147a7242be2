// Package catalog implements the Year → Branch → Subject → Resource tree
// operations and the service that persists them.
package catalog

import (
	"github.com/starford/studyshelf/internal/models"
)

// FindOrCreateYear returns the year named name, appending an empty one when
// none exists.
func FindOrCreateYear(m *models.Manifest, name string) *models.Year {
	for _, y := range m.Years {
		if y.Name == name {
			return y
		}
	}
	y := &models.Year{ID: models.NewID(), Name: name, Branches: []*models.Branch{}}
	m.Years = append(m.Years, y)
	return y
}

// FindOrCreateBranch returns the branch named name under y, appending an
// empty one when none exists.
func FindOrCreateBranch(y *models.Year, name string) *models.Branch {
	for _, b := range y.Branches {
		if b.Name == name {
			return b
		}
	}
	b := &models.Branch{ID: models.NewID(), Name: name, Subjects: []*models.Subject{}}
	y.Branches = append(y.Branches, b)
	return b
}

// FindOrCreateSubject returns the subject named name under b, appending an
// empty one when none exists.
func FindOrCreateSubject(b *models.Branch, name string) *models.Subject {
	for _, s := range b.Subjects {
		if s.Name == name {
			return s
		}
	}
	s := &models.Subject{ID: models.NewID(), Name: name, Resources: []*models.Resource{}}
	b.Subjects = append(b.Subjects, s)
	return s
}

// AddResource files r under the (year, branch, subject) triple, creating
// whichever levels are missing, and returns the subject it landed in.
func AddResource(m *models.Manifest, year, branch, subject string, r *models.Resource) *models.Subject {
	s := FindOrCreateSubject(FindOrCreateBranch(FindOrCreateYear(m, year), branch), subject)
	if r.ID == "" {
		r.ID = models.NewID()
	}
	s.Resources = append(s.Resources, r)
	return s
}

// RenameNode sets the name of the node with the given id, or the title when
// it is a resource. Years, branches and subjects may not take a name already
// used by a sibling; resource titles may repeat.
func RenameNode(m *models.Manifest, id, newName string) (*Location, error) {
	loc, err := Locate(m, id)
	if err != nil {
		return nil, err
	}
	if loc.Kind != KindResource && loc.siblingHasName(newName) {
		return nil, conflictf("%s %q already exists here", loc.Kind, newName)
	}
	switch loc.Kind {
	case KindYear:
		loc.Year.Name = newName
	case KindBranch:
		loc.Branch.Name = newName
	case KindSubject:
		loc.Subject.Name = newName
	case KindResource:
		loc.Resource.Title = newName
	}
	return loc, nil
}

// DeleteNode removes the node with the given id from its parent sequence.
// Descendants go with it; the returned paths are the vault files owned by
// every file resource in the removed subtree.
func DeleteNode(m *models.Manifest, id string) (*Location, []string, error) {
	loc, err := Locate(m, id)
	if err != nil {
		return nil, nil, err
	}
	var files []string
	switch loc.Kind {
	case KindYear:
		files = filesOfYear(loc.Year)
		m.Years = removeAt(m.Years, loc.Index)
	case KindBranch:
		files = filesOfBranch(loc.Branch)
		loc.Year.Branches = removeAt(loc.Year.Branches, loc.Index)
	case KindSubject:
		files = filesOfSubject(loc.Subject)
		loc.Branch.Subjects = removeAt(loc.Branch.Subjects, loc.Index)
	case KindResource:
		files = filesOfResource(loc.Resource)
		loc.Subject.Resources = removeAt(loc.Subject.Resources, loc.Index)
	}
	return loc, files, nil
}

func removeAt[T any](s []T, i int) []T {
	out := make([]T, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}

func filesOfYear(y *models.Year) []string {
	var out []string
	for _, b := range y.Branches {
		out = append(out, filesOfBranch(b)...)
	}
	return out
}

func filesOfBranch(b *models.Branch) []string {
	var out []string
	for _, s := range b.Subjects {
		out = append(out, filesOfSubject(s)...)
	}
	return out
}

func filesOfSubject(s *models.Subject) []string {
	var out []string
	for _, r := range s.Resources {
		out = append(out, filesOfResource(r)...)
	}
	return out
}

func filesOfResource(r *models.Resource) []string {
	if r.Type == models.TypeFile && r.Path != "" {
		return []string{r.Path}
	}
	return nil
}
