package catalog

import (
	"fmt"

	"github.com/starford/studyshelf/internal/apperr"
	"github.com/starford/studyshelf/internal/models"
)

// Kind names a tree level.
type Kind string

const (
	KindYear     Kind = "year"
	KindBranch   Kind = "branch"
	KindSubject  Kind = "subject"
	KindResource Kind = "resource"
)

// Location pins a node inside a manifest: its kind, its position in the
// parent sequence and the chain of ancestors down to it.
type Location struct {
	Kind     Kind
	ID       string
	Index    int
	Year     *models.Year
	Branch   *models.Branch
	Subject  *models.Subject
	Resource *models.Resource

	manifest *models.Manifest
}

// Name returns the node's display name (the title for a resource).
func (l *Location) Name() string {
	switch l.Kind {
	case KindYear:
		return l.Year.Name
	case KindBranch:
		return l.Branch.Name
	case KindSubject:
		return l.Subject.Name
	default:
		return l.Resource.Title
	}
}

func (l *Location) siblingHasName(name string) bool {
	switch l.Kind {
	case KindYear:
		for i, y := range l.manifest.Years {
			if i != l.Index && y.Name == name {
				return true
			}
		}
	case KindBranch:
		for i, b := range l.Year.Branches {
			if i != l.Index && b.Name == name {
				return true
			}
		}
	case KindSubject:
		for i, s := range l.Branch.Subjects {
			if i != l.Index && s.Name == name {
				return true
			}
		}
	}
	return false
}

// NodeIndex maps node ids to their locations in one manifest snapshot.
// It goes stale as soon as the manifest is mutated.
type NodeIndex map[string]*Location

// NewNodeIndex walks m and indexes every node by id.
func NewNodeIndex(m *models.Manifest) NodeIndex {
	idx := make(NodeIndex)
	for yi, y := range m.Years {
		idx[y.ID] = &Location{Kind: KindYear, ID: y.ID, Index: yi, Year: y, manifest: m}
		for bi, b := range y.Branches {
			idx[b.ID] = &Location{Kind: KindBranch, ID: b.ID, Index: bi, Year: y, Branch: b, manifest: m}
			for si, s := range b.Subjects {
				idx[s.ID] = &Location{Kind: KindSubject, ID: s.ID, Index: si, Year: y, Branch: b, Subject: s, manifest: m}
				for ri, r := range s.Resources {
					idx[r.ID] = &Location{Kind: KindResource, ID: r.ID, Index: ri, Year: y, Branch: b, Subject: s, Resource: r, manifest: m}
				}
			}
		}
	}
	delete(idx, "")
	return idx
}

// Lookup returns the location for id or a NotFoundError.
func (idx NodeIndex) Lookup(id string) (*Location, error) {
	loc, ok := idx[id]
	if !ok {
		return nil, apperr.NewNotFoundError("node", id)
	}
	return loc, nil
}

// Locate finds the node with the given id in m.
func Locate(m *models.Manifest, id string) (*Location, error) {
	return NewNodeIndex(m).Lookup(id)
}

func conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperr.ErrConflict, fmt.Sprintf(format, args...))
}
