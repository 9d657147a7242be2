// Package models defines the catalog document types for studyshelf.
package models

import (
	"bytes"
	"encoding/json"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// Resource types as persisted in the manifest.
const (
	TypeLink = "link"
	TypeFile = "file"
)

// Manifest is the root of the persisted catalog document.
type Manifest struct {
	Years []*Year `json:"years"`
}

// Year groups branches.
type Year struct {
	ID       string    `json:"id,omitempty"`
	Name     string    `json:"name"`
	Branches []*Branch `json:"branches"`
}

// Branch groups subjects within a year.
type Branch struct {
	ID       string     `json:"id,omitempty"`
	Name     string     `json:"name"`
	Subjects []*Subject `json:"subjects"`
}

// Subject holds the resources for one subject.
type Subject struct {
	ID        string      `json:"id,omitempty"`
	Name      string      `json:"name"`
	Resources []*Resource `json:"resources"`
}

// Resource is a single link or uploaded file.
type Resource struct {
	ID    string         `json:"id,omitempty"`
	Title string         `json:"title"`
	Type  string         `json:"type"`
	URL   string         `json:"url,omitempty"`
	Path  string         `json:"path,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
}

// linkJSON is Resource with url always present, so link entries saved
// with an empty url keep it.
type linkJSON struct {
	ID    string         `json:"id,omitempty"`
	Title string         `json:"title"`
	Type  string         `json:"type"`
	URL   string         `json:"url"`
	Path  string         `json:"path,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
}

// MarshalJSON writes url for every link resource, even when empty.
func (r Resource) MarshalJSON() ([]byte, error) {
	type plain Resource
	var v any = plain(r)
	if r.Type == TypeLink {
		v = linkJSON(r)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Well-known meta keys.
const (
	MetaAdded        = "added"
	MetaOriginalName = "original_name"
	MetaSize         = "size"
	MetaSHA256       = "sha256"
)

// NewManifest returns an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{Years: []*Year{}}
}

// Validate checks the structural rules a loaded document must satisfy.
// Link URLs may be empty: older documents contain such entries.
func (r *Resource) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Type, validation.Required, validation.In(TypeLink, TypeFile)),
		validation.Field(&r.Path, validation.When(r.Type == TypeFile, validation.Required)),
	)
}

// Normalize replaces nil child sequences with empty ones so the document
// always serialises with explicit arrays.
func (m *Manifest) Normalize() {
	if m.Years == nil {
		m.Years = []*Year{}
	}
	for _, y := range m.Years {
		if y.Branches == nil {
			y.Branches = []*Branch{}
		}
		for _, b := range y.Branches {
			if b.Subjects == nil {
				b.Subjects = []*Subject{}
			}
			for _, s := range b.Subjects {
				if s.Resources == nil {
					s.Resources = []*Resource{}
				}
			}
		}
	}
}

// NewID returns a fresh node identifier.
func NewID() string { return uuid.NewString() }

// EnsureIDs assigns identifiers to nodes that lack one and reports whether
// any were added.
func (m *Manifest) EnsureIDs() bool {
	changed := false
	assign := func(id *string) {
		if *id == "" {
			*id = NewID()
			changed = true
		}
	}
	for _, y := range m.Years {
		assign(&y.ID)
		for _, b := range y.Branches {
			assign(&b.ID)
			for _, s := range b.Subjects {
				assign(&s.ID)
				for _, r := range s.Resources {
					assign(&r.ID)
				}
			}
		}
	}
	return changed
}
