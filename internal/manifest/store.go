// Package manifest loads and saves the catalog document.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/starford/studyshelf/internal/apperr"
	"github.com/starford/studyshelf/internal/checksum"
	"github.com/starford/studyshelf/internal/models"
	"github.com/starford/studyshelf/internal/storage"
)

// Store persists one manifest document as a whole.
type Store struct {
	fs   storage.Provider
	name string
	path string
}

// Open prepares a store for the document at path, creating its directory.
// The document itself is created lazily on first load.
func Open(path string) (*Store, error) {
	fs, err := storage.EnsureFS(filepath.Dir(path))
	if err != nil {
		return nil, apperr.NewStorageError("open", path, err)
	}
	return &Store{fs: fs, name: filepath.Base(path), path: path}, nil
}

// Path returns the document path as configured.
func (s *Store) Path() string { return s.path }

// Raw returns the persisted bytes unchanged, writing the default document
// first when none exists.
func (s *Store) Raw() ([]byte, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}
	data, err := s.fs.Read(s.name)
	if err != nil {
		return nil, apperr.NewStorageError("load", s.path, err)
	}
	return data, nil
}

// Load reads and decodes the document.
func (s *Store) Load() (*models.Manifest, error) {
	m, _, err := s.LoadVersioned()
	return m, err
}

// LoadVersioned reads and decodes the document and also returns the
// checksum of the persisted bytes. Ids assigned to legacy nodes are written
// back immediately so they stay stable across loads.
func (s *Store) LoadVersioned() (*models.Manifest, string, error) {
	data, err := s.Raw()
	if err != nil {
		return nil, "", err
	}
	m, assigned, err := decode(data)
	if err != nil {
		return nil, "", apperr.NewStorageError("decode", s.path, err)
	}
	if assigned {
		sum, err := s.SaveVersioned(m)
		if err != nil {
			return nil, "", err
		}
		return m, sum, nil
	}
	return m, checksum.Sum(data), nil
}

// Save replaces the document with the serialised manifest.
func (s *Store) Save(m *models.Manifest) error {
	_, err := s.SaveVersioned(m)
	return err
}

// SaveVersioned saves m and returns the checksum of the written bytes.
func (s *Store) SaveVersioned(m *models.Manifest) (string, error) {
	data, err := Encode(m)
	if err != nil {
		return "", apperr.NewStorageError("save", s.path, err)
	}
	if err := s.fs.Write(s.name, data); err != nil {
		return "", apperr.NewStorageError("save", s.path, err)
	}
	return checksum.Sum(data), nil
}

func (s *Store) ensure() error {
	ok, err := s.fs.Exists(s.name)
	if err != nil {
		return apperr.NewStorageError("load", s.path, err)
	}
	if ok {
		return nil
	}
	data, err := Encode(models.NewManifest())
	if err != nil {
		return apperr.NewStorageError("save", s.path, err)
	}
	if err := s.fs.Write(s.name, data); err != nil {
		return apperr.NewStorageError("create", s.path, err)
	}
	return nil
}

// Encode serialises m with two-space indentation and without HTML escaping.
func Encode(m *models.Manifest) ([]byte, error) {
	m.Normalize()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("manifest: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses and validates a manifest document. Nodes without an id get one.
func Decode(data []byte) (*models.Manifest, error) {
	m, _, err := decode(data)
	return m, err
}

func decode(data []byte) (*models.Manifest, bool, error) {
	var probe struct {
		Years json.RawMessage `json:"years"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, false, fmt.Errorf("manifest: invalid JSON: %w", err)
	}
	if len(probe.Years) == 0 || string(probe.Years) == "null" {
		return nil, false, fmt.Errorf("manifest: missing years sequence")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m models.Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, false, fmt.Errorf("manifest: decode: %w", err)
	}
	if err := validate(&m); err != nil {
		return nil, false, err
	}
	m.Normalize()
	return &m, m.EnsureIDs(), nil
}

func validate(m *models.Manifest) error {
	for yi, y := range m.Years {
		if y == nil {
			return fmt.Errorf("manifest: years[%d] is null", yi)
		}
		for bi, b := range y.Branches {
			if b == nil {
				return fmt.Errorf("manifest: years[%d].branches[%d] is null", yi, bi)
			}
			for si, s := range b.Subjects {
				if s == nil {
					return fmt.Errorf("manifest: years[%d].branches[%d].subjects[%d] is null", yi, bi, si)
				}
				for ri, r := range s.Resources {
					if r == nil {
						return fmt.Errorf("manifest: years[%d].branches[%d].subjects[%d].resources[%d] is null", yi, bi, si, ri)
					}
					if err := r.Validate(); err != nil {
						return fmt.Errorf("manifest: years[%d].branches[%d].subjects[%d].resources[%d]: %w", yi, bi, si, ri, err)
					}
				}
			}
		}
	}
	return nil
}
