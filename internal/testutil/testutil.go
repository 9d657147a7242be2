// Package testutil provides shared test helpers for setting up catalogs and
// index databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/studyshelf/internal/catalog"
	"github.com/starford/studyshelf/internal/index"
	"github.com/starford/studyshelf/internal/manifest"
	"github.com/starford/studyshelf/internal/vault"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "studyshelf-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Catalog is a catalog service over a temporary directory.
type Catalog struct {
	Dir      string // temporary root
	Manifest string // manifest.json path
	Static   string // file vault directory
	Store    *manifest.Store
	Vault    *vault.Vault
	Service  *catalog.Service
}

// TestCatalog creates a catalog service with its manifest and file vault in
// a temporary directory.
func TestCatalog(t *testing.T, opts ...catalog.Option) *Catalog {
	t.Helper()
	dir := t.TempDir()
	c := &Catalog{
		Dir:      dir,
		Manifest: filepath.Join(dir, "manifest.json"),
		Static:   filepath.Join(dir, "static"),
	}
	var err error
	if c.Store, err = manifest.Open(c.Manifest); err != nil {
		t.Fatal(err)
	}
	if c.Vault, err = vault.Open(c.Static); err != nil {
		t.Fatal(err)
	}
	c.Service = catalog.NewService(c.Store, c.Vault, opts...)
	return c
}
