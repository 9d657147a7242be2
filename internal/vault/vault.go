// Package vault stores uploaded resource files in one flat directory.
package vault

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/studyshelf/internal/apperr"
	"github.com/starford/studyshelf/internal/checksum"
	"github.com/starford/studyshelf/internal/storage"
)

// maxCreateAttempts bounds retries when another writer takes a name between
// the existence check and the exclusive create.
const maxCreateAttempts = 16

// StoredFile describes a file written by Store.
type StoredFile struct {
	Name   string // file name inside the vault
	Path   string // recorded path, "<dir>/<name>"
	Size   int64
	SHA256 string
}

// Vault is a flat directory of uploaded files. Recorded paths are the vault
// directory as configured joined with the file name.
type Vault struct {
	fs     storage.Provider
	prefix string
}

// Open creates dir when needed and returns a vault rooted there.
func Open(dir string) (*Vault, error) {
	fs, err := storage.EnsureFS(dir)
	if err != nil {
		return nil, apperr.NewIOError("open", dir, err)
	}
	return &Vault{fs: fs, prefix: filepath.ToSlash(filepath.Clean(dir))}, nil
}

// Dir returns the absolute vault directory.
func (v *Vault) Dir() string { return v.fs.Root() }

// RecordedPath returns the path stored on a resource for the given file name.
func (v *Vault) RecordedPath(name string) string {
	return path.Join(v.prefix, name)
}

// SafeName reduces a client-supplied file name to a plain base name.
func SafeName(requested string) (string, error) {
	name := path.Base(strings.ReplaceAll(requested, `\`, "/"))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	name = strings.TrimLeft(strings.TrimSpace(name), ".")
	if name == "" || name == "/" {
		return "", apperr.NewValidationError("filename", fmt.Sprintf("unusable file name %q", requested))
	}
	return name, nil
}

// UniqueFilename returns a name for requested that is not taken in the
// vault, appending _1, _2, ... before the extension until one is free.
func (v *Vault) UniqueFilename(requested string) (string, error) {
	name, err := SafeName(requested)
	if err != nil {
		return "", err
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	candidate := name
	for i := 1; ; i++ {
		taken, err := v.fs.Exists(candidate)
		if err != nil {
			return "", apperr.NewIOError("stat", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%d%s", base, i, ext)
	}
}

// Store writes r under a unique name derived from requested.
func (v *Vault) Store(requested string, r io.Reader) (*StoredFile, error) {
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		name, err := v.UniqueFilename(requested)
		if err != nil {
			return nil, err
		}
		fh, err := v.fs.Create(name)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return nil, apperr.NewIOError("write", v.RecordedPath(name), err)
		}
		return v.fill(fh, name, r)
	}
	return nil, apperr.NewIOError("write", requested, fmt.Errorf("no free name after %d attempts", maxCreateAttempts))
}

func (v *Vault) fill(fh *os.File, name string, r io.Reader) (*StoredFile, error) {
	cw := checksum.NewWriter(fh)
	_, copyErr := io.Copy(cw, r)
	if copyErr == nil {
		copyErr = fh.Sync()
	}
	closeErr := fh.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = v.fs.Delete(name)
		return nil, apperr.NewIOError("write", v.RecordedPath(name), copyErr)
	}
	return &StoredFile{
		Name:   name,
		Path:   v.RecordedPath(name),
		Size:   cw.Size(),
		SHA256: cw.Sum(),
	}, nil
}

// Delete removes the file at a recorded path. A missing file is not an error.
func (v *Vault) Delete(recorded string) error {
	name, err := v.resolve(recorded)
	if err != nil {
		return err
	}
	if err := v.fs.Delete(name); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return apperr.NewIOError("delete", recorded, err)
	}
	return nil
}

// Open returns a reader for the file at a recorded path.
func (v *Vault) Open(recorded string) (io.ReadSeekCloser, os.FileInfo, error) {
	name, err := v.resolve(recorded)
	if err != nil {
		return nil, nil, err
	}
	return v.OpenName(name)
}

// OpenName returns a reader for a plain file name inside the vault.
func (v *Vault) OpenName(name string) (io.ReadSeekCloser, os.FileInfo, error) {
	if name == "" || name != path.Base(name) || strings.HasPrefix(name, ".") || strings.Contains(name, `\`) {
		return nil, nil, apperr.NewValidationError("filename", fmt.Sprintf("invalid file name %q", name))
	}
	rc, info, err := v.fs.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, apperr.NewNotFoundError("file", name)
		}
		return nil, nil, apperr.NewIOError("open", name, err)
	}
	return rc, info, nil
}

// resolve maps a recorded path to a file name, refusing anything that does
// not sit directly in the vault directory.
func (v *Vault) resolve(recorded string) (string, error) {
	p := filepath.ToSlash(recorded)
	dir, name := path.Split(p)
	if path.Clean(strings.TrimSuffix(dir, "/")) != v.prefix || name == "" || name == "." || name == ".." {
		return "", apperr.NewValidationError("path", fmt.Sprintf("%q is not inside the vault", recorded))
	}
	return name, nil
}
