package vault

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/studyshelf/internal/apperr"
	"github.com/starford/studyshelf/internal/checksum"
)

func openVault(t *testing.T) *Vault {
	t.Helper()
	v, err := Open(filepath.Join(t.TempDir(), "static"))
	require.NoError(t, err)
	return v
}

func storedNames(t *testing.T, v *Vault) []string {
	t.Helper()
	entries, err := os.ReadDir(v.Dir())
	require.NoError(t, err)
	names := []string{}
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestUniqueFilename_FreeName(t *testing.T) {
	v := openVault(t)
	name, err := v.UniqueFilename("notes.pdf")
	require.NoError(t, err)
	assert.Equal(t, "notes.pdf", name)
}

func TestUniqueFilename_AppendsCounterBeforeExtension(t *testing.T) {
	v := openVault(t)
	for _, n := range []string{"notes.pdf", "notes_1.pdf"} {
		require.NoError(t, os.WriteFile(filepath.Join(v.Dir(), n), []byte("x"), 0o644))
	}
	name, err := v.UniqueFilename("notes.pdf")
	require.NoError(t, err)
	assert.Equal(t, "notes_2.pdf", name)

	require.NoError(t, os.WriteFile(filepath.Join(v.Dir(), "README"), []byte("x"), 0o644))
	name, err = v.UniqueFilename("README")
	require.NoError(t, err)
	assert.Equal(t, "README_1", name)
}

func TestStore_RepeatedNamesAreDistinct(t *testing.T) {
	v := openVault(t)
	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		f, err := v.Store("lab.tar.gz", strings.NewReader("data"))
		require.NoError(t, err)
		assert.False(t, seen[f.Name], "duplicate name %s", f.Name)
		seen[f.Name] = true
	}
	assert.True(t, seen["lab.tar.gz"])
	assert.True(t, seen["lab.tar_1.gz"])
	assert.True(t, seen["lab.tar_4.gz"])

	assert.Len(t, storedNames(t, v), 5)
}

func TestStore_RecordsPathSizeAndDigest(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "static")
	v, err := Open(dir)
	require.NoError(t, err)

	payload := []byte("%PDF-1.4 fake")
	f, err := v.Store("Signals.pdf", bytes.NewReader(payload))
	require.NoError(t, err)

	assert.Equal(t, filepath.ToSlash(dir)+"/Signals.pdf", f.Path)
	assert.Equal(t, int64(len(payload)), f.Size)
	assert.Equal(t, checksum.Sum(payload), f.SHA256)

	got, err := os.ReadFile(filepath.Join(dir, "Signals.pdf"))
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestStore_StripsDirectoryComponents(t *testing.T) {
	v := openVault(t)
	for _, requested := range []string{"../../escape.txt", `..\..\escape.txt`, "/etc/escape.txt"} {
		f, err := v.Store(requested, strings.NewReader("x"))
		require.NoError(t, err, requested)
		assert.Equal(t, filepath.Join(v.Dir(), f.Name), filepath.Join(v.Dir(), filepath.Base(f.Name)))
		assert.True(t, strings.HasPrefix(f.Name, "escape"), f.Name)
	}
	_, err := os.Stat(filepath.Join(filepath.Dir(v.Dir()), "escape.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestStore_RejectsUnusableNames(t *testing.T) {
	v := openVault(t)
	for _, requested := range []string{"", "..", "...", "/"} {
		_, err := v.Store(requested, strings.NewReader("x"))
		assert.ErrorIs(t, err, apperr.ErrInvalidInput, "name %q", requested)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestStore_FailedWriteLeavesNothing(t *testing.T) {
	v := openVault(t)
	_, err := v.Store("broken.bin", failingReader{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrIO)

	assert.Empty(t, storedNames(t, v))
}

func TestDelete_RemovesAndToleratesMissing(t *testing.T) {
	v := openVault(t)
	f, err := v.Store("gone.pdf", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, v.Delete(f.Path))
	_, err = os.Stat(filepath.Join(v.Dir(), f.Name))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, v.Delete(f.Path), "second delete must be a no-op")
}

func TestDelete_RefusesPathsOutsideVault(t *testing.T) {
	v := openVault(t)
	outside := filepath.Join(filepath.Dir(v.Dir()), "keep.txt")
	require.NoError(t, os.WriteFile(outside, []byte("keep"), 0o644))

	for _, p := range []string{outside, v.RecordedPath("../keep.txt"), "elsewhere/keep.txt"} {
		assert.ErrorIs(t, v.Delete(p), apperr.ErrInvalidInput, p)
	}
	_, err := os.Stat(outside)
	assert.NoError(t, err)
}

func TestOpen(t *testing.T) {
	v := openVault(t)
	f, err := v.Store("read.txt", strings.NewReader("hello"))
	require.NoError(t, err)

	rc, info, err := v.Open(f.Path)
	require.NoError(t, err)
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, int64(5), info.Size())

	_, _, err = v.OpenName("missing.txt")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, _, err = v.OpenName("../etc/passwd")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}
