package manifest

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/studyshelf/internal/apperr"
	"github.com/starford/studyshelf/internal/checksum"
	"github.com/starford/studyshelf/internal/models"
)

func openStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "manifest.json")
	s, err := Open(path)
	require.NoError(t, err)
	return s, path
}

func TestLoad_CreatesDefaultDocument(t *testing.T) {
	s, path := openStore(t)

	m, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, m.Years)
	assert.NotNil(t, m.Years)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"years\": []\n}\n", string(data))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, path := openStore(t)

	m := models.NewManifest()
	m.Years = append(m.Years, &models.Year{
		ID:   "y1",
		Name: "2nd Year",
		Branches: []*models.Branch{{
			ID:   "b1",
			Name: "ECE",
			Subjects: []*models.Subject{{
				ID:   "s1",
				Name: "Signals & Systems",
				Resources: []*models.Resource{
					{ID: "r1", Title: "Signals <Notes>", Type: models.TypeLink, URL: "http://x?a=1&b=2", Meta: map[string]any{"added": "2024-01-01T00:00:00Z"}},
					{ID: "r2", Title: "Lab", Type: models.TypeFile, Path: "static/lab.pdf", Meta: map[string]any{"size": 42}},
				},
			}},
		}},
	})
	require.NoError(t, s.Save(m))
	first, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(first), "Signals & Systems", "HTML characters must not be escaped")
	assert.Contains(t, string(first), `"url": "http://x?a=1&b=2"`)
	assert.Contains(t, string(first), "Signals <Notes>")

	loaded, err := s.Load()
	require.NoError(t, err)
	require.NoError(t, s.Save(loaded))
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestLoadVersioned_ChecksumMatchesBytes(t *testing.T) {
	s, path := openStore(t)
	_, sum, err := s.LoadVersioned()
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, checksum.Sum(data), sum)

	m := models.NewManifest()
	m.Years = append(m.Years, &models.Year{ID: "y", Name: "1st Year"})
	saved, err := s.SaveVersioned(m)
	require.NoError(t, err)
	_, reloaded, err := s.LoadVersioned()
	require.NoError(t, err)
	assert.Equal(t, saved, reloaded)
	assert.NotEqual(t, sum, saved)
}

func TestLoad_AssignsMissingIDs(t *testing.T) {
	s, path := openStore(t)
	legacy := `{"years":[{"name":"1st Year","branches":[{"name":"Common","subjects":[{"name":"Maths","resources":[{"title":"Book","type":"link","url":"http://b","meta":{"added":"x"}}]}]}]}]}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	m, err := s.Load()
	require.NoError(t, err)
	y := m.Years[0]
	assert.NotEmpty(t, y.ID)
	assert.NotEmpty(t, y.Branches[0].ID)
	assert.NotEmpty(t, y.Branches[0].Subjects[0].ID)
	assert.NotEmpty(t, y.Branches[0].Subjects[0].Resources[0].ID)

	again, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, y.ID, again.Years[0].ID, "assigned ids must be persisted")
	assert.Equal(t, y.Branches[0].Subjects[0].Resources[0].ID, again.Years[0].Branches[0].Subjects[0].Resources[0].ID)
}

func TestLoad_MissingChildSequencesNormalised(t *testing.T) {
	s, path := openStore(t)
	require.NoError(t, os.WriteFile(path, []byte(`{"years":[{"name":"1st Year"}]}`), 0o644))

	m, err := s.Load()
	require.NoError(t, err)
	assert.NotNil(t, m.Years[0].Branches)
}

func TestLoad_LegacyEmptyLinkAccepted(t *testing.T) {
	s, path := openStore(t)
	doc := `{"years":[{"name":"Y","branches":[{"name":"B","subjects":[{"name":"S","resources":[{"title":"T","type":"link","url":""}]}]}]}]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	_, err := s.Load()
	assert.NoError(t, err)
}

func TestSave_EmptyLinkURLKept(t *testing.T) {
	s, path := openStore(t)
	doc := `{"years":[{"name":"Y","branches":[{"name":"B","subjects":[{"name":"S","resources":[{"title":"T","type":"link","url":""}]}]}]}]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	m, err := s.Load()
	require.NoError(t, err)
	rs := m.Years[0].Branches[0].Subjects[0].Resources
	rs = append(rs, &models.Resource{ID: "f1", Title: "Lab", Type: models.TypeFile, Path: "static/lab.pdf"})
	m.Years[0].Branches[0].Subjects[0].Resources = rs
	require.NoError(t, s.Save(m))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw struct {
		Years []struct {
			Branches []struct {
				Subjects []struct {
					Resources []map[string]any `json:"resources"`
				} `json:"subjects"`
			} `json:"branches"`
		} `json:"years"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	saved := raw.Years[0].Branches[0].Subjects[0].Resources
	require.Len(t, saved, 2)
	assert.Contains(t, saved[0], "url")
	assert.Equal(t, "", saved[0]["url"])
	assert.NotContains(t, saved[1], "url")

	again, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "", again.Years[0].Branches[0].Subjects[0].Resources[0].URL)
}

func TestLoad_RejectsInvalidDocuments(t *testing.T) {
	cases := map[string]string{
		"not json":       `{"years": [`,
		"missing years":  `{}`,
		"null years":     `{"years": null}`,
		"unknown type":   `{"years":[{"name":"Y","branches":[{"name":"B","subjects":[{"name":"S","resources":[{"title":"T","type":"video"}]}]}]}]}`,
		"file sans path": `{"years":[{"name":"Y","branches":[{"name":"B","subjects":[{"name":"S","resources":[{"title":"T","type":"file"}]}]}]}]}`,
		"null node":      `{"years":[null]}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			s, path := openStore(t)
			require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

			_, err := s.Load()
			require.Error(t, err)
			var se *apperr.StorageError
			assert.True(t, errors.As(err, &se), "err = %v", err)
			assert.ErrorIs(t, err, apperr.ErrStorage)
		})
	}
}

func TestRaw_ReturnsBytesUnchanged(t *testing.T) {
	s, path := openStore(t)
	doc := `{"years":[]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	raw, err := s.Raw()
	require.NoError(t, err)
	assert.Equal(t, doc, string(raw))
}
