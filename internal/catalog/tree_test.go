package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/studyshelf/internal/apperr"
	"github.com/starford/studyshelf/internal/models"
)

func link(title, url string) *models.Resource {
	return &models.Resource{Title: title, Type: models.TypeLink, URL: url}
}

func file(title, path string) *models.Resource {
	return &models.Resource{Title: title, Type: models.TypeFile, Path: path}
}

func TestFindOrCreate_Idempotent(t *testing.T) {
	m := models.NewManifest()

	y1 := FindOrCreateYear(m, "2nd Year")
	y2 := FindOrCreateYear(m, "2nd Year")
	assert.Same(t, y1, y2)
	require.Len(t, m.Years, 1)
	assert.NotEmpty(t, y1.ID)
	assert.NotNil(t, y1.Branches)

	b1 := FindOrCreateBranch(y1, "ECE")
	b2 := FindOrCreateBranch(y1, "ECE")
	assert.Same(t, b1, b2)
	require.Len(t, y1.Branches, 1)

	s1 := FindOrCreateSubject(b1, "Signals")
	s2 := FindOrCreateSubject(b1, "Signals")
	assert.Same(t, s1, s2)
	require.Len(t, b1.Subjects, 1)
	assert.NotNil(t, s1.Resources)
}

func TestFindOrCreate_ExactMatchOnly(t *testing.T) {
	m := models.NewManifest()
	FindOrCreateYear(m, "2nd Year")
	FindOrCreateYear(m, "2nd year")
	FindOrCreateYear(m, " 2nd Year")
	assert.Len(t, m.Years, 3)
}

func TestAddResource_CreatesPathAndAppends(t *testing.T) {
	m := models.NewManifest()

	s := AddResource(m, "2nd Year", "ECE", "Signals", link("Signals Notes", "http://x"))
	AddResource(m, "2nd Year", "ECE", "Signals", link("Signals Notes", "http://y"))
	AddResource(m, "2nd Year", "CSE", "Algorithms", link("CLRS", "http://z"))

	require.Len(t, m.Years, 1)
	require.Len(t, m.Years[0].Branches, 2)
	require.Len(t, s.Resources, 2)
	assert.Equal(t, "http://x", s.Resources[0].URL)
	assert.Equal(t, "http://y", s.Resources[1].URL)
	assert.NotEmpty(t, s.Resources[0].ID)
	assert.NotEqual(t, s.Resources[0].ID, s.Resources[1].ID)
}

func TestRenameNode(t *testing.T) {
	m := models.NewManifest()
	AddResource(m, "1st Year", "Common", "Maths", link("Book", "http://b"))
	y := m.Years[0]
	subj := y.Branches[0].Subjects[0]
	res := subj.Resources[0]

	loc, err := RenameNode(m, y.ID, "First Year")
	require.NoError(t, err)
	assert.Equal(t, KindYear, loc.Kind)
	assert.Equal(t, "First Year", y.Name)

	loc, err = RenameNode(m, res.ID, "Textbook")
	require.NoError(t, err)
	assert.Equal(t, KindResource, loc.Kind)
	assert.Equal(t, "Textbook", res.Title)
	assert.Equal(t, "Textbook", loc.Name())
}

func TestRenameNode_SiblingConflict(t *testing.T) {
	m := models.NewManifest()
	AddResource(m, "1st Year", "Common", "Maths", link("A", "http://a"))
	AddResource(m, "1st Year", "Common", "Physics", link("B", "http://b"))
	AddResource(m, "2nd Year", "ECE", "Maths", link("C", "http://c"))

	physics := m.Years[0].Branches[0].Subjects[1]
	_, err := RenameNode(m, physics.ID, "Maths")
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "Physics", physics.Name)

	_, err = RenameNode(m, m.Years[1].ID, "1st Year")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	// same name in a different parent is fine
	_, err = RenameNode(m, m.Years[1].Branches[0].ID, "Common")
	assert.NoError(t, err)

	// renaming to its own name is a no-op
	_, err = RenameNode(m, physics.ID, "Physics")
	assert.NoError(t, err)
}

func TestRenameNode_ResourceTitlesMayRepeat(t *testing.T) {
	m := models.NewManifest()
	AddResource(m, "Y", "B", "S", link("Notes", "http://1"))
	s := AddResource(m, "Y", "B", "S", link("Slides", "http://2"))

	_, err := RenameNode(m, s.Resources[1].ID, "Notes")
	require.NoError(t, err)
	assert.Equal(t, "Notes", s.Resources[1].Title)
}

func TestRenameNode_NotFound(t *testing.T) {
	m := models.NewManifest()
	_, err := RenameNode(m, "missing", "x")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.True(t, apperr.IsNotFound(err))
}

func TestDeleteNode_Resource(t *testing.T) {
	m := models.NewManifest()
	AddResource(m, "Y", "B", "S", link("L", "http://l"))
	s := AddResource(m, "Y", "B", "S", file("F", "static/f.pdf"))
	keep := s.Resources[0]

	loc, files, err := DeleteNode(m, s.Resources[1].ID)
	require.NoError(t, err)
	assert.Equal(t, KindResource, loc.Kind)
	assert.Equal(t, []string{"static/f.pdf"}, files)
	require.Len(t, s.Resources, 1)
	assert.Same(t, keep, s.Resources[0])

	_, files, err = DeleteNode(m, keep.ID)
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Empty(t, s.Resources)
}

func TestDeleteNode_CascadeCollectsNestedFiles(t *testing.T) {
	m := models.NewManifest()
	AddResource(m, "2nd Year", "ECE", "Signals", file("a", "static/a.pdf"))
	AddResource(m, "2nd Year", "ECE", "Circuits", link("b", "http://b"))
	AddResource(m, "2nd Year", "CSE", "Algo", file("c", "static/c.pdf"))
	AddResource(m, "1st Year", "Common", "Maths", file("d", "static/d.pdf"))

	_, files, err := DeleteNode(m, m.Years[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"static/a.pdf", "static/c.pdf"}, files)
	require.Len(t, m.Years, 1)
	assert.Equal(t, "1st Year", m.Years[0].Name)
}

func TestDeleteNode_NotFound(t *testing.T) {
	m := models.NewManifest()
	AddResource(m, "Y", "B", "S", link("L", "http://l"))

	_, _, err := DeleteNode(m, "nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Len(t, m.Years, 1)
}

func TestNodeIndex_Lookup(t *testing.T) {
	m := models.NewManifest()
	s := AddResource(m, "Y", "B", "S", link("L", "http://l"))

	idx := NewNodeIndex(m)
	assert.Len(t, idx, 4)

	loc, err := idx.Lookup(s.ID)
	require.NoError(t, err)
	assert.Equal(t, KindSubject, loc.Kind)
	assert.Same(t, m.Years[0], loc.Year)
	assert.Same(t, s, loc.Subject)
	assert.Equal(t, 0, loc.Index)

	_, err = idx.Lookup("")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
