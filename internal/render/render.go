// Package render formats the catalog for terminals and tool output.
package render

import (
	"fmt"
	"io"

	"github.com/disiqueira/gotree/v3"
	"github.com/olekukonko/tablewriter"

	"github.com/starford/studyshelf/internal/models"
)

// TreeOptions controls Tree output.
type TreeOptions struct {
	// RootLabel names the root node; "catalog" when empty.
	RootLabel string
	// IDs appends each node's id in brackets.
	IDs bool
}

// Tree renders the Year → Branch → Subject → Resource hierarchy.
func Tree(m *models.Manifest, opts TreeOptions) string {
	root := opts.RootLabel
	if root == "" {
		root = "catalog"
	}
	label := func(name, id string) string {
		if opts.IDs && id != "" {
			return fmt.Sprintf("%s [%s]", name, id)
		}
		return name
	}

	t := gotree.New(root)
	for _, y := range m.Years {
		yn := t.Add(label(y.Name, y.ID))
		for _, b := range y.Branches {
			bn := yn.Add(label(b.Name, b.ID))
			for _, s := range b.Subjects {
				sn := bn.Add(label(s.Name, s.ID))
				for _, r := range s.Resources {
					sn.Add(label(resourceLine(r), r.ID))
				}
			}
		}
	}
	return t.Print()
}

func resourceLine(r *models.Resource) string {
	return fmt.Sprintf("%s (%s: %s)", r.Title, r.Type, Target(r.Type, r.URL, r.Path))
}

// Target is what a resource points at: the URL of a link or the stored
// path of a file.
func Target(typ, url, path string) string {
	if typ == models.TypeFile {
		return path
	}
	return url
}

// Table writes records as a table with their ancestry and target.
func Table(w io.Writer, recs []models.Record, withIDs bool) error {
	table := tablewriter.NewTable(w)

	headers := []any{"Title", "Type", "Location", "Target"}
	if withIDs {
		headers = append([]any{"ID"}, headers...)
	}
	table.Header(headers...)

	for _, r := range recs {
		row := []any{r.Title, r.Type, r.Location(), Target(r.Type, r.URL, r.Path)}
		if withIDs {
			row = append([]any{r.ID}, row...)
		}
		if err := table.Append(row...); err != nil {
			return err
		}
	}
	return table.Render()
}
