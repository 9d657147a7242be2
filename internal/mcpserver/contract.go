package mcpserver

// ManifestFormat describes the catalog document and the rules the
// mutating tools enforce.
const ManifestFormat = `# Studyshelf Manifest Format

The catalog is one JSON document with a fixed four-level hierarchy:
Year → Branch → Subject → Resource.

## Structure

` + "```" + `json
{
  "years": [
    {
      "id": "5d1c…",
      "name": "2nd Year",
      "branches": [
        {
          "id": "8a02…",
          "name": "ECE",
          "subjects": [
            {
              "id": "c4e7…",
              "name": "Signals and Systems",
              "resources": [
                {
                  "id": "f310…",
                  "title": "Oppenheim lecture notes",
                  "type": "link",
                  "url": "https://example.org/notes"
                },
                {
                  "id": "0b9e…",
                  "title": "Lab sheet",
                  "type": "file",
                  "path": "static/lab_sheet.pdf",
                  "meta": {
                    "added": "2024-03-01T11:30:00Z",
                    "original_name": "lab sheet.pdf",
                    "size": 48213,
                    "sha256": "9f2c…"
                  }
                }
              ]
            }
          ]
        }
      ]
    }
  ]
}
` + "```" + `

## Rules

1. **Names are exact.** Year, branch and subject names are matched exactly,
   including case and spacing, after trimming surrounding whitespace.
   "2nd Year" and "2nd year" are two different years.
2. **Missing levels are created.** Adding a resource under a year, branch or
   subject that does not exist yet creates it, appended after its siblings.
3. **Order is insertion order.** Nothing is sorted; the tree, listings and
   search results all follow the order in which entries were added.
4. **Sibling names are unique.** Renaming a year, branch or subject to the
   name of a sibling fails. Resource titles may repeat.
5. **Resource types.** ` + "`link`" + ` resources carry a ` + "`url`" + `;
   ` + "`file`" + ` resources carry a ` + "`path`" + ` under the static
   directory. Stored file names are made safe and never overwrite an
   existing file; a clash gets a numeric suffix (` + "`lab_1.pdf`" + `).
6. **Ids.** Every node has an id. Use browse_catalog to find them.
7. **Deletes cascade.** Deleting a node removes everything below it, and the
   stored files of removed file resources are deleted too.

## Tools

| Tool | Purpose |
|------|---------|
| search_resources | Substring search over title, subject, branch and year |
| list_resources | Every resource with its location |
| browse_catalog | Tree view with node ids |
| add_link_resource | Add a link resource |
| add_file_resource | Store a file (data URI or http(s) URL) and add it |
| rename_node | Rename a node by id |
| delete_node | Delete a node and its subtree by id |
| get_manifest_format | This document |
`
