package index

import "github.com/starford/studyshelf/internal/catalog"

var _ catalog.Searcher = (*DB)(nil)
