package api

import (
	"github.com/starford/studyshelf/internal/catalog"
	"github.com/starford/studyshelf/internal/models"
)

// AddLinkRequest is the JSON body for creating a link resource.
type AddLinkRequest struct {
	Year    string `json:"year" example:"2nd Year" validate:"required"`
	Branch  string `json:"branch" example:"ECE" validate:"required"`
	Subject string `json:"subject" example:"Signals" validate:"required"`
	Title   string `json:"title" example:"Signals Notes" validate:"required"`
	Type    string `json:"type" example:"link"`
	URL     string `json:"url" example:"https://example.com/notes" validate:"required"`
}

// RenameRequest is the request body for renaming a node.
type RenameRequest struct {
	Name string `json:"name" example:"3rd Year" validate:"required"`
}

// RecordDTO is a flattened resource with its ancestry rendered for display.
type RecordDTO struct {
	models.Record
	Location string `json:"location" example:"2nd Year / ECE / Signals"`
}

// RecordsResponse wraps a list of flattened resources.
type RecordsResponse struct {
	Records []RecordDTO `json:"records" validate:"required"`
	Count   int         `json:"count" example:"3" validate:"required"`
}

// NodeResponse is returned after renaming or deleting a node.
type NodeResponse = catalog.Node

// ResourceResponse is the created resource.
type ResourceResponse = models.Resource

func recordsResponse(recs []models.Record) RecordsResponse {
	out := make([]RecordDTO, 0, len(recs))
	for _, r := range recs {
		out = append(out, RecordDTO{Record: r, Location: r.Location()})
	}
	return RecordsResponse{Records: out, Count: len(out)}
}
