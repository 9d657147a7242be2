package catalog

import (
	"errors"
	"io"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/studyshelf/internal/apperr"
	"github.com/starford/studyshelf/internal/models"
)

// TypeUploadFile is the tag upload forms submit for file resources; it is
// stored as models.TypeFile.
const TypeUploadFile = "upload_file"

// AddResourceInput carries everything needed to add one resource.
type AddResourceInput struct {
	Year    string `json:"year"`
	Branch  string `json:"branch"`
	Subject string `json:"subject"`
	Title   string `json:"title"`
	Type    string `json:"type"`
	URL     string `json:"url"`

	// FileName and File are used for file resources only.
	FileName string    `json:"filename"`
	File     io.Reader `json:"file"`

	// IfMatch, when set, must equal the current manifest checksum.
	IfMatch string `json:"-"`
}

func (in *AddResourceInput) normalize() {
	in.Year = strings.TrimSpace(in.Year)
	in.Branch = strings.TrimSpace(in.Branch)
	in.Subject = strings.TrimSpace(in.Subject)
	in.Title = strings.TrimSpace(in.Title)
	in.URL = strings.TrimSpace(in.URL)
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	if in.Type == TypeUploadFile {
		in.Type = models.TypeFile
	}
}

// Validate checks the required fields. Call after normalize.
func (in *AddResourceInput) Validate() error {
	err := validation.ValidateStruct(in,
		validation.Field(&in.Year, validation.Required),
		validation.Field(&in.Branch, validation.Required),
		validation.Field(&in.Subject, validation.Required),
		validation.Field(&in.Title, validation.Required),
		validation.Field(&in.Type, validation.Required, validation.In(models.TypeLink, models.TypeFile)),
		validation.Field(&in.URL, validation.When(in.Type == models.TypeLink, validation.Required)),
		validation.Field(&in.FileName, validation.When(in.Type == models.TypeFile, validation.Required)),
		validation.Field(&in.File, validation.When(in.Type == models.TypeFile, validation.By(func(any) error {
			if in.File == nil {
				return errors.New("is required")
			}
			return nil
		}))),
	)
	return asValidationError(err)
}

// asValidationError converts ozzo-validation output into the shared taxonomy.
func asValidationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return apperr.NewValidationError("", err.Error())
	}
	keys := make([]string, 0, len(verrs))
	for k := range verrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) == 1 {
		return apperr.NewValidationError(keys[0], verrs[keys[0]].Error())
	}
	return apperr.NewValidationError("", verrs.Error())
}
