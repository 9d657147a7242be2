package api

import (
	"errors"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/studyshelf/internal/apperr"
	"github.com/starford/studyshelf/internal/catalog"
	"github.com/starford/studyshelf/internal/models"
)

const (
	defaultMaxUpload = 50 << 20 // 50 MB
	multipartMemory  = 8 << 20
)

// upload is a parsed multipart resource submission.
type upload struct {
	input catalog.AddResourceInput
	file  multipart.File
	form  *multipart.Form
}

// Close releases the uploaded part and any temporary files backing it.
func (u *upload) Close() {
	if u.file != nil {
		_ = u.file.Close()
	}
	if u.form != nil {
		_ = u.form.RemoveAll()
	}
}

// parseUpload reads a multipart/form-data resource submission: a "file" part
// plus year, branch, subject, title and optional type fields.
func parseUpload(r *http.Request, maxBytes int64) (*upload, error) {
	mem := int64(multipartMemory)
	if maxBytes < mem {
		mem = maxBytes
	}
	if err := r.ParseMultipartForm(mem); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, apperr.NewValidationError("body", "invalid multipart form")
	}

	u := &upload{form: r.MultipartForm}
	u.input = catalog.AddResourceInput{
		Year:    r.FormValue("year"),
		Branch:  r.FormValue("branch"),
		Subject: r.FormValue("subject"),
		Title:   r.FormValue("title"),
		Type:    r.FormValue("type"),
		URL:     r.FormValue("url"),
	}

	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		u.file = file
		u.input.File = file
		u.input.FileName = header.Filename
		if u.input.Type == "" {
			u.input.Type = models.TypeFile
		}
	case errors.Is(err, http.ErrMissingFile):
		if u.input.Type == "" {
			u.input.Type = models.TypeLink
		}
	default:
		u.Close()
		return nil, apperr.NewValidationError("file", "unreadable file part")
	}
	return u, nil
}

// ServeFile handles GET /api/files/{filename}.
//
//	@Summary		Download a stored file
//	@Tags			files
//	@Param			filename	path	string	true	"File name inside the file store"
//	@Success		200	{file}	file
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Router			/files/{filename} [get]
func (h *Handler) ServeFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	rc, info, err := h.svc.OpenFile(r.Context(), name)
	if err != nil {
		writeError(w, "open file", err)
		return
	}
	defer rc.Close()

	setAttachment(w, info.Name())
	http.ServeContent(w, r, info.Name(), info.ModTime(), rc)
}

// ResourceFile handles GET /api/resources/{id}/file.
//
//	@Summary		Download the stored file of a file resource
//	@Tags			files
//	@Param			id	path	string	true	"Resource id"
//	@Success		200	{file}	file
//	@Failure		404	{object}	errResponse
//	@Router			/resources/{id}/file [get]
func (h *Handler) ResourceFile(w http.ResponseWriter, r *http.Request) {
	rc, info, res, err := h.svc.OpenResourceFile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "open resource file", err)
		return
	}
	defer rc.Close()

	name := info.Name()
	if orig, ok := res.Meta[models.MetaOriginalName].(string); ok && orig != "" {
		name = orig
	}
	setAttachment(w, name)
	http.ServeContent(w, r, info.Name(), info.ModTime(), rc)
}

func setAttachment(w http.ResponseWriter, filename string) {
	v := mime.FormatMediaType("attachment", map[string]string{"filename": filename})
	if v == "" {
		v = "attachment"
	}
	w.Header().Set("Content-Disposition", v)
}
