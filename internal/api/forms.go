package api

import (
	"errors"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/share-pet/share-pet/internal/media"
)

const maxFormMemory = 1 << 20

// parseForm reads an urlencoded or multipart body into a flat map holding the
// first value of every field.
func parseForm(w http.ResponseWriter, r *http.Request) (map[string]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, media.MaxUploadSize+maxFormMemory)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return nil, err
		}
	} else if err := r.ParseForm(); err != nil {
		return nil, err
	}

	data := make(map[string]string, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) > 0 {
			data[key] = values[0]
		}
	}
	return data, nil
}

// formFile returns the uploaded file in field name, or nil when none was sent.
// The caller closes the returned file.
func formFile(r *http.Request, name string) (*media.Upload, multipart.File, error) {
	if r.MultipartForm == nil {
		return nil, nil, nil
	}

	file, header, err := r.FormFile(name)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	upload := &media.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	}
	return upload, file, nil
}

func (s *Server) badForm(w http.ResponseWriter, r *http.Request, err error) {
	s.log.WarnContext(r.Context(), "unreadable form", slog.String("path", r.URL.Path), slog.Any("error", err))

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "Request body too large."})
		return
	}
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Malformed form data."})
}
