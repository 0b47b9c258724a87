package api

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
)

// upload is a single multipart file read from the "file" field.
type upload struct {
	File multipart.File
	Name string
	Size int64
}

// receiveUpload parses the multipart form and opens the "file" field. On
// failure it has already written the response. The caller must call
// cleanup when ok is true.
func (s *Server) receiveUpload(w http.ResponseWriter, r *http.Request, missingMsg string) (up upload, cleanup func(), ok bool) {
	// Limit total request size. Extra 1MB for form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, s.tooLargeMessage(), err)
			return upload{}, nil, false
		}
		s.writeError(w, http.StatusBadRequest, missingMsg, err)
		return upload{}, nil, false
	}
	form := r.MultipartForm

	file, header, err := r.FormFile("file")
	if err != nil {
		form.RemoveAll()
		s.writeError(w, http.StatusBadRequest, missingMsg, err)
		return upload{}, nil, false
	}
	if header.Size > s.cfg.MaxUploadBytes {
		file.Close()
		form.RemoveAll()
		s.writeError(w, http.StatusRequestEntityTooLarge, s.tooLargeMessage(), nil)
		return upload{}, nil, false
	}

	cleanup = func() {
		file.Close()
		form.RemoveAll()
	}
	return upload{File: file, Name: sanitizeFilename(header.Filename), Size: header.Size}, cleanup, true
}

func (s *Server) tooLargeMessage() string {
	return fmt.Sprintf("File too large. Maximum size is %dMB.", s.cfg.MaxUploadBytes/(1024*1024))
}
