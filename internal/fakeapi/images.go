package fakeapi

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxImageSize = 10 << 20

func (s *Server) uploadImages(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, "Expected multipart form data.")
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		badRequest(c, "No files were uploaded.")
		return
	}

	type upload struct {
		name string
		data []byte
	}
	uploads := make([]upload, 0, len(files))
	for _, fh := range files {
		if !strings.HasPrefix(fh.Header.Get("Content-Type"), "image/") {
			badRequest(c, fh.Filename+" is not an image.")
			return
		}
		if fh.Size > maxImageSize {
			abortProblem(c, http.StatusRequestEntityTooLarge, fh.Filename+" is too large.")
			return
		}
		f, err := fh.Open()
		if err != nil {
			badRequest(c, "Unreadable upload.")
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			badRequest(c, "Unreadable upload.")
			return
		}
		name := uuid.NewString() + strings.ToLower(filepath.Ext(fh.Filename))
		uploads = append(uploads, upload{name: name, data: data})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(uploads))
	for _, up := range uploads {
		s.images[up.name] = up.data
		names = append(names, up.name)
	}
	c.JSON(http.StatusOK, names)
}
