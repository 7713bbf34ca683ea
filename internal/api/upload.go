package api

import (
	"bytes"
	"encoding/base64"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"schoolattend/internal/apperr"
	"schoolattend/internal/logger"
)

const maxUpload = 5 << 20

type uploadInput struct {
	// data URL ("data:image/png;base64,...") or bare base64
	Data string `json:"data" binding:"required"`
}

// upload accepts a multipart "file" field or a JSON data URL and returns the hosted URL.
func (h *handler) upload(c *gin.Context) {
	if h.Uploader == nil {
		fail(c, apperr.Unavailable("Image storage is not configured.", nil))
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUpload)

	var (
		file     io.Reader
		filename string
	)
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		f, hdr, err := c.Request.FormFile("file")
		if err != nil {
			fail(c, apperr.Validation("A file field is required."))
			return
		}
		defer f.Close()
		file, filename = f, filepath.Base(hdr.Filename)
	} else {
		var in uploadInput
		if !bindJSON(c, &in) {
			return
		}
		raw := in.Data
		if i := strings.Index(raw, ","); strings.HasPrefix(raw, "data:") && i >= 0 {
			raw = raw[i+1:]
		}
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(raw))
		if err != nil || len(data) == 0 {
			fail(c, apperr.Validation("Image data is not valid base64."))
			return
		}
		file, filename = bytes.NewReader(data), uuid.NewString()
	}

	res, err := h.Uploader.Upload(c.Request.Context(), file, filename)
	if err != nil {
		logger.FromGin(c).Warn("image upload failed", zap.Error(err))
		fail(c, apperr.Unavailable("Image upload failed, try again.", err))
		return
	}
	ok(c, http.StatusCreated, "Image uploaded successfully.", gin.H{"url": res.SecureURL, "public_id": res.PublicID})
}
