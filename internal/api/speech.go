package api

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"aarogya/internal/audio"
	"aarogya/internal/locale"
	"aarogya/internal/utils"
)

// multipartOverhead covers part headers and the language field.
const multipartOverhead = 64 << 10

// speechToText handles POST /api/speech-to-text
func (h *Handler) speechToText(c *gin.Context) {
	requestID := uuid.NewString()

	// Bodies larger than the file limit plus form overhead are cut off
	// while parsing, before anything reaches disk.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.validator.Limit()+multipartOverhead)

	file, err := c.FormFile("audio")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.Error(c, http.StatusBadRequest, h.validator.CheckSize(h.validator.Limit()+1))
			return
		}
		utils.Error(c, http.StatusBadRequest, "no audio file provided")
		return
	}
	if strings.TrimSpace(file.Filename) == "" {
		utils.Error(c, http.StatusBadRequest, "no file selected")
		return
	}
	if msg := h.validator.CheckSize(file.Size); msg != "" {
		utils.Error(c, http.StatusBadRequest, msg)
		return
	}

	ext := audio.NormalizeExt(filepath.Ext(file.Filename))
	if !audio.IsSupported(ext) {
		utils.Error(c, http.StatusBadRequest, "unsupported format. Supported: "+strings.Join(audio.SupportedFormats, ", "))
		return
	}

	language := locale.Normalize(c.PostForm("language"))

	tmp, err := os.CreateTemp(h.uploadDir, "upload-*"+ext)
	if err != nil {
		h.logger.Printf("[Speech] %s: failed to create temp file: %v", requestID, err)
		utils.Error(c, http.StatusInternalServerError, "failed to save audio file")
		return
	}
	path := tmp.Name()
	tmp.Close()
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			h.logger.Printf("[Speech] %s: failed to remove %s: %v", requestID, path, err)
		}
	}()

	if err := c.SaveUploadedFile(file, path); err != nil {
		h.logger.Printf("[Speech] %s: failed to save upload: %v", requestID, err)
		utils.Error(c, http.StatusInternalServerError, "failed to save audio file")
		return
	}

	v := h.validator.Validate(path, ext)
	if !v.Valid {
		h.logger.Printf("[Speech] %s: rejected %q: %s", requestID, file.Filename, v.Error)
		utils.Error(c, http.StatusBadRequest, v.Error)
		return
	}

	if h.transcriber == nil {
		utils.Error(c, http.StatusServiceUnavailable, "speech service not configured")
		return
	}

	h.logger.Printf("[Speech] %s: transcribing %q (%d bytes, %s, lang=%s)", requestID, file.Filename, v.FileSize, ext, language)
	res := h.transcriber.Transcribe(c.Request.Context(), path, ext, language)
	if !res.Success {
		h.logger.Printf("[Speech] %s: transcription failed: %s", requestID, res.Error)
		status := http.StatusInternalServerError
		if res.Rejected {
			status = http.StatusBadRequest
		}
		utils.Error(c, status, res.Error)
		return
	}

	utils.SuccessWithMeta(c, gin.H{
		"text":       res.Text,
		"confidence": res.Confidence,
		"language":   res.Language,
		"method":     res.Method,
		"backend":    res.Backend,
		"file_info": gin.H{
			"filename": file.Filename,
			"size":     v.FileSize,
			"format":   v.Format,
		},
	}, requestID)
}
