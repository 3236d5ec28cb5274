package audio

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-audio/wav"
)

// MaxFileSize is the largest accepted upload (10 MiB).
const MaxFileSize int64 = 10 * 1024 * 1024

// SupportedFormats lists accepted extensions in display order.
var SupportedFormats = []string{".wav", ".mp3", ".m4a", ".ogg", ".flac"}

// m4a has no pure-Go decoder, so its content is only sniffed.
var m4aMIMETypes = []string{"audio/x-m4a", "audio/mp4", "video/mp4"}

// ValidationResult is the outcome of validating an uploaded audio file.
type ValidationResult struct {
	Valid    bool   `json:"valid"`
	Error    string `json:"error,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
	Format   string `json:"format,omitempty"`
}

// Validator checks that an uploaded file exists, fits the size limit, has a
// supported extension and actually decodes as that format.
type Validator struct {
	MaxFileSize int64
	logger      *log.Logger
}

func NewValidator(logger *log.Logger) *Validator {
	return &Validator{MaxFileSize: MaxFileSize, logger: logger}
}

// NormalizeExt lower-cases ext and ensures a leading dot.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// IsSupported reports whether ext names one of SupportedFormats.
func IsSupported(ext string) bool {
	ext = NormalizeExt(ext)
	for _, f := range SupportedFormats {
		if f == ext {
			return true
		}
	}
	return false
}

// Limit returns the effective size ceiling in bytes.
func (v *Validator) Limit() int64 {
	if v.MaxFileSize <= 0 {
		return MaxFileSize
	}
	return v.MaxFileSize
}

// CheckSize returns the size error for a file of n bytes, or "" if it fits.
func (v *Validator) CheckSize(n int64) string {
	if n > v.Limit() {
		return fmt.Sprintf("file size too large (max %dMB)", v.Limit()/(1024*1024))
	}
	return ""
}

// Validate inspects the file at path. It never modifies or removes it.
func (v *Validator) Validate(path, declaredExt string) ValidationResult {
	info, err := os.Stat(path)
	if err != nil {
		return ValidationResult{Error: "file does not exist"}
	}

	if msg := v.CheckSize(info.Size()); msg != "" {
		return ValidationResult{Error: msg}
	}

	ext := NormalizeExt(declaredExt)
	if !IsSupported(ext) {
		return ValidationResult{Error: "unsupported format. Supported: " + strings.Join(SupportedFormats, ", ")}
	}

	if err := checkDecodes(path, ext); err != nil {
		if v.logger != nil {
			v.logger.Printf("[Validator] %s rejected: %v", path, err)
		}
		return ValidationResult{Error: "invalid audio file: " + err.Error()}
	}

	return ValidationResult{Valid: true, FileSize: info.Size(), Format: ext}
}

// checkDecodes opens path with the decoder for ext. m4a is only sniffed.
func checkDecodes(path, ext string) error {
	if ext == ".m4a" {
		mt, err := mimetype.DetectFile(path)
		if err != nil {
			return err
		}
		for m := mt; m != nil; m = m.Parent() {
			for _, want := range m4aMIMETypes {
				if m.Is(want) {
					return nil
				}
			}
		}
		return fmt.Errorf("content is %s, not an MP4 audio container", mt.String())
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if ext == ".wav" {
		dec := wav.NewDecoder(f)
		if !dec.IsValidFile() {
			return errInvalidWAV
		}
		return nil
	}

	decode, ok := streamDecoders[ext]
	if !ok {
		return ErrUnsupportedFormat
	}
	stream, _, err := decode(f)
	if err != nil {
		return err
	}
	return stream.Close()
}
