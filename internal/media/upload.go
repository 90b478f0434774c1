package media

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrUnsupportedType is returned for upload extensions outside the
// allow-list.
var ErrUnsupportedType = errors.New("unsupported file type")

// allowedExtensions is the upload allow-list.
var allowedExtensions = map[string]bool{
	".mp3":  true,
	".mp4":  true,
	".wav":  true,
	".webm": true,
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// SanitizeFilename replaces everything outside [a-zA-Z0-9_-] with
// underscores and strips leading/trailing underscores.
func SanitizeFilename(name string) string {
	return strings.Trim(unsafeChars.ReplaceAllString(name, "_"), "_")
}

// UploadFilename validates the original filename against the extension
// allow-list and returns a sanitized name preserving the extension.
func UploadFilename(original string) (string, error) {
	ext := strings.ToLower(filepath.Ext(original))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}

	base := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	sanitized := SanitizeFilename(base)
	if sanitized == "" {
		sanitized = "upload"
	}
	return sanitized + ext, nil
}
