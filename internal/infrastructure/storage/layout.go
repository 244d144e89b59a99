package storage

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.\-_]`)

// SanitizeFileName keeps the base name and replaces anything unsafe with '_'
func SanitizeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimLeft(unsafeChars.ReplaceAllString(name, "_"), ".")
	if name == "" {
		return "file"
	}
	return name
}

// AttachmentPath returns a unique relative path for a request's upload
func AttachmentPath(requestID int64, fileName string) string {
	return filepath.Join("requests", fmt.Sprint(requestID), uuid.NewString()[:8]+"-"+SanitizeFileName(fileName))
}
