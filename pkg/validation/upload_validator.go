// Package validation covers the upload intake checks: extension allow-list,
// size bound, and filename sanitization. Pixel-level validation of the image
// content belongs to the external image-processing capability and is out of
// scope here.
package validation

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// allowedExtensions is the upload allow-list, lowercase without dots.
var allowedExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"gif":  true,
	"bmp":  true,
	"tiff": true,
}

// AllowedFile reports whether the filename carries an allowed extension.
func AllowedFile(filename string) bool {
	if filename == "" || !strings.Contains(filename, ".") {
		return false
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	return allowedExtensions[ext]
}

// ValidateImageFile checks filename and declared size against the limits.
func ValidateImageFile(filename string, size, maxSize int64) error {
	if !AllowedFile(filename) {
		return fmt.Errorf("file type not allowed, allowed types: %s", allowedList())
	}
	if size > maxSize {
		return fmt.Errorf("file size exceeds maximum allowed size of %dMB", maxSize/(1024*1024))
	}
	return nil
}

// SanitizeFilename strips path components and characters that could be used
// for path traversal or filesystem tricks.
func SanitizeFilename(filename string) string {
	if filename == "" {
		return "upload"
	}

	filename = filepath.Base(filename)

	replacer := strings.NewReplacer(
		"..", "_", "/", "_", `\`, "_", ":", "_",
		"*", "_", "?", "_", `"`, "_", "<", "_", ">", "_", "|", "_",
	)
	filename = replacer.Replace(filename)

	if filename == "" || strings.HasPrefix(filename, ".") {
		filename = "upload_" + filename
	}
	return filename
}

func allowedList() string {
	exts := make([]string, 0, len(allowedExtensions))
	for ext := range allowedExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}
