package utils

import (
	"path/filepath"
	"strings"
)

// CleanFilename strips the directory, extension and common separator noise
// from an automation-reported filename so it can be compared against the
// filename stored on a submission.
func CleanFilename(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	ext := filepath.Ext(base)
	clean := strings.TrimSuffix(base, ext)
	clean = strings.ReplaceAll(clean, "_", " ")
	clean = strings.ReplaceAll(clean, "-", " ")
	return strings.TrimSpace(clean)
}
