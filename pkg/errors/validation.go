package errors

import (
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxLabelLength bounds a node label in runes.
const MaxLabelLength = 4096

// ValidateSnapshotName validates the name a snapshot is stored under.
// Names become file names, Redis keys and table keys, so they must be a
// simple base name.
//
// Validation rules:
//   - Name cannot be empty
//   - Maximum length of 255 characters
//   - No control characters or null bytes
//   - No path separators or traversal sequences
//   - No hidden files (leading dot)
func ValidateSnapshotName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "snapshot name cannot be empty")
	}

	if len(name) > 255 {
		return New(ErrCodeInvalidName, "snapshot name too long (max 255 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidName, "snapshot name contains invalid control characters")
		}
	}

	if strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return New(ErrCodeInvalidName, "snapshot name cannot contain path separators")
	}

	if strings.Contains(name, "..") {
		return New(ErrCodeInvalidName, "snapshot name contains invalid characters: %q", "..")
	}

	if strings.HasPrefix(name, ".") {
		return New(ErrCodeInvalidName, "snapshot name cannot be a hidden file")
	}

	return nil
}

// ValidateLabel validates a node label. Newlines and tabs are allowed since
// multi-line labels drive the layout height estimate.
func ValidateLabel(label string) error {
	if !utf8.ValidString(label) {
		return New(ErrCodeInvalidInput, "label is not valid UTF-8")
	}

	if utf8.RuneCountInString(label) > MaxLabelLength {
		return New(ErrCodeInvalidInput, "label too long (max %d characters)", MaxLabelLength)
	}

	for _, r := range label {
		if r == '\n' || r == '\t' {
			continue
		}
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "label contains invalid control characters")
		}
	}

	return nil
}
