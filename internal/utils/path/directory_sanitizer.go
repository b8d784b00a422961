package pathutils

import (
	"path/filepath"
	"strings"
)

// DirectoryPathSanitizer normalizes single directory path inputs consistently
// across commands.
type DirectoryPathSanitizer struct {
	homeExpander *HomeExpander
}

// NewDirectoryPathSanitizer constructs a DirectoryPathSanitizer with default behavior.
func NewDirectoryPathSanitizer() *DirectoryPathSanitizer {
	return NewDirectoryPathSanitizerWithExpander(nil)
}

// NewDirectoryPathSanitizerWithExpander constructs a DirectoryPathSanitizer using the provided expander.
func NewDirectoryPathSanitizerWithExpander(homeExpander *HomeExpander) *DirectoryPathSanitizer {
	resolvedExpander := homeExpander
	if resolvedExpander == nil {
		resolvedExpander = NewHomeExpander()
	}
	return &DirectoryPathSanitizer{homeExpander: resolvedExpander}
}

// Sanitize trims whitespace, expands the user's home directory, and cleans the
// resulting path. The empty string passes through unchanged so callers can
// detect unset values.
func (sanitizer *DirectoryPathSanitizer) Sanitize(candidatePath string) string {
	trimmedCandidate := strings.TrimSpace(candidatePath)
	if len(trimmedCandidate) == 0 {
		return ""
	}

	expander := NewHomeExpander()
	if sanitizer != nil && sanitizer.homeExpander != nil {
		expander = sanitizer.homeExpander
	}

	expandedPath := expander.Expand(trimmedCandidate)
	if len(expandedPath) == 0 {
		return ""
	}
	return filepath.Clean(expandedPath)
}
