package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CachePathValidator checks the location the page cache lives in.
type CachePathValidator struct {
	MaxPathLength int
}

func NewCachePathValidator() *CachePathValidator {
	return &CachePathValidator{MaxPathLength: 4096}
}

// ValidateAndExpand expands a leading ~ and returns an absolute, cleaned
// path. Control characters are rejected.
func (v *CachePathValidator) ValidateAndExpand(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if v.MaxPathLength > 0 && len(path) > v.MaxPathLength {
		return "", fmt.Errorf("path too long (max %d characters)", v.MaxPathLength)
	}
	for _, r := range path {
		if r < 0x20 || r == 0x7f {
			return "", fmt.Errorf("path contains control characters")
		}
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	return abs, nil
}

// ExpandPath is ValidateAndExpand with the default validator, returning the
// input unchanged when it cannot be expanded.
func ExpandPath(path string) string {
	expanded, err := NewCachePathValidator().ValidateAndExpand(path)
	if err != nil {
		return path
	}
	return expanded
}
