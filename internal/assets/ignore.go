package assets

import (
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/openmined/pagesync/internal/utils"
	gitignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFileName is an optional gitignore-style file at the deploy root.
const IgnoreFileName = ".assetsignore"

var defaultIgnorePatterns = []string{
	// served by the platform, never as assets
	"_worker.js",
	"_redirects",
	"_headers",
	"_routes.json",
	"functions",
	// OS-specific
	"**/.DS_Store",
	// vcs & dependency managers
	"**/.git",
	"**/node_modules",
	// ourselves
	IgnoreFileName,
}

// IgnoreList decides which root-relative paths stay out of a deploy.
// A path is ignored when it, or any directory above it, matches a pattern.
type IgnoreList struct {
	baseDir  string
	patterns []string
	user     *gitignore.GitIgnore
}

func NewIgnoreList(baseDir string, extra ...string) *IgnoreList {
	patterns := make([]string, 0, len(defaultIgnorePatterns)+len(extra))
	patterns = append(patterns, defaultIgnorePatterns...)
	patterns = append(patterns, extra...)
	return &IgnoreList{baseDir: baseDir, patterns: patterns}
}

// Load validates the patterns and reads the root ignore file if present.
func (s *IgnoreList) Load() error {
	for _, p := range s.patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("assets: bad ignore pattern %q", p)
		}
	}

	if s.baseDir == "" {
		return nil
	}

	ignorePath := filepath.Join(s.baseDir, IgnoreFileName)
	if !utils.FileExists(ignorePath) {
		return nil
	}

	user, err := gitignore.CompileIgnoreFile(ignorePath)
	if err != nil {
		return &FilesystemError{Op: "read ignore file", Path: ignorePath, Err: err}
	}
	s.user = user
	slog.Debug("assets", "op", "load ignore file", "path", ignorePath)
	return nil
}

// ShouldIgnore accepts a root-relative path with either separator.
func (s *IgnoreList) ShouldIgnore(relPath string) bool {
	rel := strings.TrimPrefix(filepath.ToSlash(relPath), "/")
	if rel == "" || rel == "." {
		return false
	}

	for p := rel; p != "." && p != "/"; p = path.Dir(p) {
		if s.matches(p) {
			return true
		}
	}
	return false
}

func (s *IgnoreList) matches(rel string) bool {
	for _, pattern := range s.patterns {
		// patterns are validated in Load, a bad one simply never matches
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return s.user != nil && s.user.MatchesPath(rel)
}
