// Package assets implements the AssetPathGuard (spec §4.14): resolving
// a caller-supplied asset path against a set of configured search
// directories, with symlink-escape and traversal defenses.
package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentworld/control-plane/pkg/apierrors"
)

// Options configures one Guard instance.
type Options struct {
	// SearchDirs are probed in order for relative paths.
	SearchDirs []string
	// ExtensionAllowList, if non-empty, restricts accepted file
	// extensions (case-insensitive, leading-dot form e.g. ".usd").
	ExtensionAllowList []string
	// AllowAbsolute permits caller-supplied absolute paths (default
	// deny per spec §4.14).
	AllowAbsolute bool
	// MaxSizeBytes caps the resolved file's size; 0 means unlimited.
	MaxSizeBytes int64
}

// Guard resolves and validates asset paths within configured search
// directories.
type Guard struct {
	opts          Options
	canonicalDirs []string
}

// New builds a Guard, canonicalizing each search directory up front so
// every Resolve call compares against a stable real path.
func New(opts Options) (*Guard, error) {
	canon := make([]string, 0, len(opts.SearchDirs))
	for _, dir := range opts.SearchDirs {
		real, err := filepath.EvalSymlinks(dir)
		if err != nil {
			return nil, fmt.Errorf("assets: search directory %q: %w", dir, err)
		}
		canon = append(canon, real)
	}
	return &Guard{opts: opts, canonicalDirs: canon}, nil
}

// Resolve validates path, following spec §4.14's ordered checks. For a
// relative path it returns the canonical real location found under a
// search directory; an allowed absolute path is returned as given,
// without symlink resolution.
func (g *Guard) Resolve(path string) (string, error) {
	if err := g.validateSyntax(path); err != nil {
		return "", err
	}

	if filepath.IsAbs(path) || isWindowsDriveAbs(path) {
		if !g.opts.AllowAbsolute {
			return "", apierrors.NewError(apierrors.CodePathTraversal, "absolute asset paths are not permitted", nil)
		}
		return g.validateResolved(path, path)
	}

	var lastErr error
	for _, dir := range g.opts.SearchDirs {
		candidate := filepath.Join(dir, path)
		real, err := g.canonicalWithinDir(dir, candidate)
		if err != nil {
			lastErr = err
			continue
		}
		return g.validateResolved(candidate, real)
	}
	if lastErr != nil {
		return "", lastErr
	}
	return "", apierrors.NewError(apierrors.CodeNotFound, fmt.Sprintf("asset %q not found in any search directory", path), nil)
}

// validateSyntax rejects the lexical patterns spec §4.14 bans
// regardless of where resolution ends up: parent-directory traversal
// and embedded NUL bytes.
func (g *Guard) validateSyntax(path string) error {
	if path == "" {
		return apierrors.NewError(apierrors.CodeMissingParameter, "asset path must not be empty", nil)
	}
	if strings.Contains(path, "\x00") {
		return apierrors.NewError(apierrors.CodePathTraversal, "asset path contains a NUL byte", nil)
	}
	if hasTraversalSegment(path) {
		return apierrors.NewError(apierrors.CodePathTraversal, "asset path must not contain '..'", nil)
	}
	return nil
}

func hasTraversalSegment(path string) bool {
	normalized := strings.ReplaceAll(path, "\\", "/")
	for _, seg := range strings.Split(normalized, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

// isWindowsDriveAbs reports whether path begins with a drive letter
// (e.g. "C:\") — always denied unless absolute paths are allowed
// (spec §4.14).
func isWindowsDriveAbs(path string) bool {
	if len(path) < 2 {
		return false
	}
	c := path[0]
	return path[1] == ':' && ((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'))
}

// canonicalWithinDir resolves candidate's real path and asserts it
// falls under dir's canonical real path (the symlink-escape defense:
// spec §4.14 "assert it has the canonical search directory as a prefix
// followed by the directory separator").
func (g *Guard) canonicalWithinDir(dir, candidate string) (string, error) {
	canonicalDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return "", apierrors.NewError(apierrors.CodeNotFound, fmt.Sprintf("search directory %q is unavailable", dir), err)
	}
	real, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		return "", apierrors.NewError(apierrors.CodeNotFound, fmt.Sprintf("asset %q does not exist", candidate), err)
	}
	if real != canonicalDir && !strings.HasPrefix(real, canonicalDir+string(filepath.Separator)) {
		return "", apierrors.NewError(apierrors.CodePathTraversal, "resolved asset escapes its search directory", nil)
	}
	return real, nil
}

// validateResolved performs the extension, regular-file, readability,
// and size checks against the already-escape-checked real path.
func (g *Guard) validateResolved(displayPath, realPath string) (string, error) {
	if len(g.opts.ExtensionAllowList) > 0 && !extensionAllowed(realPath, g.opts.ExtensionAllowList) {
		return "", apierrors.NewError(apierrors.CodeInvalidParameter, fmt.Sprintf("asset %q does not have an allowed extension", displayPath), nil)
	}

	info, err := os.Stat(realPath)
	if err != nil {
		return "", apierrors.NewError(apierrors.CodeNotFound, fmt.Sprintf("asset %q does not exist", displayPath), err)
	}
	if !info.Mode().IsRegular() {
		return "", apierrors.NewError(apierrors.CodeInvalidParameter, fmt.Sprintf("asset %q is not a regular file", displayPath), nil)
	}
	if f, err := os.Open(realPath); err != nil {
		return "", apierrors.NewError(apierrors.CodeInvalidParameter, fmt.Sprintf("asset %q is not readable", displayPath), err)
	} else {
		_ = f.Close()
	}
	if g.opts.MaxSizeBytes > 0 && info.Size() > g.opts.MaxSizeBytes {
		return "", apierrors.NewError(apierrors.CodeInvalidParameter, fmt.Sprintf("asset %q exceeds maximum size of %d bytes", displayPath, g.opts.MaxSizeBytes), nil)
	}
	return realPath, nil
}

func extensionAllowed(path string, allowList []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range allowList {
		if strings.ToLower(allowed) == ext {
			return true
		}
	}
	return false
}
