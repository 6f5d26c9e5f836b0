// Package tree provides path helpers for mapping the remote folder tree onto storage keys.
package tree

import (
	"path"
	"strings"
)

// SafeName turns a remote file or folder name into a single path segment.
// Separators are replaced with "_", and names that would resolve to the
// parent or current directory become "_".
func SafeName(name string) string {
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	name = strings.ReplaceAll(name, "\x00", "_")
	switch strings.TrimSpace(name) {
	case "", ".", "..":
		return "_"
	}
	return name
}

// ProjectDirName returns the directory name used for a project's mirror.
func ProjectDirName(projectName string) string {
	return SafeName(projectName)
}

// BuildChildPath constructs a child relative path from parent + name.
// An empty parent denotes the project root.
func BuildChildPath(parentPath, name string) string {
	if parentPath == "" {
		return SafeName(name)
	}
	return parentPath + "/" + SafeName(name)
}

// Key joins a base directory, a relative folder path and an optional file name
// into a slash separated storage key.
func Key(base, relPath, name string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{base, relPath} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if name != "" {
		parts = append(parts, SafeName(name))
	}
	return path.Join(parts...)
}

// Display renders a relative path for humans, with "/" for the root.
func Display(relPath string) string {
	if relPath == "" {
		return "/"
	}
	return "/" + relPath
}

// Depth counts the folders between the project root and relPath.
func Depth(relPath string) int {
	if relPath == "" {
		return 0
	}
	return strings.Count(relPath, "/") + 1
}
