// Package pathutil validates request paths before they reach a filesystem.
package pathutil

import (
	"io/fs"
	"path"
	"strings"
)

// HasDotSegments reports whether any path segment is "." or "..".
func HasDotSegments(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

// FileName maps a URL path onto an fs.FS file name. Paths that are empty,
// carry NUL bytes or backslashes, contain dot segments, or have no
// extension are rejected, as is any */index.html.
func FileName(urlPath string) (string, bool) {
	if urlPath == "" || urlPath == "/" {
		return "", false
	}
	if strings.ContainsAny(urlPath, "\x00\\") || HasDotSegments(urlPath) {
		return "", false
	}
	name := strings.TrimPrefix(path.Clean(urlPath), "/")
	if path.Ext(name) == "" || path.Base(name) == "index.html" || !fs.ValidPath(name) {
		return "", false
	}
	return name, true
}
