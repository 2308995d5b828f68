package domain

import (
	"fmt"
	"path"
	"strings"
)

// NormalizePath converts p into the canonical relative form used for every
// comparison between local and remote paths: no leading "./" or "/", no
// trailing slash, no empty or ".." segments. p must already use forward
// slashes; spaces and backslashes are ordinary name bytes.
func NormalizePath(p string) (string, error) {
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q escapes the root", ErrInvalidPath, p)
		}
	}

	p = path.Clean("/" + p)
	p = strings.TrimPrefix(p, "/")
	if p == "" || p == "." {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	return p, nil
}

// JoinPath joins normalized relative segments; an empty or "." dir is the root
func JoinPath(dir, name string) string {
	if dir == "" || dir == "." {
		return name
	}
	if name == "" {
		return dir
	}
	return path.Join(dir, name)
}

// RelativeTo returns p relative to root, both normalized.
// An empty root returns p unchanged.
func RelativeTo(root, p string) string {
	if root == "" || root == "." {
		return p
	}
	return strings.TrimPrefix(strings.TrimPrefix(p, root), "/")
}
