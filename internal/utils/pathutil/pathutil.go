package pathutil

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ExpandPath expands the path using the user's home directory.
// If the path starts with "~", it is replaced with the user's home directory.
func ExpandPath(p string) (string, error) {
	if strings.HasPrefix(p, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}

		p = filepath.Join(homeDir, p[1:])
	}

	return p, nil
}

// ObjectKey joins the given segments into a forward-slash object key,
// dropping empty segments and stray slashes.
func ObjectKey(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		s = strings.Trim(s, "/")
		if s != "" {
			parts = append(parts, s)
		}
	}

	return path.Join(parts...)
}
