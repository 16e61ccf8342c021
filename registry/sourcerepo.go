package registry

import (
	"fmt"
	"strings"
)

const githubPrefix = "https://github.com/"

// SourceRepository derives the metadata.json repository entry for a source
// URL. URLs hosted on GitHub yield "github:<owner>/<repo>" taken from the
// first two path segments; any other URL yields "".
func SourceRepository(url string) (string, error) {
	if !strings.HasPrefix(url, githubPrefix) {
		return "", nil
	}
	parts := strings.Split(url, "/")
	if len(parts) < 5 || parts[3] == "" || parts[4] == "" {
		return "", fmt.Errorf("%w: %q: expected https://github.com/<owner>/<repo>/...", ErrInvalidSourceURL, url)
	}
	return "github:" + parts[3] + "/" + parts[4], nil
}

// RepositoryAllows reports whether url is covered by one of the allowlist
// entries. "github:owner/repo" entries match URLs under
// https://github.com/owner/repo/; other entries are plain URL prefixes.
func RepositoryAllows(repository []string, url string) bool {
	for _, entry := range repository {
		prefix := entry
		if rest, ok := strings.CutPrefix(entry, "github:"); ok {
			prefix = githubPrefix + rest + "/"
		}
		if strings.HasPrefix(url, prefix) {
			return true
		}
	}
	return false
}
