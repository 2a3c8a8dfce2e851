package scraper

import (
	"net/url"
	"os"
	"strings"
)

// isLocal reports whether target names a file rather than an http(s) URL.
func isLocal(target string) bool {
	if strings.HasPrefix(target, "file://") {
		return true
	}
	u, err := url.Parse(target)
	if err != nil {
		return true
	}
	return u.Scheme != "http" && u.Scheme != "https"
}

func readLocal(target string) ([]byte, error) {
	if strings.HasPrefix(target, "file://") {
		u, err := url.Parse(target)
		if err != nil {
			return nil, err
		}
		target = u.Path
	}
	return os.ReadFile(target)
}
