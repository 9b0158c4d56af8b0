package utils

import (
	"errors"
	"net/url"
	"strings"
)

// ExpandMirror substitutes the pacman $repo and $arch variables in a mirrorlist
// Server entry.
// Example: https://mirror.example.org/$repo/os/$arch -> https://mirror.example.org/core/os/x86_64
func ExpandMirror(server, repo, arch string) string {
	s := strings.ReplaceAll(server, "$repo", repo)
	s = strings.ReplaceAll(s, "$arch", arch)
	return strings.TrimRight(s, "/")
}

// MirrorURL joins an expanded mirror base and a package filename into a
// download URL. The filename is path-escaped; bases that do not parse as
// absolute URLs return an error.
func MirrorURL(base, filename string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", &url.Error{Op: "parse", URL: base, Err: errNotAbsolute}
	}
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(filename), nil
}

var errNotAbsolute = errors.New("mirror URL is not absolute")
