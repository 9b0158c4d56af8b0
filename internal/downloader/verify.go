package downloader

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/h2non/filetype"
	"github.com/vfaronov/httpheader"
)

// errNotArchive is returned when a mirror served something other than a package.
var errNotArchive = errors.New("downloaded file is not a package archive")

var archiveSuffixes = []string{".pkg.tar.xz", ".pkg.tar.zst", ".pkg.tar.gz"}

// isPackageArchive reports whether the file name is a compressed pacman package.
func isPackageArchive(name string) bool {
	for _, s := range archiveSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// isHTMLResponse catches mirrors and captive portals that answer 200 with an
// error page instead of the file.
func isHTMLResponse(h http.Header) bool {
	mtype, _ := httpheader.ContentType(h)
	return mtype == "text/html" || mtype == "application/xhtml+xml"
}

// verifyArchive sniffs the file header and fails unless it is a known archive.
func verifyArchive(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	head := make([]byte, 262)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return err
	}

	if !filetype.IsArchive(head[:n]) {
		kind, _ := filetype.Match(head[:n])
		return fmt.Errorf("%w (detected %s)", errNotArchive, kind.Extension)
	}
	return nil
}
