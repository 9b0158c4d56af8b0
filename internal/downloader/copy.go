package downloader

import (
	"io"
	"os"

	"github.com/cnchi/installer/internal/utils"
)

// copyFile copies src to dst. dst must not exist yet: an existing file yields
// an error satisfying errors.Is(err, fs.ErrExist), a missing src one
// satisfying errors.Is(err, fs.ErrNotExist).
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if err := in.Close(); err != nil {
			utils.Debug("Error closing input file: %v", err)
		}
	}()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}

	buf := make([]byte, 1024*1024)
	if _, err := io.CopyBuffer(out, in, buf); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}
