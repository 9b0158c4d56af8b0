package testutil

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
)

// xzMagic is the header every .xz stream starts with.
var xzMagic = []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}

// XZPayload returns size bytes that sniff as an xz archive.
func XZPayload(size int) []byte {
	if size < len(xzMagic) {
		size = len(xzMagic)
	}
	data := make([]byte, size)
	_, _ = rand.Read(data)
	copy(data, xzMagic)
	return data
}

// FileExists reports whether path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// VerifyFileSize checks that path is exactly size bytes long.
func VerifyFileSize(path string, size int64) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() != size {
		return fmt.Errorf("%s: expected %d bytes, got %d", filepath.Base(path), size, info.Size())
	}
	return nil
}

// VerifyFileContent checks that path holds exactly want.
func VerifyFileContent(path string, want []byte) error {
	got, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if !bytes.Equal(got, want) {
		return fmt.Errorf("%s: content mismatch (%d bytes, want %d)", filepath.Base(path), len(got), len(want))
	}
	return nil
}
