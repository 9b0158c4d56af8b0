//go:build !linux

package privilege

import (
	"errors"
	"os"
)

func geteuid() int { return os.Geteuid() }

func seteuid(int) error { return errors.New("seteuid is not supported on this platform") }
