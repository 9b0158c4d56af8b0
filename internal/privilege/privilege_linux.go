//go:build linux

package privilege

import "golang.org/x/sys/unix"

func geteuid() int { return unix.Geteuid() }

// seteuid changes only the effective uid; real and saved ids stay put so
// the saved root id can raise privileges again.
func seteuid(uid int) error { return unix.Setresuid(-1, uid, -1) }
