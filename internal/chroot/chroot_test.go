package chroot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	op     string
	target string
}

type fakeMounter struct {
	calls       []call
	mounted     map[string]bool
	failMount   map[string]error
	failUnmount map[string]error
}

func newFakeMounter() *fakeMounter {
	return &fakeMounter{
		mounted:     make(map[string]bool),
		failMount:   make(map[string]error),
		failUnmount: make(map[string]error),
	}
}

func (f *fakeMounter) Mount(source, target, fstype string, flags uintptr) error {
	f.calls = append(f.calls, call{"mount", target})
	if err := f.failMount[filepath.Base(target)]; err != nil {
		return err
	}
	f.mounted[target] = true
	return nil
}

func (f *fakeMounter) Unmount(target string) error {
	f.calls = append(f.calls, call{"unmount", target})
	if err := f.failUnmount[filepath.Base(target)]; err != nil {
		return err
	}
	delete(f.mounted, target)
	return nil
}

func (f *fakeMounter) IsMounted(target string) (bool, error) {
	return f.mounted[target], nil
}

func (f *fakeMounter) ops(op string) []string {
	var out []string
	for _, c := range f.calls {
		if c.op == op {
			out = append(out, filepath.Base(c.target))
		}
	}
	return out
}

func TestMount_CreatesAndMountsInOrder(t *testing.T) {
	target := t.TempDir()
	m := newFakeMounter()
	env := New(m)

	var chmods []string
	env.chmod = func(path string, mode os.FileMode) error {
		assert.Equal(t, os.FileMode(0555), mode)
		chmods = append(chmods, filepath.Base(path))
		return nil
	}

	state, err := env.Mount(target)
	require.NoError(t, err)

	assert.Equal(t, []string{"sys", "proc", "dev"}, m.ops("mount"))
	assert.Equal(t, []string{"sys", "proc"}, chmods)
	assert.Len(t, state.Mounted, 3)
	for _, d := range []string{"sys", "proc", "dev"} {
		info, err := os.Stat(filepath.Join(target, d))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestMount_PartialFailureReportsMounted(t *testing.T) {
	m := newFakeMounter()
	m.failMount["proc"] = errors.New("permission denied")
	env := New(m)
	env.chmod = func(string, os.FileMode) error { return nil }

	state, err := env.Mount(t.TempDir())
	require.Error(t, err)
	assert.Equal(t, []string{"sys"}, baseNames(state.Mounted))
	assert.NotContains(t, m.ops("mount"), "dev", "mounting stops at the first failure")
}

func TestMount_AlreadyMountedIsReused(t *testing.T) {
	target := t.TempDir()
	m := newFakeMounter()
	m.mounted[filepath.Join(target, "proc")] = true
	env := New(m)
	env.chmod = func(string, os.FileMode) error { return nil }

	state, err := env.Mount(target)
	require.NoError(t, err)
	assert.Equal(t, []string{"sys", "dev"}, m.ops("mount"))
	assert.Len(t, state.Mounted, 3)
}

func TestUnmount_ReverseOrder(t *testing.T) {
	m := newFakeMounter()
	env := New(m)
	env.chmod = func(string, os.FileMode) error { return nil }

	state, err := env.Mount(t.TempDir())
	require.NoError(t, err)

	errs := env.Unmount(state)
	assert.Empty(t, errs)
	assert.Equal(t, []string{"dev", "proc", "sys"}, m.ops("unmount"))
	assert.Empty(t, m.mounted)
}

func TestUnmount_AttemptsAllDespiteFailure(t *testing.T) {
	m := newFakeMounter()
	m.failUnmount["dev"] = errors.New("device busy")
	env := New(m)
	env.chmod = func(string, os.FileMode) error { return nil }

	state, err := env.Mount(t.TempDir())
	require.NoError(t, err)

	errs := env.Unmount(state)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "device busy")
	assert.Equal(t, []string{"dev", "proc", "sys"}, m.ops("unmount"), "every filesystem must be attempted")
}

func TestUnmount_EmptyState(t *testing.T) {
	m := newFakeMounter()
	assert.Empty(t, New(m).Unmount(State{}))
	assert.Empty(t, m.calls)
	assert.True(t, State{}.Empty())
}

func baseNames(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, filepath.Base(p))
	}
	return out
}
