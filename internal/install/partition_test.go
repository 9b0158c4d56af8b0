package install

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cnchi/installer/internal/fstab"
)

func TestAutoPartitioner(t *testing.T) {
	script := filepath.Join(t.TempDir(), "auto_partition.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/bash\n"), 0755))

	var gotName string
	var gotArgs []string
	p := AutoPartitioner{Run: func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		return nil, nil
	}}

	err := p.Setup(context.Background(), Config{AutoPartitionScript: script, RootDevice: "/dev/sda"})
	require.NoError(t, err)
	assert.Equal(t, "/bin/bash", gotName)
	assert.Equal(t, []string{script, "/dev/sda"}, gotArgs)
}

func TestAutoPartitioner_Failures(t *testing.T) {
	script := filepath.Join(t.TempDir(), "auto_partition.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/bash\n"), 0755))
	failing := AutoPartitioner{Run: func(context.Context, string, ...string) ([]byte, error) {
		return []byte("sfdisk: cannot open /dev/sda"), errors.New("exit status 1")
	}}

	t.Run("Missing script", func(t *testing.T) {
		err := failing.Setup(context.Background(), Config{AutoPartitionScript: "/nonexistent/auto.sh", RootDevice: "/dev/sda"})
		assert.ErrorIs(t, err, ErrNoScript)
	})
	t.Run("No root device", func(t *testing.T) {
		err := failing.Setup(context.Background(), Config{AutoPartitionScript: script})
		assert.ErrorIs(t, err, ErrNoRootDevice)
	})
	t.Run("Script error", func(t *testing.T) {
		err := failing.Setup(context.Background(), Config{AutoPartitionScript: script, RootDevice: "/dev/sda"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot open /dev/sda")
	})
}

type recordingMounter struct {
	mounted map[string]string
	err     error
}

func (m *recordingMounter) Mount(source, target, fstype string, _ uintptr) error {
	if m.err != nil {
		return m.err
	}
	m.mounted[target] = source + ":" + fstype
	return nil
}

func (m *recordingMounter) Unmount(target string) error {
	delete(m.mounted, target)
	return nil
}

func (m *recordingMounter) IsMounted(target string) (bool, error) {
	_, ok := m.mounted[target]
	return ok, nil
}

func TestAdvancedPartitioner(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "install")
	m := &recordingMounter{mounted: map[string]string{}}
	cfg := Config{
		DestDir: dest,
		Plan: fstab.MountPlan{
			Devices: map[string]string{"/": "/dev/sdb2"},
			FSTypes: map[string]string{"/dev/sdb2": "btrfs"},
		},
	}

	require.NoError(t, AdvancedPartitioner{Mounter: m}.Setup(context.Background(), cfg))

	assert.Equal(t, "/dev/sdb2:btrfs", m.mounted[dest])
	for _, d := range advancedDirs {
		assert.DirExists(t, filepath.Join(dest, d))
	}

	// A second run reuses the mounted root
	m.err = errors.New("already mounted")
	assert.NoError(t, AdvancedPartitioner{Mounter: m}.Setup(context.Background(), cfg))
}

func TestAdvancedPartitioner_Failures(t *testing.T) {
	m := &recordingMounter{mounted: map[string]string{}, err: errors.New("wrong fs type")}

	err := AdvancedPartitioner{Mounter: m}.Setup(context.Background(), Config{DestDir: t.TempDir()})
	assert.ErrorIs(t, err, ErrNoRootDevice)

	cfg := Config{
		DestDir: filepath.Join(t.TempDir(), "install"),
		Plan:    fstab.MountPlan{Devices: map[string]string{"/": "/dev/sdb2"}},
	}
	err = AdvancedPartitioner{Mounter: m}.Setup(context.Background(), cfg)
	assert.ErrorContains(t, err, "wrong fs type")
}

func TestNoopPartitioner(t *testing.T) {
	p := PartitionerFor("easy", nil)
	assert.NoError(t, p.Setup(context.Background(), Config{}))
}

func TestCopyTree(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "private-keys-v1.d"), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(src, "pubring.gpg"), []byte("pub"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "private-keys-v1.d", "k.key"), []byte("sec"), 0600))
	require.NoError(t, os.Symlink("pubring.gpg", filepath.Join(src, "pubring.kbx")))

	dst := filepath.Join(t.TempDir(), "gnupg")
	require.NoError(t, copyTree(src, dst))

	data, err := os.ReadFile(filepath.Join(dst, "private-keys-v1.d", "k.key"))
	require.NoError(t, err)
	assert.Equal(t, "sec", string(data))
	info, err := os.Stat(filepath.Join(dst, "private-keys-v1.d", "k.key"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	link, err := os.Readlink(filepath.Join(dst, "pubring.kbx"))
	require.NoError(t, err)
	assert.Equal(t, "pubring.gpg", link)

	assert.ErrorIs(t, copyTree(src, dst), fs.ErrExist, "an existing keyring is never merged")
}
