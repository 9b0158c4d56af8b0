// Package pacman generates the package manager configuration used during
// installation and drives pacman against the target root.
package pacman

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultConfPath is where the installation pacman.conf is written.
const DefaultConfPath = "/tmp/pacman.conf"

const (
	archMirrorlist   = "/etc/pacman.d/mirrorlist"
	distroMirrorlist = "/etc/pacman.d/cinnarch-mirrorlist"
)

// Repo is one repository section of pacman.conf.
type Repo struct {
	Name     string
	SigLevel string
	Include  string
}

// Repos returns the repositories enabled for arch, in pacman.conf order.
func Repos(arch string) []Repo {
	repos := []Repo{
		{Name: "core", SigLevel: "PackageRequired", Include: archMirrorlist},
		{Name: "extra", SigLevel: "PackageRequired", Include: archMirrorlist},
		{Name: "community", SigLevel: "PackageRequired", Include: archMirrorlist},
	}
	if arch == "x86_64" {
		repos = append(repos, Repo{Name: "multilib", SigLevel: "PackageRequired", Include: archMirrorlist})
	}
	return append(repos,
		Repo{Name: "cinnarch-core", SigLevel: "PackageRequired", Include: distroMirrorlist},
		Repo{Name: "cinnarch-repo", SigLevel: "PackageRequired", Include: distroMirrorlist},
	)
}

// ConfigText renders pacman.conf for an installation into destDir.
func ConfigText(destDir, arch string) string {
	var b strings.Builder

	b.WriteString("[options]\n")
	b.WriteString("Architecture = auto\n")
	b.WriteString("SigLevel = PackageOptional\n")
	fmt.Fprintf(&b, "CacheDir = %s\n", filepath.Join(destDir, "var/cache/pacman/pkg"))
	fmt.Fprintf(&b, "CacheDir = /packages/core-%s/pkg\n", arch)
	b.WriteString("CacheDir = /packages/core-any/pkg\n\n")

	distro := false
	for _, r := range Repos(arch) {
		if strings.HasPrefix(r.Name, "cinnarch-") && !distro {
			b.WriteString("#### Cinnarch repos start here\n")
			distro = true
		}
		fmt.Fprintf(&b, "[%s]\n", r.Name)
		fmt.Fprintf(&b, "SigLevel = %s\n", r.SigLevel)
		fmt.Fprintf(&b, "Include = %s\n\n", r.Include)
	}
	b.WriteString("#### Cinnarch repos end here\n")
	return b.String()
}

// WriteConfig writes pacman.conf to path, replacing any previous file.
func WriteConfig(path, destDir, arch string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(ConfigText(destDir, arch)), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadIncludes maps each repository section of a pacman.conf to its
// mirrorlist include path.
func ReadIncludes(r io.Reader) (map[string]string, error) {
	includes := make(map[string]string)
	section := ""

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.TrimSuffix(strings.TrimPrefix(line, "["), "]")
			continue
		}
		if section == "" || section == "options" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if ok && strings.TrimSpace(key) == "Include" {
			includes[section] = strings.TrimSpace(value)
		}
	}
	return includes, sc.Err()
}

// ParseMirrorlist returns the Server entries of a mirrorlist in file order.
// Commented-out servers are skipped.
func ParseMirrorlist(r io.Reader) ([]string, error) {
	var servers []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok || strings.TrimSpace(key) != "Server" {
			continue
		}
		if v := strings.TrimSpace(value); v != "" {
			servers = append(servers, v)
		}
	}
	return servers, sc.Err()
}
