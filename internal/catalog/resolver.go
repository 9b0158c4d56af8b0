package catalog

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode"

	"github.com/cnchi/installer/internal/utils"
)

// Catalog tags understood by the selection policy.
const (
	TagBase       = "base_system"
	TagUvesafb    = "uvesafb"
	TagNTP        = "ntp"
	TagATI        = "ati"
	TagNvidia     = "nvidia"
	TagIntel      = "intel"
	TagVirtualBox = "virtualbox"
	TagVMware     = "vmware"
	TagVIA        = "via"
	TagBroadcom   = "broadcom"
	TagChinese    = "chinese"
	TagGrub       = "grub"
)

// FilesystemTags are matched against the detected filesystem types. A tag
// matches any type it prefixes, so "ext" covers ext2, ext3 and ext4.
var FilesystemTags = []string{"ntfs", "btrfs", "nilfs2", "ext", "reiserfs", "xfs", "jfs", "vfat"}

// ErrNoBaseSystem is returned when the catalog lacks the base group.
var ErrNoBaseSystem = errors.New("catalog has no base_system packages")

// Hardware is what the probe found on the running machine.
type Hardware struct {
	KernelCmdline string
	Graphics      string   // graphics card model descriptions
	Wireless      string   // wireless chipset descriptions
	FSTypes       []string // filesystem types present on any block device
	Arch          string
}

// Options are the user choices that influence selection.
type Options struct {
	UseNTP       bool
	LanguageCode string
}

// HardwareProbe detects the machine's hardware.
type HardwareProbe interface {
	Detect(ctx context.Context) (Hardware, error)
}

// Selection is the result of matching a catalog against a machine.
type Selection struct {
	Tags     []string // matched tags, in selection order
	Packages []string // package names, order preserved, may contain duplicates
}

// Select applies the selection policy. It has no side effects.
func Select(c *Catalog, hw Hardware, opts Options) Selection {
	var sel Selection
	include := func(tag string) {
		sel.Tags = append(sel.Tags, tag)
		sel.Packages = append(sel.Packages, c.Packages(tag)...)
	}

	include(TagBase)

	if strings.Contains(hw.KernelCmdline, "uvesafb") {
		include(TagUvesafb)
	}
	if opts.UseNTP {
		include(TagNTP)
	}

	// Vendors are not exclusive; hybrid graphics match more than one.
	gfx := words(hw.Graphics)
	if gfx["ati"] || (gfx["amd"] && gfx["radeon"]) {
		include(TagATI)
	}
	if gfx["nvidia"] {
		include(TagNvidia)
	}
	if gfx["intel"] || gfx["lenovo"] {
		include(TagIntel)
	}
	if gfx["virtualbox"] {
		include(TagVirtualBox)
	}
	if gfx["vmware"] {
		include(TagVMware)
	}
	if gfx["via"] {
		include(TagVIA)
	}

	if words(hw.Wireless)["broadcom"] {
		include(TagBroadcom)
	}

	for _, tag := range FilesystemTags {
		if hasFSType(hw.FSTypes, tag) {
			include(tag)
		}
	}

	if opts.LanguageCode == "zh_TW" || opts.LanguageCode == "zh_CN" {
		include(TagChinese)
	}

	include(TagGrub)
	return sel
}

// words lowercases s and splits it on anything that is not a letter or digit.
func words(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		set[w] = true
	}
	return set
}

func hasFSType(types []string, tag string) bool {
	for _, t := range types {
		if strings.HasPrefix(strings.ToLower(t), tag) {
			return true
		}
	}
	return false
}

// Dedup drops repeated names, keeping the first occurrence.
func Dedup(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Resolver fetches the catalog and selects packages for this machine.
type Resolver struct {
	URL    string
	Client *http.Client
}

// NewResolver returns a resolver for url; an empty url uses DefaultURL.
func NewResolver(url string, client *http.Client) *Resolver {
	if url == "" {
		url = DefaultURL
	}
	return &Resolver{URL: url, Client: client}
}

// Resolve returns the package set. Any fetch, parse or probe failure is
// returned; installing without the base group is never attempted.
func (r *Resolver) Resolve(ctx context.Context, probe HardwareProbe, opts Options) ([]string, error) {
	c, err := Fetch(ctx, r.Client, r.URL)
	if err != nil {
		return nil, err
	}
	if len(c.Packages(TagBase)) == 0 {
		return nil, ErrNoBaseSystem
	}

	hw, err := probe.Detect(ctx)
	if err != nil {
		return nil, err
	}

	sel := Select(c, hw, opts)
	utils.Info("Selected catalog groups: %s", strings.Join(sel.Tags, ", "))
	utils.Debug("Resolved %d packages", len(sel.Packages))
	return sel.Packages, nil
}
