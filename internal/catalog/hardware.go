package catalog

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"

	"github.com/cnchi/installer/internal/utils"
)

// CommandRunner runs an external command and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// SystemProbe detects hardware of the running machine with hwinfo, blkid and
// the kernel's own reports. A tool that is missing or fails leaves its field
// empty; selection then simply skips the corresponding tags.
type SystemProbe struct {
	Run         CommandRunner
	CmdlinePath string
	// Partitions lists mounted filesystem types; nil uses gopsutil.
	Partitions func(ctx context.Context) ([]string, error)
}

// NewSystemProbe returns a probe wired to the real system.
func NewSystemProbe() *SystemProbe {
	return &SystemProbe{
		Run:         execRunner,
		CmdlinePath: "/proc/cmdline",
		Partitions:  mountedFSTypes,
	}
}

// Detect gathers every hardware input used by Select.
func (p *SystemProbe) Detect(ctx context.Context) (Hardware, error) {
	var hw Hardware
	if err := ctx.Err(); err != nil {
		return hw, err
	}

	if data, err := os.ReadFile(p.CmdlinePath); err == nil {
		hw.KernelCmdline = strings.TrimSpace(string(data))
	} else {
		utils.Warn("Cannot read kernel command line: %v", err)
	}

	if out, err := p.Run(ctx, "hwinfo", "--gfxcard"); err == nil {
		hw.Graphics = modelLines(out)
	} else {
		utils.Warn("Cannot detect graphics card: %v", err)
	}

	if out, err := p.Run(ctx, "hwinfo", "--wlan", "--short"); err == nil {
		hw.Wireless = string(out)
	} else {
		utils.Warn("Cannot detect wireless chipset: %v", err)
	}

	types := make(map[string]struct{})
	if out, err := p.Run(ctx, "blkid", "-c", "/dev/null", "-o", "value", "-s", "TYPE"); err == nil {
		for _, f := range strings.Fields(string(out)) {
			types[f] = struct{}{}
		}
	} else {
		utils.Warn("Cannot list filesystem types: %v", err)
	}
	if p.Partitions != nil {
		if mounted, err := p.Partitions(ctx); err == nil {
			for _, f := range mounted {
				types[f] = struct{}{}
			}
		} else {
			utils.Debug("Cannot list mounted partitions: %v", err)
		}
	}
	for f := range types {
		hw.FSTypes = append(hw.FSTypes, f)
	}
	sort.Strings(hw.FSTypes)

	hw.Arch = Arch()

	utils.Debug("Detected graphics %q, filesystems %v, arch %s", hw.Graphics, hw.FSTypes, hw.Arch)
	return hw, nil
}

// modelLines keeps the "Model:" lines of hwinfo output.
func modelLines(out []byte) string {
	var models []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "Model:") {
			models = append(models, strings.TrimSpace(strings.TrimPrefix(line, "Model:")))
		}
	}
	return strings.Join(models, "\n")
}

func mountedFSTypes(_ context.Context) ([]string, error) {
	parts, err := disk.Partitions(false) // false = only physical devices
	if err != nil {
		return nil, err
	}
	types := make([]string, 0, len(parts))
	for _, p := range parts {
		types = append(types, p.Fstype)
	}
	return types, nil
}

// Arch returns the running kernel's machine architecture, e.g. x86_64.
func Arch() string {
	arch, err := host.KernelArch()
	if err != nil {
		utils.Warn("Cannot detect architecture: %v", err)
		return ""
	}
	return arch
}
