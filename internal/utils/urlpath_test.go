package utils

import (
	"testing"
)

func TestExpandMirror(t *testing.T) {
	tests := []struct {
		name     string
		server   string
		repo     string
		arch     string
		expected string
	}{
		{
			name:     "Standard arch mirror",
			server:   "https://mirror.example.org/$repo/os/$arch",
			repo:     "core",
			arch:     "x86_64",
			expected: "https://mirror.example.org/core/os/x86_64",
		},
		{
			name:     "Trailing slash trimmed",
			server:   "http://repo.example.com/$repo/$arch/",
			repo:     "cinnarch-core",
			arch:     "i686",
			expected: "http://repo.example.com/cinnarch-core/i686",
		},
		{
			name:     "No variables",
			server:   "https://static.example.com/pkgs",
			repo:     "extra",
			arch:     "x86_64",
			expected: "https://static.example.com/pkgs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpandMirror(tt.server, tt.repo, tt.arch)
			if got != tt.expected {
				t.Errorf("ExpandMirror() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestMirrorURL(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		filename string
		expected string
		wantErr  bool
	}{
		{
			name:     "Simple join",
			base:     "https://mirror.example.org/core/os/x86_64",
			filename: "linux-3.9-1-x86_64.pkg.tar.xz",
			expected: "https://mirror.example.org/core/os/x86_64/linux-3.9-1-x86_64.pkg.tar.xz",
		},
		{
			name:     "Epoch colon kept",
			base:     "https://mirror.example.org/extra/os/x86_64/",
			filename: "pkg-1:2.0-1-any.pkg.tar.xz",
			expected: "https://mirror.example.org/extra/os/x86_64/pkg-1:2.0-1-any.pkg.tar.xz",
		},
		{
			name:     "Relative base rejected",
			base:     "mirror.example.org/core",
			filename: "a.pkg.tar.xz",
			wantErr:  true,
		},
		{
			name:     "Malformed base rejected",
			base:     "http://[::1",
			filename: "a.pkg.tar.xz",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MirrorURL(tt.base, tt.filename)
			if (err != nil) != tt.wantErr {
				t.Fatalf("MirrorURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.expected {
				t.Errorf("MirrorURL() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestConvertBytesToHumanReadable(t *testing.T) {
	if got := ConvertBytesToHumanReadable(-1); got != "unknown" {
		t.Errorf("negative size = %q, want unknown", got)
	}
	if got := ConvertBytesToHumanReadable(0); got != "0 B" {
		t.Errorf("zero size = %q, want 0 B", got)
	}
}
