package downloader

import (
	"time"
)

// Size constants
const (
	KB = 1024
	MB = 1024 * KB
)

const (
	// ChunkSize is how much is read from a mirror per iteration
	ChunkSize = 8 * KB

	// SyntheticStep is added to the per-item fraction on every chunk when the
	// expected size is unknown. It is an approximation and can pass 1.0.
	SyntheticStep = 0.1

	// IncompleteSuffix is appended to files while downloading
	IncompleteSuffix = ".part"
)

// HTTP Client Tuning
const (
	DefaultIdleConnTimeout       = 90 * time.Second
	DefaultTLSHandshakeTimeout   = 10 * time.Second
	DefaultResponseHeaderTimeout = 30 * time.Second
	DialTimeout                  = 15 * time.Second
	KeepAliveDuration            = 30 * time.Second
)

const defaultUserAgent = "cnchi-installer/1.0 (+pacman)"

// RuntimeConfig holds dynamic settings that can override defaults
type RuntimeConfig struct {
	UserAgent             string
	ProxyURL              string
	SkipTLSVerification   bool
	SkipArchiveCheck      bool
	ChunkSize             int
	DialTimeout           time.Duration
	ResponseHeaderTimeout time.Duration
}

// GetUserAgent returns the configured user agent or the default
func (r *RuntimeConfig) GetUserAgent() string {
	if r == nil || r.UserAgent == "" {
		return defaultUserAgent
	}
	return r.UserAgent
}

// GetChunkSize returns configured value or default
func (r *RuntimeConfig) GetChunkSize() int {
	if r == nil || r.ChunkSize <= 0 {
		return ChunkSize
	}
	return r.ChunkSize
}

// GetDialTimeout returns configured value or default
func (r *RuntimeConfig) GetDialTimeout() time.Duration {
	if r == nil || r.DialTimeout <= 0 {
		return DialTimeout
	}
	return r.DialTimeout
}

// GetResponseHeaderTimeout returns configured value or default
func (r *RuntimeConfig) GetResponseHeaderTimeout() time.Duration {
	if r == nil || r.ResponseHeaderTimeout <= 0 {
		return DefaultResponseHeaderTimeout
	}
	return r.ResponseHeaderTimeout
}

// checkArchives reports whether package payloads should be sniffed
func (r *RuntimeConfig) checkArchives() bool {
	return r == nil || !r.SkipArchiveCheck
}
