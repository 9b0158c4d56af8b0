package downloader

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"

	"golang.org/x/net/proxy"

	"github.com/cnchi/installer/internal/events"
	"github.com/cnchi/installer/internal/utils"
)

// openError means the mirror could not be opened at all, as opposed to a
// stream that broke part way through.
type openError struct {
	URL string
	Err error
}

func (e *openError) Error() string {
	return fmt.Sprintf("error opening %s: %v", e.URL, e.Err)
}

func (e *openError) Unwrap() error { return e.Err }

// NewHTTPClient builds the client used for mirror downloads. There is no
// overall timeout since package files can be large; dial and header timeouts
// catch dead mirrors.
func NewHTTPClient(runtime *RuntimeConfig) *http.Client {
	dialer := &net.Dialer{
		Timeout:   runtime.GetDialTimeout(),
		KeepAlive: KeepAliveDuration,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		IdleConnTimeout:       DefaultIdleConnTimeout,
		TLSHandshakeTimeout:   DefaultTLSHandshakeTimeout,
		ResponseHeaderTimeout: runtime.GetResponseHeaderTimeout(),
	}

	// Configure proxy if runtime config is provided
	if runtime != nil && runtime.ProxyURL != "" {
		parsedURL, err := url.Parse(runtime.ProxyURL)
		if err != nil {
			utils.Warn("Invalid proxy URL %s: %v", runtime.ProxyURL, err)
			transport.Proxy = http.ProxyFromEnvironment
		} else if strings.HasPrefix(parsedURL.Scheme, "socks5") {
			utils.Debug("Using SOCKS5 proxy: %s", runtime.ProxyURL)
			socks, dialErr := proxy.SOCKS5("tcp", parsedURL.Host, nil, dialer)
			if dialErr != nil {
				utils.Warn("Failed to create SOCKS5 dialer: %v", dialErr)
				transport.Proxy = http.ProxyFromEnvironment
			} else {
				transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
					if cd, ok := socks.(proxy.ContextDialer); ok {
						return cd.DialContext(ctx, network, addr)
					}
					return socks.Dial(network, addr)
				}
			}
		} else {
			transport.Proxy = http.ProxyURL(parsedURL)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}

	if runtime != nil && runtime.SkipTLSVerification {
		utils.Warn("TLS verification disabled for mirror downloads")
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &http.Client{
		Timeout:   0,
		Transport: transport,
	}
}

// openMirror issues the GET for one mirror URL.
func (m *Manager) openMirror(ctx context.Context, rawurl string) (*http.Response, error) {
	if rawurl == "" {
		return nil, &openError{URL: rawurl, Err: errors.New("empty URL")}
	}
	parsed, err := url.Parse(rawurl)
	if err != nil {
		return nil, &openError{URL: rawurl, Err: err}
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, &openError{URL: rawurl, Err: errors.New("malformed URL")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return nil, &openError{URL: rawurl, Err: err}
	}
	req.Header.Set("User-Agent", m.Runtime.GetUserAgent())

	resp, err := m.Client.Do(req)
	if err != nil {
		return nil, &openError{URL: rawurl, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		drainAndClose(resp)
		return nil, &openError{URL: rawurl, Err: fmt.Errorf("HTTP %s", resp.Status)}
	}
	if isHTMLResponse(resp.Header) {
		drainAndClose(resp)
		return nil, &openError{URL: rawurl, Err: errors.New("mirror answered with an HTML page")}
	}
	return resp, nil
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*KB))
	_ = resp.Body.Close()
}

// fetchMirror streams one mirror into the working file and, when the stream
// completes, moves it to destPath. Bytes written by a failed attempt stay in
// the working file until the next attempt truncates it.
func (m *Manager) fetchMirror(ctx context.Context, t *Task, rawurl, destPath string) (int64, error) {
	resp, err := m.openMirror(ctx, rawurl)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			utils.Debug("Error closing response body: %v", err)
		}
	}()

	workingPath := destPath + IncompleteSuffix
	outFile, err := os.Create(workingPath)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", workingPath, err)
	}
	closed := false
	defer func() {
		if !closed {
			_ = outFile.Close()
		}
	}()

	state := newProgressState(t.Size, m.Events)
	var written int64
	buf := make([]byte, m.Runtime.GetChunkSize())

	for {
		// Check for context cancellation between chunks
		if err := ctx.Err(); err != nil {
			return written, err
		}

		nr, readErr := resp.Body.Read(buf)
		if nr > 0 {
			nw, writeErr := outFile.Write(buf[0:nr])
			written += int64(nw)
			if writeErr != nil {
				return written, fmt.Errorf("write error: %w", writeErr)
			}
			if nr != nw {
				return written, io.ErrShortWrite
			}
			state.advance(written)
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			return written, fmt.Errorf("read error: %w", readErr)
		}
	}

	if err := outFile.Sync(); err != nil {
		return written, fmt.Errorf("sync error: %w", err)
	}
	if err := outFile.Close(); err != nil {
		return written, fmt.Errorf("close error: %w", err)
	}
	closed = true

	if m.Runtime.checkArchives() && isPackageArchive(t.Filename) {
		if err := verifyArchive(workingPath); err != nil {
			_ = os.Remove(workingPath)
			return written, err
		}
	}

	if err := os.Rename(workingPath, destPath); err != nil {
		// Fallback: copy if rename fails (cross-device)
		if copyErr := copyFile(workingPath, destPath); copyErr != nil {
			return written, fmt.Errorf("failed to finalize file: %w", copyErr)
		}
		_ = os.Remove(workingPath)
	}

	m.Events.Send(events.Percent, 1.0)
	return written, nil
}
