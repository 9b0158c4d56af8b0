// Package catalog fetches the package catalog and selects the packages that
// match the machine being installed.
package catalog

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultURL is where the catalog is published.
const DefaultURL = "http://install.cinnarch.com/packages.xml"

const pkgElement = "pkgname"

// ErrEmptyCatalog is returned for a document without any package entry.
var ErrEmptyCatalog = errors.New("catalog has no packages")

// FetchError wraps failures reaching or reading the catalog endpoint.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch catalog %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Catalog maps a feature tag to its package names in document order.
type Catalog struct {
	groups map[string][]string
	order  []string
}

// Packages returns the package names listed under every element named tag.
func (c *Catalog) Packages(tag string) []string {
	if c == nil {
		return nil
	}
	return c.groups[tag]
}

// Tags returns every element name that contains package entries, in the
// order first seen.
func (c *Catalog) Tags() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.order...)
}

func (c *Catalog) add(tag, pkg string) {
	if _, ok := c.groups[tag]; !ok {
		c.order = append(c.order, tag)
	}
	c.groups[tag] = append(c.groups[tag], pkg)
}

// Parse reads a catalog document. Each <pkgname> leaf counts towards every
// enclosing element, so a group can be looked up at any nesting level.
func Parse(r io.Reader) (*Catalog, error) {
	c := &Catalog{groups: make(map[string][]string)}
	dec := xml.NewDecoder(r)

	var stack []string
	var text strings.Builder
	total := 0

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse catalog: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name.Local)
			text.Reset()
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("parse catalog: unexpected </%s>", t.Name.Local)
			}
			stack = stack[:len(stack)-1]
			if t.Name.Local != pkgElement {
				continue
			}
			name := strings.TrimSpace(text.String())
			text.Reset()
			if name == "" {
				continue
			}
			for _, tag := range stack {
				c.add(tag, name)
			}
			total++
		}
	}

	if len(stack) != 0 {
		return nil, fmt.Errorf("parse catalog: unclosed <%s>", stack[len(stack)-1])
	}
	if total == 0 {
		return nil, ErrEmptyCatalog
	}
	return c, nil
}

// Fetch downloads and parses the catalog at url.
func Fetch(ctx context.Context, client *http.Client, url string) (*Catalog, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("HTTP %s", resp.Status)}
	}

	c, err := Parse(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	return c, nil
}
