// Package fetcher downloads the statistical workbooks published by the
// Petroleum Association of Japan into a source directory.
package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dbnomics-fetchers/paj-fetcher/config"
	"github.com/dbnomics-fetchers/paj-fetcher/logging"
	"golang.org/x/net/html"
	"golang.org/x/text/encoding/japanese"
)

// The start page links every workbook under this path, as
// /english/statis/data/<index>/<filename>.
const dataPathPrefix = "/english/statis/data/"

// Workbook links are tagged "[xls]" in the anchor text and carry their last
// update date in a sibling span, e.g. "(2020/06/25 update)".
var updateDateRe = regexp.MustCompile(`\(([^\s)]+) [^)]*\)`)

// Resource is one downloadable workbook found on the start page.
type Resource struct {
	ID    string // <date>_<basename>, stable across runs of the same revision
	Index string // subdirectory of the source dir (the dataset index on the site)
	URL   string
	Name  string // file name on disk: <date>_<filename>
}

// Catalog scrapes the PAJ statistics start page for workbook resources.
type Catalog struct {
	client    *http.Client
	startPage string
	userAgent string
}

func NewCatalog(cfg *config.Config) *Catalog {
	return &Catalog{
		client: &http.Client{
			Timeout: time.Duration(cfg.HTTPTimeoutSeconds) * time.Second,
		},
		startPage: cfg.StartPage,
		userAgent: cfg.UserAgent,
	}
}

// Resources fetches the start page and returns every workbook listed on it.
func (c *Catalog) Resources(ctx context.Context) ([]Resource, error) {
	logging.Info("Downloading files from start page...", "url", c.startPage)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.startPage, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build start page request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch start page %s: %w", c.startPage, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn("Failed to close start page body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("start page %s returned status %d", c.startPage, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read start page body: %w", err)
	}

	// The site serves Shift_JIS pages; decode only when the body is not
	// already UTF-8.
	if !utf8.Valid(body) {
		decoded, err := japanese.ShiftJIS.NewDecoder().Bytes(body)
		if err != nil {
			return nil, fmt.Errorf("failed to decode start page as Shift_JIS: %w", err)
		}
		body = decoded
	}

	base, err := url.Parse(c.startPage)
	if err != nil {
		return nil, fmt.Errorf("invalid start page URL %s: %w", c.startPage, err)
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse start page HTML: %w", err)
	}

	return c.collectResources(doc, base), nil
}

// collectResources walks every <li> under <ul class="icon_list"> and builds
// a Resource from each workbook anchor.
func (c *Catalog) collectResources(doc *html.Node, base *url.URL) []Resource {
	var resources []Resource

	for _, list := range findElements(doc, "ul", "icon_list") {
		for item := list.FirstChild; item != nil; item = item.NextSibling {
			if item.Type != html.ElementNode || item.Data != "li" {
				continue
			}
			resource, ok := c.resourceFromListItem(item, base)
			if !ok {
				continue
			}
			resources = append(resources, resource)
		}
	}

	logging.Info("Start page scraped", "resources", len(resources))
	return resources
}

func (c *Catalog) resourceFromListItem(item *html.Node, base *url.URL) (Resource, bool) {
	anchor := firstElement(item, "a")
	if anchor == nil || !strings.Contains(textContent(anchor), "[xls]") {
		return Resource{}, false
	}

	span := firstElement(item, "span")
	if span == nil {
		logging.Debug("Workbook link without update span, skipping")
		return Resource{}, false
	}
	m := updateDateRe.FindStringSubmatch(textContent(span))
	if m == nil {
		logging.Debug("Workbook link with unparseable update date, skipping", "span", textContent(span))
		return Resource{}, false
	}
	updateDate := strings.ReplaceAll(m[1], "/", "-")

	href := attrValue(anchor, "href")
	rel := strings.TrimPrefix(href, dataPathPrefix)
	if rel == href {
		logging.Debug("Workbook link outside the data path, skipping", "href", href)
		return Resource{}, false
	}
	parts := strings.SplitN(rel, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || strings.Contains(parts[1], "/") {
		logging.Debug("Workbook link with unexpected path shape, skipping", "href", href)
		return Resource{}, false
	}
	index, filename := parts[0], parts[1]

	ref, err := url.Parse(href)
	if err != nil {
		logging.Debug("Workbook link with invalid href, skipping", "href", href, "error", err)
		return Resource{}, false
	}

	basename := strings.SplitN(filename, ".", 2)[0]
	return Resource{
		ID:    updateDate + "_" + basename,
		Index: index,
		URL:   base.ResolveReference(ref).String(),
		Name:  updateDate + "_" + filename,
	}, true
}

// HTML helpers

// findElements returns every element with the given tag, filtered by class
// when class is non-empty.
func findElements(doc *html.Node, tag, class string) []*html.Node {
	var found []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			if class == "" || hasClass(n, class) {
				found = append(found, n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return found
}

// firstElement returns the first descendant element with the given tag.
func firstElement(n *html.Node, tag string) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == tag {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return found
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attrValue(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
