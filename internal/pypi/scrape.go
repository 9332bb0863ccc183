package pypi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

const hostedFilesHost = "files.pythonhosted.org"

// scrapeChecksum is the second tier: the project's release page carries a
// download link per artifact and a copy-to-clipboard affordance holding its
// SHA-256. Extraction runs a CSS pass first and an XPath pass over the same
// structure when the CSS pass comes back empty.
func (c *Client) scrapeChecksum(ctx context.Context, pkg, version, suffix string) (string, error) {
	url := fmt.Sprintf("%s/%s/%s/", c.pageURL, pkg, version)
	resp, err := c.get(ctx, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPackageLookup, err)
	}

	archive := fmt.Sprintf("%s-%s.%s", pkg, version, suffix)

	if sum := scrapeWithCSS(body, archive); sum != "" {
		return sum, nil
	}
	if sum := scrapeWithXPath(body, archive); sum != "" {
		return sum, nil
	}
	return "", fmt.Errorf("release page has no checksum for %s", archive)
}

// scrapeWithCSS finds the download anchor for the archive and reads the
// clipboard attribute from its enclosing table row.
func scrapeWithCSS(body []byte, archive string) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var sum string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !strings.Contains(href, hostedFilesHost) || !strings.Contains(href, archive) {
			return true
		}
		row := a.Closest("tr")
		if row.Length() == 0 {
			row = a.Parent()
		}
		sum, _ = row.Find("[data-clipboard-text]").First().Attr("data-clipboard-text")
		return sum == ""
	})
	return sum
}

// scrapeWithXPath is the second extraction pass. It climbs further from the
// anchor than the CSS pass does, which recovers layouts where the clipboard
// affordance sits outside the anchor's immediate parent.
func scrapeWithXPath(body []byte, archive string) string {
	doc, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	nodes, err := htmlquery.QueryAll(doc, "//a[@href]")
	if err != nil {
		return ""
	}

	for _, a := range nodes {
		href := htmlquery.SelectAttr(a, "href")
		if !strings.Contains(href, hostedFilesHost) || !strings.Contains(href, archive) {
			continue
		}
		if sum := clipboardTextNear(a); sum != "" {
			return sum
		}
	}
	return ""
}

// clipboardTextNear searches the anchor's enclosing elements, nearest first,
// for a descendant carrying data-clipboard-text.
func clipboardTextNear(a *html.Node) string {
	scope := a
	for i := 0; i < 4 && scope.Parent != nil; i++ {
		scope = scope.Parent
		el := htmlquery.FindOne(scope, `.//*[@data-clipboard-text]`)
		if el == nil {
			continue
		}
		if sum := htmlquery.SelectAttr(el, "data-clipboard-text"); sum != "" {
			return sum
		}
	}
	return ""
}
