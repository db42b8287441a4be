package source

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"

	"github.com/sells-group/portfolio-jobs/internal/fetcher"
)

// softNotFoundMarker appears in the title when a board silently serves its
// company index instead of a missing company page.
const softNotFoundMarker = " Companies |"

// PageStatus is the settled state of one jobs-board URL.
type PageStatus string

const (
	PageOK          PageStatus = "ok"
	PageMissing     PageStatus = "missing"
	PageSoftMissing PageStatus = "soft_missing"
)

// PageResult is the outcome of checking one URL.
type PageResult struct {
	URL        string
	Status     PageStatus
	HTTPStatus int
	Title      string
}

// PageChecker confirms that company pages exist on a board.
type PageChecker struct {
	f fetcher.Fetcher
}

// NewPageChecker returns a checker that fetches through f.
func NewPageChecker(f fetcher.Fetcher) *PageChecker {
	return &PageChecker{f: f}
}

// Check fetches url once and classifies it. An HTTP status of 400 or above
// is missing; a title carrying the board's index marker is a soft 404.
func (p *PageChecker) Check(ctx context.Context, url string) (*PageResult, error) {
	status, body, err := p.f.Page(ctx, url)
	if err != nil {
		return nil, eris.Wrapf(ErrUpstreamFetch, "page %s: %v", url, err)
	}
	defer body.Close() //nolint:errcheck

	res := &PageResult{URL: url, HTTPStatus: status}
	if status >= http.StatusBadRequest {
		res.Status = PageMissing
		return res, nil
	}

	title, err := pageTitle(body)
	if err != nil {
		return nil, eris.Wrapf(err, "page %s: parse", url)
	}
	res.Title = title
	res.Status = PageOK
	if strings.Contains(title, softNotFoundMarker) {
		res.Status = PageSoftMissing
	}
	return res, nil
}

// pageTitle returns the text of the first <title> element.
func pageTitle(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}
	var find func(*html.Node) (string, bool)
	find = func(n *html.Node) (string, bool) {
		if n.Type == html.ElementNode && n.Data == "title" {
			var b strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					b.WriteString(c.Data)
				}
			}
			return strings.TrimSpace(b.String()), true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if t, ok := find(c); ok {
				return t, true
			}
		}
		return "", false
	}
	title, _ := find(doc)
	return title, nil
}
