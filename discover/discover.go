package discover

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	ErrFetch           = errors.New("error fetching datasets page")
	ErrSectionNotFound = errors.New("datasets section not found")
)

// Links fetches the datasets page and returns the CSV links listed under the section
// labelled 'section', in document order. An empty list is not an error.
func Links(ctx context.Context, client *http.Client, page string, section string, timeout time.Duration) ([]string, error) {
	base, err := url.Parse(page)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid page URL '%s' (%v)", ErrFetch, page, err)
	}

	doc, err := fetch(ctx, client, page, timeout)
	if err != nil {
		return nil, err
	}

	container, err := Section(doc, section)
	if err != nil {
		return nil, err
	}

	return CSV(container, base), nil
}

func fetch(ctx context.Context, client *http.Client, page string, timeout time.Duration) (*html.Node, error) {
	if client == nil {
		client = http.DefaultClient
	}

	if timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	rq, err := http.NewRequestWithContext(ctx, http.MethodGet, page, nil)
	if err != nil {
		return nil, fmt.Errorf("%w (%v)", ErrFetch, err)
	}

	response, err := client.Do(rq)
	if err != nil {
		return nil, fmt.Errorf("%w (%v)", ErrFetch, err)
	}

	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		io.Copy(io.Discard, response.Body)
		return nil, fmt.Errorf("%w: %v returned %v", ErrFetch, page, response.Status)
	}

	doc, err := html.Parse(response.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid HTML (%v)", ErrFetch, err)
	}

	return doc, nil
}

// Section locates the content container for a labelled section of the datasets page.
//
// The page lays out each section as
//
//	<h3><strong>label</strong></h3>
//	<div> ... <a href="....csv"> ... </div>
//
// i.e. the first <strong> element containing the label, its enclosing heading and the
// first <div> following the heading. Any deviation from this layout is reported as
// ErrSectionNotFound rather than falling back to a wider search.
func Section(doc *html.Node, label string) (*html.Node, error) {
	label = strings.TrimSpace(label)

	strong := find(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.Strong && strings.Contains(strings.TrimSpace(text(n)), label)
	})

	if strong == nil {
		return nil, fmt.Errorf("%w: no heading for '%s'", ErrSectionNotFound, label)
	}

	var heading *html.Node
	for p := strong.Parent; p != nil; p = p.Parent {
		if isHeading(p) {
			heading = p
			break
		}
	}

	if heading == nil {
		return nil, fmt.Errorf("%w: '%s' is not enclosed in a heading", ErrSectionNotFound, label)
	}

	for s := heading.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode && s.DataAtom == atom.Div {
			return s, nil
		}
	}

	return nil, fmt.Errorf("%w: no content following the '%s' heading", ErrSectionNotFound, label)
}

// CSV returns the absolute URLs of the anchors in the container with an href ending
// in '.csv'. Relative links are resolved against base.
func CSV(container *html.Node, base *url.URL) []string {
	links := []string{}

	walk(container, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			if href, ok := attr(n, "href"); ok {
				href = strings.TrimSpace(href)
				if strings.HasSuffix(href, ".csv") {
					links = append(links, resolve(base, href))
				}
			}
		}

		return false
	})

	return links
}

func resolve(base *url.URL, href string) string {
	u, err := url.Parse(href)
	if err != nil || base == nil {
		return href
	}

	return base.ResolveReference(u).String()
}

func isHeading(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}

	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return true
	}

	return false
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}

	return "", false
}

func text(n *html.Node) string {
	var b strings.Builder

	walk(n, func(n *html.Node) bool {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		return false
	})

	return b.String()
}

// find returns the first node in document order for which f is true.
func find(n *html.Node, f func(*html.Node) bool) *html.Node {
	var found *html.Node

	walk(n, func(n *html.Node) bool {
		if f(n) {
			found = n
			return true
		}
		return false
	})

	return found
}

// walk visits n and its descendants in document order until f returns true.
func walk(n *html.Node, f func(*html.Node) bool) bool {
	if f(n) {
		return true
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if walk(c, f) {
			return true
		}
	}

	return false
}
