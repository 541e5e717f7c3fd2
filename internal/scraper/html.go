package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/rsilvagit/go-airdrop/internal/model"
)

// HTMLSource extracts airdrops from a listing page using CSS selectors.
type HTMLSource struct {
	spec    Spec
	fetcher Fetcher
	now     clock
}

func NewHTMLSource(spec Spec, f Fetcher) *HTMLSource {
	return &HTMLSource{spec: spec, fetcher: f, now: time.Now}
}

func (h *HTMLSource) Name() string {
	return h.spec.Name
}

func (h *HTMLSource) Scrape(ctx context.Context) ([]model.Airdrop, error) {
	resp, err := h.fetcher.Fetch(ctx, h.spec.URL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("%s: parsing HTML: %w", h.spec.Name, err)
	}

	base := resp.URL
	if base == nil {
		base, _ = url.Parse(h.spec.URL)
	}
	return h.extract(doc, base)
}

func (h *HTMLSource) extract(doc *goquery.Document, base *url.URL) ([]model.Airdrop, error) {
	l := h.spec.Layout

	root := doc.Selection
	if l.Container != "" {
		root = doc.Find(l.Container)
		if root.Length() == 0 {
			return nil, fmt.Errorf("%w: %s: container %q not found", ErrExtractionMismatch, h.spec.Name, l.Container)
		}
	}

	items := root.Find(l.Item)
	if items.Length() == 0 {
		return nil, nil
	}
	if h.spec.Limit > 0 && items.Length() > h.spec.Limit {
		items = items.Slice(0, h.spec.Limit)
	}

	var (
		airdrops []model.Airdrop
		named    int
		now      = h.now()
	)
	items.Each(func(_ int, s *goquery.Selection) {
		name := textOf(s, l.Name)
		if name == "" {
			return
		}
		named++

		a := model.Airdrop{
			Name:         name,
			Source:       h.spec.Name,
			Status:       fieldOf(s, l.Status),
			Value:        fieldOf(s, l.Value),
			Link:         linkOf(s, l.Link, base),
			DiscoveredAt: now,
		}
		if !complete(a, l.Required) {
			return
		}
		if h.spec.FreeOnly && !a.IsFree() {
			return
		}
		airdrops = append(airdrops, a)
	})

	if named == 0 {
		return nil, fmt.Errorf("%w: %s: %d item(s) matched %q but none had a name", ErrExtractionMismatch, h.spec.Name, items.Length(), l.Item)
	}
	return airdrops, nil
}

// textOf returns the trimmed text of the first match of sel inside s, or of
// s itself when sel is empty.
func textOf(s *goquery.Selection, sel string) string {
	if sel == "" {
		return strings.TrimSpace(s.Text())
	}
	return strings.TrimSpace(s.Find(sel).First().Text())
}

// fieldOf is textOf for optional fields: an empty selector yields "".
func fieldOf(s *goquery.Selection, sel string) string {
	if sel == "" {
		return ""
	}
	return textOf(s, sel)
}

func linkOf(s *goquery.Selection, sel string, base *url.URL) string {
	target := s
	if sel != "" {
		target = s.Find(sel).First()
		if target.Length() == 0 && s.Is(sel) {
			target = s
		}
	}
	href, ok := target.Attr("href")
	if !ok {
		return ""
	}
	href = strings.TrimSpace(href)
	if href == "" || base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
