package scraper

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/rsilvagit/go-airdrop/internal/model"
)

// FeedSource extracts airdrops from an RSS or Atom listing feed.
type FeedSource struct {
	spec    Spec
	fetcher Fetcher
	parser  *gofeed.Parser
	now     clock
}

func NewFeedSource(spec Spec, f Fetcher) *FeedSource {
	return &FeedSource{spec: spec, fetcher: f, parser: gofeed.NewParser(), now: time.Now}
}

func (fs *FeedSource) Name() string {
	return fs.spec.Name
}

func (fs *FeedSource) Scrape(ctx context.Context) ([]model.Airdrop, error) {
	resp, err := fs.fetcher.Fetch(ctx, fs.spec.URL)
	if err != nil {
		return nil, err
	}

	feed, err := fs.parser.Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrExtractionMismatch, fs.spec.Name, err)
	}

	items := feed.Items
	if fs.spec.Limit > 0 && len(items) > fs.spec.Limit {
		items = items[:fs.spec.Limit]
	}

	now := fs.now()
	var airdrops []model.Airdrop
	for _, it := range items {
		name := strings.TrimSpace(it.Title)
		if name == "" {
			continue
		}
		a := model.Airdrop{
			Name:         name,
			Source:       fs.spec.Name,
			Link:         strings.TrimSpace(it.Link),
			DiscoveredAt: now,
		}
		if len(it.Categories) > 0 {
			a.Status = strings.TrimSpace(it.Categories[0])
		}
		if !complete(a, fs.spec.Layout.Required) {
			continue
		}
		if fs.spec.FreeOnly && !a.IsFree() {
			continue
		}
		airdrops = append(airdrops, a)
	}
	return airdrops, nil
}
