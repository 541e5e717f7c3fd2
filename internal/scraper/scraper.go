package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rsilvagit/go-airdrop/internal/httpclient"
	"github.com/rsilvagit/go-airdrop/internal/model"
)

// ErrExtractionMismatch means the fetched page no longer matches the
// configured layout. It is distinct from a well-formed page with no listings,
// which yields an empty slice and a nil error.
var ErrExtractionMismatch = errors.New("scraper: page structure does not match layout")

// Source defines the contract every airdrop listing source must satisfy.
type Source interface {
	// Name returns the configured identifier of this source.
	Name() string

	// Scrape fetches the listing page and extracts candidate airdrops.
	Scrape(ctx context.Context) ([]model.Airdrop, error)
}

// Fetcher retrieves a single URL. *httpclient.Client satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*httpclient.Response, error)
}

// Kind selects the extractor used for a source.
type Kind string

const (
	KindHTML Kind = "html"
	KindFeed Kind = "feed"
)

// Layout holds the CSS selectors used to pull records out of an HTML page.
// Name, Status, Value and Link are evaluated relative to each Item.
// Items missing any field listed in Required are skipped.
type Layout struct {
	Container string   `yaml:"container" json:"container"`
	Item      string   `yaml:"item" json:"item"`
	Name      string   `yaml:"name" json:"name"`
	Status    string   `yaml:"status" json:"status"`
	Value     string   `yaml:"value" json:"value"`
	Link      string   `yaml:"link" json:"link"`
	Required  []string `yaml:"required" json:"required"`
}

// Record fields that may be listed in Layout.Required.
const (
	FieldName   = "name"
	FieldStatus = "status"
	FieldValue  = "value"
	FieldLink   = "link"
)

// complete reports whether a has a non-empty value for every required field.
func complete(a model.Airdrop, required []string) bool {
	for _, f := range required {
		var v string
		switch f {
		case FieldName:
			v = a.Name
		case FieldStatus:
			v = a.Status
		case FieldValue:
			v = a.Value
		case FieldLink:
			v = a.Link
		}
		if v == "" {
			return false
		}
	}
	return true
}

// Spec describes one configured source.
type Spec struct {
	Name     string `yaml:"name" json:"name"`
	Kind     Kind   `yaml:"kind" json:"kind"`
	URL      string `yaml:"url" json:"url"`
	Layout   Layout `yaml:"layout" json:"layout"`
	Limit    int    `yaml:"limit" json:"limit"`
	FreeOnly bool   `yaml:"free_only" json:"free_only"`
	Disabled bool   `yaml:"disabled" json:"disabled"`
}

// Validate checks that the spec can be turned into a Source.
func (s Spec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("source name is empty")
	}
	if strings.TrimSpace(s.URL) == "" {
		return fmt.Errorf("source %q: url is empty", s.Name)
	}
	switch s.Kind {
	case KindHTML:
		if s.Layout.Item == "" {
			return fmt.Errorf("source %q: layout.item selector is required", s.Name)
		}
	case KindFeed:
	default:
		return fmt.Errorf("source %q: unknown kind %q", s.Name, s.Kind)
	}
	if s.Limit < 0 {
		return fmt.Errorf("source %q: limit must be >= 0", s.Name)
	}
	for _, f := range s.Layout.Required {
		switch f {
		case FieldName, FieldStatus, FieldValue, FieldLink:
		default:
			return fmt.Errorf("source %q: unknown required field %q", s.Name, f)
		}
	}
	return nil
}

// DefaultSources returns the built-in listing sources in priority order.
func DefaultSources() []Spec {
	return []Spec{
		{
			Name: "CryptoRank",
			Kind: KindHTML,
			URL:  "https://cryptorank.io/drophunting",
			Layout: Layout{
				Container: "main",
				Item:      "div.airdrop-card",
				Name:      "h3",
				Status:    "span.status",
				Value:     "span.value",
				Link:      "a",
				Required:  []string{FieldName, FieldStatus, FieldValue},
			},
			Limit:    10,
			FreeOnly: true,
		},
		{
			Name: "Airdrops.io",
			Kind: KindHTML,
			URL:  "https://airdrops.io",
			Layout: Layout{
				Container: "main, #content, .site-content",
				Item:      "div.airdrop-item",
				Name:      "h4",
				Link:      "a",
				Required:  []string{FieldName, FieldLink},
			},
			Limit: 10,
		},
		{
			Name:  "Airdrops.io Feed",
			Kind:  KindFeed,
			URL:   "https://airdrops.io/feed/",
			Layout: Layout{
				Required: []string{FieldName, FieldLink},
			},
			Limit: 10,
		},
	}
}

// Registry builds sources from specs, preserving their order. Disabled specs
// are skipped.
func Registry(specs []Spec, f Fetcher) ([]Source, error) {
	sources := make([]Source, 0, len(specs))
	for _, spec := range specs {
		if spec.Disabled {
			continue
		}
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("scraper: %w", err)
		}
		switch spec.Kind {
		case KindHTML:
			sources = append(sources, NewHTMLSource(spec, f))
		case KindFeed:
			sources = append(sources, NewFeedSource(spec, f))
		}
	}
	return sources, nil
}

type clock func() time.Time
