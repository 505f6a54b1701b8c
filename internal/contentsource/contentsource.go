// Package contentsource implements the ContentSource strategy: a
// polymorphic feed -> RawArticle[] fetch since a cursor time. Two concrete
// variants are wired (RSS, Reddit-style JSON listing), recovered from
// original_source's content_sources/ and sources/reddit_content_source.py,
// since spec.md's distillation implies only one and a single variant would
// leave the "small set of variants" strategy-pattern design note
// (spec.md §9) unexercised.
package contentsource

import (
	"context"
	"net/http"
	"time"

	"contentpulse/internal/models"
)

// Source fetches every article published since the given cursor time. An
// empty/zero cursor means "ask for latest without a lower bound", matching
// the poller's restart behavior of never persisting the cursor (spec.md §4.8).
type Source interface {
	Name() string
	Fetch(ctx context.Context, since time.Time) ([]models.RawArticle, error)
}

// httpClient is shared by both adapters; 30s matches spec.md §5's default
// HTTP-client-to-external-stores timeout, applied here to feed fetches too.
var httpClient = &http.Client{Timeout: 30 * time.Second}

// New selects a concrete Source by kind ("rss" or "reddit").
func New(name, kind, url string) (Source, error) {
	switch kind {
	case "rss":
		return &RSSSource{SourceName: name, FeedURL: url}, nil
	case "reddit":
		return &RedditSource{SourceName: name, ListingURL: url}, nil
	default:
		return nil, unsupportedKindError{kind: kind}
	}
}

type unsupportedKindError struct{ kind string }

func (e unsupportedKindError) Error() string {
	return "contentsource: unsupported kind " + e.kind
}
