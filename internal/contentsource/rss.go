// RSS realization of Source, grounded on original_source's
// rss_content_source.py: one feed per source, source_id derived from the
// sha256 of the item's guid (else link, else title), since-cursor filtering on the parsed
// publish date, per-item errors isolated so one bad entry does not drop
// the feed. Go has no RSS/Atom parser anywhere in the retrieved pack
// (confirmed by grep across every go.mod), so this parses the feed's raw
// XML with stdlib encoding/xml rather than reaching for feedparser's
// absence.
package contentsource

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"contentpulse/internal/models"
)

// rssFeed covers the RSS 2.0 item fields this source reads; unknown
// elements are ignored by encoding/xml by default.
type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	Author      string `xml:"author"`
}

// rssDateLayouts covers the date formats RFC 822-style pubDate elements
// commonly use in the wild.
var rssDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	time.RFC3339,
}

func parseRSSDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range rssDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Now().UTC()
}

// RSSSource fetches one RSS feed URL for one named source.
type RSSSource struct {
	SourceName string
	FeedURL    string
}

func (s *RSSSource) Name() string { return s.SourceName }

// Fetch downloads and parses the feed, returning items published strictly
// after since (a zero since means "no lower bound").
func (s *RSSSource) Fetch(ctx context.Context, since time.Time) ([]models.RawArticle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.FeedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("contentsource: rss request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contentsource: rss fetch %s: %w", s.FeedURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("contentsource: rss read body: %w", err)
	}

	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("contentsource: rss parse: %w", err)
	}

	articles := make([]models.RawArticle, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		published := parseRSSDate(item.PubDate)
		if !since.IsZero() && !published.After(since) {
			continue
		}

		idSource := item.GUID
		if idSource == "" {
			idSource = item.Link
		}
		if idSource == "" {
			idSource = item.Title
		}
		sum := sha256.Sum256([]byte(idSource))
		sourceID := hex.EncodeToString(sum[:])[:16]

		articles = append(articles, models.RawArticle{
			Source:      s.SourceName,
			SourceID:    sourceID,
			SourceURL:   item.Link,
			Title:       item.Title,
			Content:     item.Description,
			PublishedAt: published,
			Metadata: map[string]any{
				"feed_url": s.FeedURL,
				"author":   item.Author,
			},
		})
	}

	return articles, nil
}
