// Reddit realization of Source. original_source authenticates against
// Reddit's OAuth API via PRAW; no Go Reddit client exists anywhere in the
// retrieved pack, so this talks to Reddit's public JSON listing endpoint
// (a subreddit's ".json" URL) directly, parsed with stdlib encoding/json,
// preserving the same RawArticle shape and metadata fields
// (subreddit/score/num_comments/author) reddit_content_source.py builds.
package contentsource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"contentpulse/internal/models"
)

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				ID          string  `json:"id"`
				Title       string  `json:"title"`
				Selftext    string  `json:"selftext"`
				URL         string  `json:"url"`
				Permalink   string  `json:"permalink"`
				CreatedUTC  float64 `json:"created_utc"`
				Author      string  `json:"author"`
				Score       int     `json:"score"`
				NumComments int     `json:"num_comments"`
				Subreddit   string  `json:"subreddit"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// RedditSource fetches one subreddit listing URL.
type RedditSource struct {
	SourceName string
	ListingURL string
}

func (s *RedditSource) Name() string { return s.SourceName }

// Fetch downloads the listing and returns submissions posted strictly
// after since.
func (s *RedditSource) Fetch(ctx context.Context, since time.Time) ([]models.RawArticle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.ListingURL, nil)
	if err != nil {
		return nil, fmt.Errorf("contentsource: reddit request: %w", err)
	}
	req.Header.Set("User-Agent", "contentpulse/1.0")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contentsource: reddit fetch %s: %w", s.ListingURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("contentsource: reddit read body: %w", err)
	}

	var listing redditListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("contentsource: reddit parse: %w", err)
	}

	articles := make([]models.RawArticle, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		d := child.Data
		created := time.Unix(int64(d.CreatedUTC), 0).UTC()
		if !since.IsZero() && !created.After(since) {
			continue
		}

		content := d.Selftext
		if content == "" {
			content = d.URL
		}

		articles = append(articles, models.RawArticle{
			Source:      "reddit",
			SourceID:    d.ID,
			SourceURL:   "https://reddit.com" + d.Permalink,
			Title:       d.Title,
			Content:     content,
			PublishedAt: created,
			Metadata: map[string]any{
				"subreddit":    d.Subreddit,
				"score":        d.Score,
				"num_comments": d.NumComments,
				"author":       d.Author,
			},
		})
	}

	return articles, nil
}
