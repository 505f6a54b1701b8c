// Package models holds the data types shared across every service:
// raw and processed articles, request/response envelopes, and the
// request state record.
package models

import "time"

// RawArticle is the immutable input carried once through the broker.
// It is never re-stored in raw form.
type RawArticle struct {
	Source      string            `json:"source"`
	SourceID    string            `json:"source_id"`
	SourceURL   string            `json:"source_url"`
	Title       string            `json:"title"`
	Content     string            `json:"content"`
	PublishedAt time.Time         `json:"published_at"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
}

// EntityType enumerates the closed set of entity kinds an analyzer may extract.
type EntityType string

const (
	EntityPlayer EntityType = "player"
	EntityTeam   EntityType = "team"
	EntityLeague EntityType = "league"
	EntitySport  EntityType = "sport"
	EntityVenue  EntityType = "venue"
)

// ArticleEntity is an entity mentioned in an article, joinable by Normalized.
type ArticleEntity struct {
	Name       string     `json:"name"`
	Type       EntityType `json:"type"`
	Normalized string     `json:"normalized"`
}

// Sentiment enumerates the closed set of sentiment labels.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// ProcessedArticle is the enriched artifact persisted in the ArticleStore.
// (source, source_id) is unique; stores must upsert on that composite key.
type ProcessedArticle struct {
	Source          string          `json:"source"`
	SourceID        string          `json:"source_id"`
	SourceURL       string          `json:"source_url"`
	Title           string          `json:"title"`
	Content         string          `json:"content"`
	Summary         string          `json:"summary"`
	Entities        []ArticleEntity `json:"entities"`
	Categories      []string        `json:"categories"`
	Sentiment       Sentiment       `json:"sentiment"`
	PublishedAt     time.Time       `json:"published_at"`
	IngestedAt      time.Time       `json:"ingested_at"`
	ProcessedAt     time.Time       `json:"processed_at"`
	ProcessingModel string          `json:"processing_model"`
	Metadata        map[string]any  `json:"metadata,omitempty"`
}

// Normalize lowercases a name and replaces spaces with underscores,
// the fallback used when an LLM-extracted entity omits "normalized".
func Normalize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r == ' ':
			out = append(out, '_')
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		default:
			out = append(out, r)
		}
	}
	return string(out)
}
