// Package analyzer implements spec.md §4.9's ContentAnalyzer: a
// MessageHandler enriching a ContentMessage via LLM and storing the
// result as a ProcessedArticle. Grounded on original_source's
// content_processor/content_analyzer.py for the prompt shape and the
// tolerant-JSON-schema parsing rules.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"contentpulse/internal/llm"
	"contentpulse/internal/models"
)

const (
	enrichmentTemperature = 0.3
	contentTruncateLimit  = 3000
)

const systemPrompt = `You are a sports news analyst. Given an article's title and content, ` +
	`produce a JSON object with exactly these keys: "summary" (a concise one-paragraph summary), ` +
	`"entities" (an array of {"name","type"} where type is one of player, team, league, sport, venue), ` +
	`"categories" (an array of short topical tags), and "sentiment" (one of positive, negative, neutral). ` +
	`Respond with JSON only, no surrounding text.`

// ArticleWriter is the narrow ArticleStore dependency ContentAnalyzer needs.
type ArticleWriter interface {
	StoreArticle(ctx context.Context, article models.ProcessedArticle) error
}

// ContentAnalyzer enriches raw articles into ProcessedArticles via an LLM
// and persists them.
type ContentAnalyzer struct {
	provider llm.Provider
	store    ArticleWriter
	log      *slog.Logger
}

// New builds a ContentAnalyzer.
func New(provider llm.Provider, store ArticleWriter, log *slog.Logger) *ContentAnalyzer {
	return &ContentAnalyzer{provider: provider, store: store, log: log}
}

type enrichment struct {
	Summary    string          `json:"summary"`
	Entities   []entityPayload `json:"entities"`
	Categories []string        `json:"categories"`
	Sentiment  string          `json:"sentiment"`
}

type entityPayload struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Normalized string `json:"normalized"`
}

// Handle implements consumer.MessageHandler: decode the envelope, enrich,
// store. Every failure (LLM, malformed JSON, store) returns false; the
// message is still acked by the consumer since content ingestion is
// best-effort (spec.md §4.9).
func (a *ContentAnalyzer) Handle(ctx context.Context, payload []byte) bool {
	envelope, err := models.DecodeEnvelope(payload)
	if err != nil {
		a.log.Error("decode content message failed", "component", "analyzer", "error", err)
		return false
	}
	msg, ok := envelope.(models.ContentMessage)
	if !ok {
		a.log.Error("unexpected envelope type for analyzer", "component", "analyzer")
		return false
	}

	article := msg.RawContent

	userPrompt := buildUserPrompt(article)
	raw, err := a.provider.Complete(ctx, systemPrompt, userPrompt, enrichmentTemperature)
	if err != nil {
		a.log.Error("llm enrichment failed", "component", "analyzer", "source", article.Source, "source_id", article.SourceID, "error", err)
		return false
	}

	enr, err := parseEnrichment(raw)
	if err != nil {
		a.log.Error("parse enrichment response failed", "component", "analyzer", "error", err)
		return false
	}

	processed := models.ProcessedArticle{
		Source:          article.Source,
		SourceID:        article.SourceID,
		SourceURL:       article.SourceURL,
		Title:           article.Title,
		Content:         article.Content,
		Summary:         enr.Summary,
		Entities:        enr.entities(),
		Categories:      enr.Categories,
		Sentiment:       models.Sentiment(enr.sentiment()),
		PublishedAt:     article.PublishedAt,
		IngestedAt:      time.Now().UTC(),
		ProcessedAt:     time.Now().UTC(),
		ProcessingModel: a.provider.Name(),
		Metadata:        article.Metadata,
	}

	if err := a.store.StoreArticle(ctx, processed); err != nil {
		a.log.Error("store article failed", "component", "analyzer", "source", article.Source, "source_id", article.SourceID, "error", err)
		return false
	}

	a.log.Info("article processed", "component", "analyzer", "source", article.Source, "source_id", article.SourceID)
	return true
}

func buildUserPrompt(article models.RawArticle) string {
	content := article.Content
	if len(content) > contentTruncateLimit {
		content = content[:contentTruncateLimit]
	}
	var b strings.Builder
	b.WriteString("Title: ")
	b.WriteString(article.Title)
	b.WriteString("\n\nContent:\n")
	b.WriteString(content)
	return b.String()
}

// parseEnrichment tolerates a missing summary/entities/categories/sentiment
// key, defaulting to "" / [] / "neutral" per spec.md §4.9 step 3.
func parseEnrichment(raw string) (enrichment, error) {
	var enr enrichment
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &enr); err != nil {
		return enrichment{}, fmt.Errorf("analyzer: parse enrichment json: %w", err)
	}
	if enr.Sentiment == "" {
		enr.Sentiment = string(models.SentimentNeutral)
	}
	return enr, nil
}

// extractJSONObject trims any leading/trailing prose an LLM may add
// despite the system prompt asking for JSON-only, by slicing to the
// outermost brace pair.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return raw
	}
	return raw[start : end+1]
}

func (e enrichment) sentiment() string {
	switch e.Sentiment {
	case string(models.SentimentPositive), string(models.SentimentNegative), string(models.SentimentNeutral):
		return e.Sentiment
	default:
		return string(models.SentimentNeutral)
	}
}

func (e enrichment) entities() []models.ArticleEntity {
	out := make([]models.ArticleEntity, 0, len(e.Entities))
	for _, ep := range e.Entities {
		normalized := ep.Normalized
		if normalized == "" {
			normalized = models.Normalize(ep.Name)
		}
		out = append(out, models.ArticleEntity{
			Name:       ep.Name,
			Type:       models.EntityType(ep.Type),
			Normalized: normalized,
		})
	}
	return out
}
