// Package queryengine implements spec.md §4.10's QueryEngine: a
// MessageHandler running stage update -> intent parse -> retrieval
// (structured with full-text fallback) -> synthesis -> terminal state
// write. Grounded on original_source's
// query_engine/query_engine_orchestrator.py, whose INTENT_PROMPT and
// SYNTHESIS_PROMPT are carried through near-verbatim (same structured
// shape, same retrieval/fallback order, same failure handling).
package queryengine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"contentpulse/internal/articlestore"
	"contentpulse/internal/llm"
	"contentpulse/internal/models"
)

const (
	intentTemperature     = 0.2
	synthesisTemperature  = 0.5
	retrievalLimit        = 20
	sourcesLimit          = 5
	synthesisArticleCap   = 10
	rawContentFallbackLen = 500
	noArticlesAnswer      = "I couldn't find any relevant articles to answer your question."
)

const intentPromptTemplate = `Parse this sports query and return a JSON object with:
- "entities": Array of normalized entity strings to search (e.g. ["manchester_united", "cristiano_ronaldo"])
- "categories": Array of category strings (e.g. ["transfer", "injury", "match_result"])
- "entity_type": If the query asks for a specific type of entity, set this to "player"|"team"|"league"|"sport"|"venue", otherwise null
- "date_context": "recent" | "today" | "this_week" | "this_month" | null
- "search_terms": A text search query string for full-text search

Query: %s

Return ONLY valid JSON, no markdown.`

const synthesisPromptTemplate = `Based on the following sports articles, answer the user's question.
Be concise, factual, and cite your sources by mentioning the article titles.

User question: %s

Articles:
%s

Provide a clear, well-structured answer.`

// StateStore is the narrow dependency QueryEngine needs.
type StateStore interface {
	Update(ctx context.Context, id string, patch map[string]any) ([]byte, error)
}

// ArticleSearcher is the narrow ArticleStore dependency QueryEngine needs.
type ArticleSearcher interface {
	QueryArticles(ctx context.Context, q articlestore.ArticleQuery) ([]models.ProcessedArticle, error)
	SearchArticles(ctx context.Context, text string, limit int) ([]models.ProcessedArticle, error)
}

// QueryEngine answers one QueryMessage at a time.
type QueryEngine struct {
	state    StateStore
	articles ArticleSearcher
	provider llm.Provider
	model    string
	log      *slog.Logger
}

// New builds a QueryEngine.
func New(state StateStore, articles ArticleSearcher, provider llm.Provider, model string, log *slog.Logger) *QueryEngine {
	return &QueryEngine{state: state, articles: articles, provider: provider, model: model, log: log}
}

type intent struct {
	Entities    []string `json:"entities"`
	Categories  []string `json:"categories"`
	EntityType  string   `json:"entity_type"`
	DateContext string   `json:"date_context"`
	SearchTerms string   `json:"search_terms"`
}

// Handle implements consumer.MessageHandler.
func (q *QueryEngine) Handle(ctx context.Context, payload []byte) bool {
	start := time.Now()

	envelope, err := models.DecodeEnvelope(payload)
	if err != nil {
		q.log.Error("decode query message failed", "component", "queryengine", "error", err)
		return false
	}
	msg, ok := envelope.(models.QueryMessage)
	if !ok {
		q.log.Error("unexpected envelope type for queryengine", "component", "queryengine")
		return false
	}

	requestID := msg.RequestID
	if err := q.run(ctx, requestID, msg.Query, start); err != nil {
		q.failRequest(ctx, requestID, err)
		return false
	}
	return true
}

func (q *QueryEngine) run(ctx context.Context, requestID string, query models.QueryRequest, start time.Time) error {
	if _, err := q.state.Update(ctx, requestID, map[string]any{"stage": string(models.StageQueryProcessing)}); err != nil {
		return fmt.Errorf("update stage to query_processing: %w", err)
	}

	parsedIntent, err := q.parseIntent(ctx, query.Query)
	if err != nil {
		return fmt.Errorf("parse intent: %w", err)
	}

	articles, err := q.retrieveArticles(ctx, parsedIntent, query)
	if err != nil {
		return fmt.Errorf("retrieve articles: %w", err)
	}

	answer, err := q.synthesizeAnswer(ctx, query.Query, articles)
	if err != nil {
		return fmt.Errorf("synthesize answer: %w", err)
	}

	sources := sourceReferences(articles)
	result := models.QueryResult{
		Answer:    answer,
		Sources:   sources,
		Metadata:  map[string]any{"intent": parsedIntent},
		Model:     q.model,
		LatencyMS: time.Since(start).Milliseconds(),
	}

	resultJSON, err := toJSONMap(result)
	if err != nil {
		return fmt.Errorf("marshal query result: %w", err)
	}

	if _, err := q.state.Update(ctx, requestID, map[string]any{
		"query_result": resultJSON,
		"stage":        string(models.StageCompleted),
	}); err != nil {
		return fmt.Errorf("update stage to completed: %w", err)
	}

	q.log.Info("query completed", "component", "queryengine", "request_id", requestID, "latency_ms", result.LatencyMS)
	return nil
}

func (q *QueryEngine) parseIntent(ctx context.Context, query string) (intent, error) {
	prompt := fmt.Sprintf(intentPromptTemplate, query)
	raw, err := q.provider.Complete(ctx, "", prompt, intentTemperature)
	if err != nil {
		return intent{}, err
	}

	var parsed intent
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed); err != nil {
		return intent{}, fmt.Errorf("parse intent json: %w", err)
	}
	return parsed, nil
}

func (q *QueryEngine) retrieveArticles(ctx context.Context, parsed intent, query models.QueryRequest) ([]models.ProcessedArticle, error) {
	var articles []models.ProcessedArticle

	if len(parsed.Entities) > 0 || len(parsed.Categories) > 0 || parsed.EntityType != "" {
		aq := articlestore.ArticleQuery{
			Entities:   parsed.Entities,
			Categories: parsed.Categories,
			EntityType: parsed.EntityType,
			Limit:      retrievalLimit,
		}
		if query.Filters != nil {
			aq.Sources = query.Filters.Sources
			aq.DateFrom = query.Filters.DateFrom
			aq.DateTo = query.Filters.DateTo
		}

		var err error
		articles, err = q.articles.QueryArticles(ctx, aq)
		if err != nil {
			return nil, err
		}
	}

	if len(articles) == 0 {
		searchTerms := parsed.SearchTerms
		if searchTerms == "" {
			searchTerms = query.Query
		}
		var err error
		articles, err = q.articles.SearchArticles(ctx, searchTerms, retrievalLimit)
		if err != nil {
			return nil, err
		}
	}

	return articles, nil
}

func (q *QueryEngine) synthesizeAnswer(ctx context.Context, query string, articles []models.ProcessedArticle) (string, error) {
	if len(articles) == 0 {
		return noArticlesAnswer, nil
	}

	limit := len(articles)
	if limit > synthesisArticleCap {
		limit = synthesisArticleCap
	}

	var blocks []string
	for _, a := range articles[:limit] {
		summary := a.Summary
		if summary == "" {
			summary = truncate(a.Content, rawContentFallbackLen)
		}
		blocks = append(blocks, fmt.Sprintf("Title: %s\nSource: %s\nSummary: %s", a.Title, a.Source, summary))
	}

	prompt := fmt.Sprintf(synthesisPromptTemplate, query, strings.Join(blocks, "\n\n"))
	return q.provider.Complete(ctx, "", prompt, synthesisTemperature)
}

func (q *QueryEngine) failRequest(ctx context.Context, requestID string, cause error) {
	q.log.Error("query failed", "component", "queryengine", "request_id", requestID, "error", cause)
	if _, err := q.state.Update(ctx, requestID, map[string]any{
		"stage":         string(models.StageFailed),
		"error_message": cause.Error(),
	}); err != nil {
		q.log.Error("failed to write failure state", "component", "queryengine", "request_id", requestID, "error", err)
	}
}

func sourceReferences(articles []models.ProcessedArticle) []models.SourceReference {
	limit := len(articles)
	if limit > sourcesLimit {
		limit = sourcesLimit
	}
	out := make([]models.SourceReference, 0, limit)
	for _, a := range articles[:limit] {
		out = append(out, models.SourceReference{
			Title:       a.Title,
			Source:      a.Source,
			SourceURL:   a.SourceURL,
			PublishedAt: a.PublishedAt,
		})
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return raw
	}
	return raw[start : end+1]
}

func toJSONMap(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
