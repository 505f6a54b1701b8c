// Elasticsearch half of the ArticleStore: full-text search over
// title/summary only, per spec.md §4.3's split ("search_articles uses
// Elasticsearch; every other query uses the structured store"). Grounded
// on the teacher's internal/search/search.go: a thin *elasticsearch.Client
// wrapper, document identity used as the ES document ID for idempotent
// re-indexing, and a hand-built map[string]any query body matching the
// teacher's SearchOrders shape.
package articlestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/prometheus/client_golang/prometheus"

	"contentpulse/internal/metrics"
	"contentpulse/internal/models"
)

const articlesIndex = "articles"

// Elastic wraps the search half of the ArticleStore.
type Elastic struct {
	es *elasticsearch.Client
}

// ConnectElastic builds a client against the given address (a single URL
// or a comma-separated list of nodes).
func ConnectElastic(url string) (*Elastic, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: strings.Split(url, ","),
	})
	if err != nil {
		return nil, fmt.Errorf("articlestore: new elasticsearch client: %w", err)
	}
	return &Elastic{es: es}, nil
}

// Index upserts a ProcessedArticle by (source, source_id), matching the
// same identity Postgres.Upsert keys on so the two stores never diverge.
func (e *Elastic) Index(ctx context.Context, article models.ProcessedArticle) error {
	timer := prometheus.NewTimer(metrics.StoreQueryDuration.WithLabelValues("elasticsearch", "index_article"))
	defer timer.ObserveDuration()

	body, err := json.Marshal(article)
	if err != nil {
		return fmt.Errorf("articlestore: marshal article for index: %w", err)
	}

	docID := article.Source + ":" + article.SourceID
	res, err := e.es.Index(
		articlesIndex,
		bytes.NewReader(body),
		e.es.Index.WithDocumentID(docID),
		e.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("articlestore: index article: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("articlestore: elasticsearch index error: %s", res.String())
	}
	return nil
}

// Search runs spec.md §4.3's search_articles: a full-text match over
// title and summary, ordered by relevance.
func (e *Elastic) Search(ctx context.Context, text string, limit int) ([]models.ProcessedArticle, error) {
	if limit <= 0 {
		limit = 20
	}

	timer := prometheus.NewTimer(metrics.StoreQueryDuration.WithLabelValues("elasticsearch", "search_articles"))
	defer timer.ObserveDuration()

	query := map[string]any{
		"size": limit,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  text,
				"fields": []string{"title^2", "summary"},
			},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("articlestore: encode search query: %w", err)
	}

	res, err := e.es.Search(
		e.es.Search.WithContext(ctx),
		e.es.Search.WithIndex(articlesIndex),
		e.es.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("articlestore: search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("articlestore: elasticsearch search error: %s", res.String())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source models.ProcessedArticle `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("articlestore: decode search response: %w", err)
	}

	out := make([]models.ProcessedArticle, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		out = append(out, hit.Source)
	}
	return out, nil
}

// EnsureIndex creates the articles index with a mapping limiting full-text
// analysis to title/summary, idempotently (ignores "already exists").
func (e *Elastic) EnsureIndex(ctx context.Context) error {
	mapping := `{
		"mappings": {
			"properties": {
				"title":   {"type": "text"},
				"summary": {"type": "text"},
				"source":  {"type": "keyword"},
				"source_id": {"type": "keyword"}
			}
		}
	}`

	res, err := e.es.Indices.Create(
		articlesIndex,
		e.es.Indices.Create.WithContext(ctx),
		e.es.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		return fmt.Errorf("articlestore: create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && !strings.Contains(res.String(), "resource_already_exists_exception") {
		return fmt.Errorf("articlestore: create index error: %s", res.String())
	}
	return nil
}
