// Package articlestore implements the polyglot ArticleStore spec.md §4.3
// describes: Postgres holds the authoritative document plus every
// structured-query index, Elasticsearch holds a full-text shadow used
// only by SearchArticles. Grounded on the teacher's split between
// internal/database (Postgres) and internal/search (Elasticsearch),
// generalized from order records to ProcessedArticle documents.
package articlestore

import (
	"context"
	"time"

	"contentpulse/internal/models"
)

// Store composes the structured and full-text halves behind the single
// contract spec.md §4.3 names.
type Store struct {
	pg *Postgres
	es *Elastic
}

// Open connects both backing stores and ensures their schemas/indices
// exist, matching spec.md §4.3's "index creation is idempotent at startup".
func Open(ctx context.Context, postgresDSN, elasticsearchURL string) (*Store, error) {
	pg, err := ConnectPostgres(ctx, postgresDSN)
	if err != nil {
		return nil, err
	}

	es, err := ConnectElastic(elasticsearchURL)
	if err != nil {
		pg.Close()
		return nil, err
	}
	if err := es.EnsureIndex(ctx); err != nil {
		pg.Close()
		return nil, err
	}

	return &Store{pg: pg, es: es}, nil
}

// Close releases the Postgres connection pool. The Elasticsearch client
// holds no long-lived connection to release.
func (s *Store) Close() error {
	return s.pg.Close()
}

// StoreArticle writes a ProcessedArticle to both backends. Postgres is
// written first since it is authoritative for ArticleExists and
// QueryArticles; a failure there aborts before the Elasticsearch write so
// the two stores never observe a document the authoritative side rejected.
func (s *Store) StoreArticle(ctx context.Context, article models.ProcessedArticle) error {
	if err := s.pg.Upsert(ctx, article); err != nil {
		return err
	}
	return s.es.Index(ctx, article)
}

// ArticleExists is the authoritative existence check the Ingester
// consults after the DedupCache misses (spec.md §4.1/§4.8).
func (s *Store) ArticleExists(ctx context.Context, source, sourceID string) (bool, error) {
	return s.pg.Exists(ctx, source, sourceID)
}

// ArticleQuery is QueryArticles's parameter set.
type ArticleQuery struct {
	Entities   []string
	Categories []string
	Sources    []string
	EntityType string
	DateFrom   *time.Time
	DateTo     *time.Time
	Limit      int
}

// QueryArticles runs the structured, conjunctive filter query against
// Postgres.
func (s *Store) QueryArticles(ctx context.Context, q ArticleQuery) ([]models.ProcessedArticle, error) {
	return s.pg.Query(ctx, Query{
		Entities:   q.Entities,
		Categories: q.Categories,
		Sources:    q.Sources,
		EntityType: q.EntityType,
		DateFrom:   q.DateFrom,
		DateTo:     q.DateTo,
		Limit:      q.Limit,
	})
}

// SearchArticles runs the full-text query against Elasticsearch.
func (s *Store) SearchArticles(ctx context.Context, text string, limit int) ([]models.ProcessedArticle, error) {
	return s.es.Search(ctx, text, limit)
}
