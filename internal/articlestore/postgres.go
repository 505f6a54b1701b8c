// Postgres half of the ArticleStore's polyglot realization: the
// authoritative JSONB document plus every secondary index spec.md §4.3
// requires, translated from mongodb_article_repository.py's
// _ensure_indexes() compound/unique/text indices to Postgres jsonb_path_ops
// GIN indices and a B-tree on published_at. Grounded on the teacher's
// internal/database/db.go (context-bounded queries via sql.DB, idempotent
// upsert pattern generalized from InsertOrderIdempotent's
// ON CONFLICT DO NOTHING to an ON CONFLICT DO UPDATE upsert keyed on the
// same (source, source_id) composite this store's callers use).
package articlestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"

	"contentpulse/internal/metrics"
	"contentpulse/internal/models"
)

const (
	readTimeout  = 5 * time.Second
	writeTimeout = 5 * time.Second
)

// schemaStatements creates the articles table and every index spec.md
// §4.3 requires; each statement is idempotent (IF NOT EXISTS), matching
// the contract "index creation is idempotent at startup".
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS articles (
		source TEXT NOT NULL,
		source_id TEXT NOT NULL,
		doc JSONB NOT NULL,
		published_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (source, source_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_entities_published
		ON articles USING GIN ((doc->'entities') jsonb_path_ops)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_categories_published
		ON articles USING GIN ((doc->'categories') jsonb_path_ops)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_published_at
		ON articles (published_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_entity_type
		ON articles USING GIN ((doc->'entities') jsonb_path_ops)`,
}

// Postgres wraps the structured half of the ArticleStore.
type Postgres struct {
	conn *sql.DB
}

// ConnectPostgres opens and verifies a connection, then ensures the
// schema and indices exist.
func ConnectPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("articlestore: open postgres: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("articlestore: ping postgres: %w", err)
	}

	p := &Postgres{conn: conn}
	if err := p.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := p.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("articlestore: ensure schema: %w", err)
		}
	}
	return nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error { return p.conn.Close() }

// Upsert writes a ProcessedArticle keyed by (source, source_id).
func (p *Postgres) Upsert(ctx context.Context, article models.ProcessedArticle) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	timer := prometheus.NewTimer(metrics.StoreQueryDuration.WithLabelValues("postgres", "store_article"))
	defer timer.ObserveDuration()

	doc, err := json.Marshal(article)
	if err != nil {
		return fmt.Errorf("articlestore: marshal article: %w", err)
	}

	_, err = p.conn.ExecContext(ctx,
		`INSERT INTO articles (source, source_id, doc, published_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (source, source_id) DO UPDATE
		 SET doc = EXCLUDED.doc, published_at = EXCLUDED.published_at`,
		article.Source, article.SourceID, doc, article.PublishedAt,
	)
	if err != nil {
		return fmt.Errorf("articlestore: upsert: %w", err)
	}
	return nil
}

// Exists is a bounded-cost existence probe (LIMIT 1) for (source, source_id).
func (p *Postgres) Exists(ctx context.Context, source, sourceID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	timer := prometheus.NewTimer(metrics.StoreQueryDuration.WithLabelValues("postgres", "article_exists"))
	defer timer.ObserveDuration()

	var exists bool
	err := p.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM articles WHERE source = $1 AND source_id = $2 LIMIT 1)`,
		source, sourceID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("articlestore: exists: %w", err)
	}
	return exists, nil
}

// Query is the set of conjunctive filters QueryArticles accepts.
type Query struct {
	Entities   []string
	Categories []string
	Sources    []string
	EntityType string
	DateFrom   *time.Time
	DateTo     *time.Time
	Limit      int
}

// Query runs spec.md §4.3's conjunctive filter: entities/categories/sources
// are OR-within, AND-between; date_from/date_to form an inclusive range;
// results ordered by published_at descending.
func (p *Postgres) Query(ctx context.Context, q Query) ([]models.ProcessedArticle, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	timer := prometheus.NewTimer(metrics.StoreQueryDuration.WithLabelValues("postgres", "query_articles"))
	defer timer.ObserveDuration()

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}

	where := "TRUE"
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(q.Entities) > 0 {
		where += fmt.Sprintf(` AND EXISTS (
			SELECT 1 FROM jsonb_array_elements(doc->'entities') e
			WHERE e->>'normalized' = ANY(%s))`, arg(pq.Array(q.Entities)))
	}
	if q.EntityType != "" {
		where += fmt.Sprintf(` AND EXISTS (
			SELECT 1 FROM jsonb_array_elements(doc->'entities') e
			WHERE e->>'type' = %s)`, arg(q.EntityType))
	}
	if len(q.Categories) > 0 {
		where += fmt.Sprintf(" AND doc->'categories' ?| %s", arg(pq.Array(q.Categories)))
	}
	if len(q.Sources) > 0 {
		where += fmt.Sprintf(" AND source = ANY(%s)", arg(pq.Array(q.Sources)))
	}
	if q.DateFrom != nil {
		where += fmt.Sprintf(" AND published_at >= %s", arg(*q.DateFrom))
	}
	if q.DateTo != nil {
		where += fmt.Sprintf(" AND published_at <= %s", arg(*q.DateTo))
	}

	stmt := fmt.Sprintf(
		`SELECT doc FROM articles WHERE %s ORDER BY published_at DESC LIMIT %s`,
		where, arg(limit),
	)

	rows, err := p.conn.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("articlestore: query: %w", err)
	}
	defer rows.Close()

	return scanArticles(rows)
}

func scanArticles(rows *sql.Rows) ([]models.ProcessedArticle, error) {
	var out []models.ProcessedArticle
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("articlestore: scan: %w", err)
		}
		var a models.ProcessedArticle
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("articlestore: unmarshal: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
