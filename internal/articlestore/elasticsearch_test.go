package articlestore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"

	"contentpulse/internal/models"
)

// newTestElastic points a real *elasticsearch.Client at a fake HTTP server,
// the same approach contentsource's tests use for RSS/Reddit HTTP sources,
// since no Elasticsearch test-double library exists anywhere in the pack.
// Every response carries the X-Elastic-Product header, which the v8 client
// requires on successful responses before it accepts them.
func newTestElastic(t *testing.T, handler http.HandlerFunc) *Elastic {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return &Elastic{es: client}
}

func TestElasticIndexSendsDocument(t *testing.T) {
	var gotBody []byte
	e := newTestElastic(t, func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"result":"created"}`))
	})

	article := models.ProcessedArticle{Source: "espn", SourceID: "abc", Title: "Hello"}
	if err := e.Index(context.Background(), article); err != nil {
		t.Fatalf("Index: %v", err)
	}

	var decoded models.ProcessedArticle
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatalf("decode sent body: %v", err)
	}
	if decoded.Title != "Hello" {
		t.Errorf("unexpected sent title: %q", decoded.Title)
	}
}

func TestElasticSearchParsesHits(t *testing.T) {
	e := newTestElastic(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"hits": {
				"hits": [
					{"_source": {"source": "espn", "source_id": "abc", "title": "Transfer news"}}
				]
			}
		}`))
	})

	articles, err := e.Search(context.Background(), "transfer", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(articles) != 1 || articles[0].Title != "Transfer news" {
		t.Fatalf("unexpected result: %+v", articles)
	}
}

func TestElasticEnsureIndexToleratesAlreadyExists(t *testing.T) {
	e := newTestElastic(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"resource_already_exists_exception"}}`))
	})

	if err := e.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("expected EnsureIndex to tolerate already-exists, got %v", err)
	}
}
