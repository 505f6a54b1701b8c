package queryengine

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"contentpulse/internal/articlestore"
	"contentpulse/internal/llm"
	"contentpulse/internal/models"
)

type fakeState struct {
	updates []map[string]any
}

func (f *fakeState) Update(ctx context.Context, id string, patch map[string]any) ([]byte, error) {
	f.updates = append(f.updates, patch)
	return nil, nil
}

func (f *fakeState) stages() []string {
	var out []string
	for _, u := range f.updates {
		if s, ok := u["stage"].(string); ok {
			out = append(out, s)
		}
	}
	return out
}

type fakeArticles struct {
	queryResult  []models.ProcessedArticle
	searchResult []models.ProcessedArticle
	queryCalls   int
	searchCalls  int
}

func (f *fakeArticles) QueryArticles(ctx context.Context, q articlestore.ArticleQuery) ([]models.ProcessedArticle, error) {
	f.queryCalls++
	return f.queryResult, nil
}

func (f *fakeArticles) SearchArticles(ctx context.Context, text string, limit int) ([]models.ProcessedArticle, error) {
	f.searchCalls++
	return f.searchResult, nil
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func queryMessagePayload(t *testing.T, requestID, question string) []byte {
	t.Helper()
	msg := models.QueryMessage{
		BaseMessage: models.BaseMessage{RequestID: requestID, TopicName: models.TopicQuery},
		Query:       models.QueryRequest{Query: question},
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal query message: %v", err)
	}
	return payload
}

func TestHandleStructuredRetrievalThenSynthesis(t *testing.T) {
	fake := &llm.Fake{Responses: []string{
		`{"entities":["manchester_united"],"categories":[],"entity_type":null,"search_terms":""}`,
		"Manchester United won their latest match.",
	}}
	articles := &fakeArticles{queryResult: []models.ProcessedArticle{
		{Title: "United win", Source: "espn", Summary: "A win"},
	}}
	state := &fakeState{}
	qe := New(state, articles, fake, "gpt-test", silentLogger())

	ok := qe.Handle(context.Background(), queryMessagePayload(t, "req-1", "How did United do?"))
	if !ok {
		t.Fatal("expected Handle to return true")
	}
	if articles.queryCalls != 1 || articles.searchCalls != 0 {
		t.Errorf("expected structured retrieval only, got query=%d search=%d", articles.queryCalls, articles.searchCalls)
	}

	stages := state.stages()
	if len(stages) != 2 || stages[0] != string(models.StageQueryProcessing) || stages[1] != string(models.StageCompleted) {
		t.Fatalf("unexpected stage sequence: %+v", stages)
	}
}

func TestHandleFallsBackToSearchWhenStructuredEmpty(t *testing.T) {
	fake := &llm.Fake{Responses: []string{
		`{"entities":["unknown_team"],"categories":[],"entity_type":null,"search_terms":"transfer news"}`,
		"Some synthesized answer.",
	}}
	articles := &fakeArticles{
		queryResult:  nil,
		searchResult: []models.ProcessedArticle{{Title: "Transfer news", Source: "espn"}},
	}
	qe := New(&fakeState{}, articles, fake, "gpt-test", silentLogger())

	ok := qe.Handle(context.Background(), queryMessagePayload(t, "req-2", "Any transfer news?"))
	if !ok {
		t.Fatal("expected Handle to return true")
	}
	if articles.searchCalls != 1 {
		t.Errorf("expected a fallback search call, got %d", articles.searchCalls)
	}
}

func TestHandleShortCircuitsWithNoArticles(t *testing.T) {
	fake := &llm.Fake{Responses: []string{
		`{"entities":[],"categories":[],"entity_type":null,"search_terms":""}`,
	}}
	articles := &fakeArticles{}
	qe := New(&fakeState{}, articles, fake, "gpt-test", silentLogger())

	ok := qe.Handle(context.Background(), queryMessagePayload(t, "req-3", "Nonsense query"))
	if !ok {
		t.Fatal("expected Handle to return true even with zero articles")
	}
	if len(fake.LastCalls) != 1 {
		t.Errorf("expected the synthesis LLM call to be skipped when there are no articles, got %d calls", len(fake.LastCalls))
	}
}

func TestHandleWritesFailedStageOnIntentParseError(t *testing.T) {
	fake := &llm.Fake{Responses: []string{"not json"}}
	state := &fakeState{}
	qe := New(state, &fakeArticles{}, fake, "gpt-test", silentLogger())

	ok := qe.Handle(context.Background(), queryMessagePayload(t, "req-4", "bad query"))
	if ok {
		t.Fatal("expected Handle to return false on intent parse failure")
	}
	stages := state.stages()
	if len(stages) != 2 || stages[1] != string(models.StageFailed) {
		t.Fatalf("expected a failed-stage write, got %+v", stages)
	}
}

func TestHandleReturnsFalseOnUnknownEnvelope(t *testing.T) {
	qe := New(&fakeState{}, &fakeArticles{}, &llm.Fake{}, "gpt-test", silentLogger())
	if ok := qe.Handle(context.Background(), []byte(`{"request_id":"x","topic_name":"unknown"}`)); ok {
		t.Fatal("expected Handle to return false for an undecodable envelope")
	}
}
