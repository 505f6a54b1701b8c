package gatewayapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"contentpulse/internal/models"
)

type fakeState struct {
	created map[string]any
	getData []byte
	getErr  error
	lastID  string
}

func (f *fakeState) Create(ctx context.Context, id string, doc any) error {
	if f.created == nil {
		f.created = map[string]any{}
	}
	f.created[id] = doc
	return nil
}

func (f *fakeState) Get(ctx context.Context, id string) ([]byte, error) {
	f.lastID = id
	return f.getData, f.getErr
}

type fakePublisher struct {
	published [][]byte
	err       error
}

func (f *fakePublisher) Publish(ctx context.Context, topic, messageID string, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, payload)
	return nil
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSubmitQueryAccepted(t *testing.T) {
	state := &fakeState{}
	pub := &fakePublisher{}
	h := &Handler{State: state, Publisher: pub, Topic: models.TopicQuery, Log: silentLogger()}

	body, _ := json.Marshal(models.QueryRequest{Query: "How did United do?"})
	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.SubmitQuery(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.RequestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.RequestID == "" || resp.Status != models.StageGateway {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(pub.published) != 1 {
		t.Errorf("expected 1 published message, got %d", len(pub.published))
	}
	if len(state.created) != 1 {
		t.Errorf("expected 1 created state record, got %d", len(state.created))
	}
}

func TestSubmitQueryRejectsEmptyQuestion(t *testing.T) {
	h := &Handler{State: &fakeState{}, Publisher: &fakePublisher{}, Topic: models.TopicQuery, Log: silentLogger()}

	body, _ := json.Marshal(models.QueryRequest{Query: ""})
	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.SubmitQuery(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSubmitQueryPublishFailureReturns500(t *testing.T) {
	h := &Handler{State: &fakeState{}, Publisher: &fakePublisher{err: errors.New("broker down")}, Topic: models.TopicQuery, Log: silentLogger()}

	body, _ := json.Marshal(models.QueryRequest{Query: "test"})
	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.SubmitQuery(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestGetQueryStatusNotFound(t *testing.T) {
	h := &Handler{State: &fakeState{getData: nil}, Log: silentLogger()}

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/query/unknown-id", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetQueryStatusReturnsRecord(t *testing.T) {
	record := models.ProcessedRequest{RequestID: "abc", Stage: models.StageCompleted}
	raw, _ := json.Marshal(record)
	h := &Handler{State: &fakeState{getData: raw}, Log: silentLogger()}

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/query/abc", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got models.ProcessedRequest
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.RequestID != "abc" {
		t.Errorf("unexpected request_id: %q", got.RequestID)
	}
}

func TestHealthReturnsOK(t *testing.T) {
	h := &Handler{Log: silentLogger()}
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	h.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
