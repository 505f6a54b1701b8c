package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDecodeEnvelopeRoundTripContent(t *testing.T) {
	msg := ContentMessage{
		BaseMessage: BaseMessage{
			RequestID: "req-1",
			TopicName: TopicContentRaw,
			TelemetryHeaders: map[string]string{
				"traceparent": "00-aaaa-bbbb-01",
			},
		},
		RawContent: RawArticle{
			Source:      "espn",
			SourceID:    "abc123",
			Title:       "Team wins",
			PublishedAt: time.Now().UTC().Truncate(time.Second),
		},
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	decoded, err := DecodeEnvelope(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	got, ok := decoded.(ContentMessage)
	if !ok {
		t.Fatalf("expected ContentMessage, got %T", decoded)
	}
	if got.RawContent.SourceID != msg.RawContent.SourceID {
		t.Errorf("source_id mismatch: got %q want %q", got.RawContent.SourceID, msg.RawContent.SourceID)
	}
	if got.TelemetryHeaders["traceparent"] != "00-aaaa-bbbb-01" {
		t.Errorf("telemetry headers not preserved: %+v", got.TelemetryHeaders)
	}
}

func TestDecodeEnvelopeRoundTripQuery(t *testing.T) {
	from := time.Now().Add(-24 * time.Hour).UTC().Truncate(time.Second)
	msg := QueryMessage{
		BaseMessage: BaseMessage{RequestID: "req-2", TopicName: TopicQuery},
		Query: QueryRequest{
			Query: "who won the game",
			Filters: &QueryFilters{
				Sources:  []string{"espn"},
				DateFrom: &from,
			},
		},
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	decoded, err := DecodeEnvelope(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, ok := decoded.(QueryMessage)
	if !ok {
		t.Fatalf("expected QueryMessage, got %T", decoded)
	}
	if got.Query.Query != msg.Query.Query {
		t.Errorf("query mismatch: got %q want %q", got.Query.Query, msg.Query.Query)
	}
	if got.Query.Filters == nil || len(got.Query.Filters.Sources) != 1 {
		t.Fatalf("filters not preserved: %+v", got.Query.Filters)
	}
}

func TestDecodeEnvelopeUnknownTopic(t *testing.T) {
	payload := []byte(`{"request_id":"r","topic_name":"mystery"}`)
	if _, err := DecodeEnvelope(payload); err == nil {
		t.Fatal("expected error for unknown topic_name")
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Los Angeles Lakers": "los_angeles_lakers",
		"lebron james":       "lebron_james",
		"NBA":                "nba",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}
