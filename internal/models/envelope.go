package models

import (
	"encoding/json"
	"fmt"
)

// Topic names, also used as queue names on the broker.
const (
	TopicContentRaw = "content-raw"
	TopicQuery      = "query"
)

// BaseMessage carries the fields every envelope variant shares:
// an identifier for the logical request this message belongs to,
// the topic it was published on, and the W3C trace-context headers
// to extract a remote span from on the consuming side.
type BaseMessage struct {
	RequestID        string            `json:"request_id"`
	TopicName        string            `json:"topic_name"`
	TelemetryHeaders map[string]string `json:"telemetry_headers,omitempty"`
}

// ContentMessage wraps a RawArticle bound for the content-raw topic.
type ContentMessage struct {
	BaseMessage
	RawContent RawArticle `json:"raw_content"`
}

// QueryMessage wraps a QueryRequest bound for the query topic.
type QueryMessage struct {
	BaseMessage
	Query QueryRequest `json:"query_request"`
}

// DecodeEnvelope inspects topic_name and unmarshals payload into the
// matching concrete envelope type, returned as `any` for the caller to
// type-switch on.
func DecodeEnvelope(payload []byte) (any, error) {
	var base BaseMessage
	if err := json.Unmarshal(payload, &base); err != nil {
		return nil, fmt.Errorf("decode envelope base: %w", err)
	}
	switch base.TopicName {
	case TopicContentRaw:
		var msg ContentMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return nil, fmt.Errorf("decode content message: %w", err)
		}
		return msg, nil
	case TopicQuery:
		var msg QueryMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return nil, fmt.Errorf("decode query message: %w", err)
		}
		return msg, nil
	default:
		return nil, fmt.Errorf("unknown topic_name %q", base.TopicName)
	}
}

// DedupEntry describes a dedup marker. The DedupCache does not write this
// shape: it stores the literal value "1", since presence of the key alone
// is the signal.
type DedupEntry struct {
	Source    string `json:"source"`
	SourceID  string `json:"source_id"`
	SeenAtUTC string `json:"seen_at_utc"`
}
