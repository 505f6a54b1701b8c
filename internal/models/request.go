package models

import "time"

// RequestStage is the closed set of states a ProcessedRequest moves through.
// Transitions are strictly monotonic: Gateway -> QueryProcessing -> Completed,
// with Failed reachable as a terminal state from any non-terminal stage.
type RequestStage string

const (
	StageGateway         RequestStage = "gateway"
	StageQueryProcessing RequestStage = "query_processing"
	StageCompleted       RequestStage = "completed"
	StageFailed          RequestStage = "failed"
)

// QueryFilters carries optional source, category, and date-range filters.
// Recovered from the original QueryRequest. QueryEngine's structured
// retrieval step applies Sources, DateFrom and DateTo; Categories is not
// applied, and the full-text fallback uses none of these filters.
type QueryFilters struct {
	Sources    []string   `json:"sources,omitempty"`
	Categories []string   `json:"categories,omitempty"`
	DateFrom   *time.Time `json:"date_from,omitempty"`
	DateTo     *time.Time `json:"date_to,omitempty"`
}

// QueryRequest is the client-submitted question plus optional filters.
type QueryRequest struct {
	Query   string        `json:"query"`
	Filters *QueryFilters `json:"filters,omitempty"`
}

// SourceReference is one article cited in a QueryResult's answer.
type SourceReference struct {
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	SourceURL   string    `json:"source_url"`
	PublishedAt time.Time `json:"published_at"`
}

// QueryResult is the synthesized answer produced by the QueryEngine.
type QueryResult struct {
	Answer    string            `json:"answer"`
	Sources   []SourceReference `json:"sources"`
	Metadata  map[string]any    `json:"metadata,omitempty"`
	Model     string            `json:"model"`
	LatencyMS int64             `json:"latency_ms"`
}

// ProcessedRequest is the StateStore record tracking one query end to end.
type ProcessedRequest struct {
	RequestID    string       `json:"request_id"`
	QueryRequest QueryRequest `json:"query_request"`
	Stage        RequestStage `json:"stage"`
	QueryResult  *QueryResult `json:"query_result,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// RequestResponse is returned to the client on submission.
type RequestResponse struct {
	RequestID string       `json:"request_id"`
	Status    RequestStage `json:"status"`
}
