package models

// RetrievedContext is a retrieved chunk plus its similarity score, used to
// ground generated answers. Produced fresh per query, never persisted.
type RetrievedContext struct {
	Content        string  `json:"content"`
	SourceDocument string  `json:"source_document"`
	Score          float64 `json:"score"`
}

// QueryResult is the response for a question: the synthesized answer, the
// contexts it was grounded on, and the total processing time.
type QueryResult struct {
	Answer           string             `json:"answer"`
	Sources          []RetrievedContext `json:"sources"`
	ProcessingTimeMs float64            `json:"processing_time_ms"`
}

// IngestResult reports the outcome of a document ingestion. Success=false with
// ChunksCreated=0 is a valid reported outcome for empty or too-short input.
type IngestResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	ChunksCreated int    `json:"chunks_created"`
}
