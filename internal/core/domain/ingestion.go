package domain

import "time"

type IngestionStatus string

const (
	IngestionIdle    IngestionStatus = "idle"
	IngestionRunning IngestionStatus = "running"
	IngestionSuccess IngestionStatus = "success"
	IngestionFailed  IngestionStatus = "failed"
)

// IngestionReport is the structured outcome of one ingestion run. A run
// ends in success even when individual batches failed; the Attempted vs
// Ingested counts expose partial success.
type IngestionReport struct {
	Status         IngestionStatus `json:"status"`
	TotalDocuments int             `json:"total_documents"`
	TotalChunks    int             `json:"total_chunks"`
	Attempted      int             `json:"attempted"`
	Ingested       int             `json:"ingested"`
	FailedBatches  int             `json:"failed_batches"`
	Collection     string          `json:"collection"`
	Error          string          `json:"error,omitempty"`
	StartedAt      time.Time       `json:"started_at"`
	FinishedAt     time.Time       `json:"finished_at,omitempty"`
}

// IngestionState is the status-endpoint view of the process-wide job.
type IngestionState struct {
	Running bool             `json:"running"`
	Result  *IngestionReport `json:"result,omitempty"`
}
