package uploads

import "time"

// Record is the history entry kept for every conversion request
type Record struct {
	ID         string    `json:"id"`
	SourceName string    `json:"source_name"`
	SafeName   string    `json:"safe_name,omitempty"`
	Measure    string    `json:"measure"`
	Success    bool      `json:"success"`
	Kind       Kind      `json:"kind,omitempty"`
	Message    string    `json:"message"`
	ArtifactID string    `json:"artifact_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
