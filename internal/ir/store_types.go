package ir

// NOTE: These are the persisted forms of pipeline outcomes. The datastore
// package writes them; the postimport package produces them.

// PostImportRecord is the stored outcome of one post-import run for a resource.
type PostImportRecord struct {
	ID              string           `json:"id"` // Content-addressed (RecordID)
	ResourceID      string           `json:"resource_id"`
	ResourceVersion string           `json:"resource_version,omitempty"`
	RunID           string           `json:"run_id"`
	Status          PostImportStatus `json:"status"`
	Message         string           `json:"message"`
	Stages          []StageRecord    `json:"stages"`
	Seq             int64            `json:"seq"` // Per-resource run counter
}

// Identifier mirrors Resource.Identifier for the record's resource.
func (r PostImportRecord) Identifier() string {
	return Resource{ID: r.ResourceID, Version: r.ResourceVersion}.Identifier()
}

// StageRecord is the outcome of one processor within a run.
type StageRecord struct {
	Processor string           `json:"processor"`
	Status    PostImportStatus `json:"status"`
	Message   string           `json:"message,omitempty"`
}
