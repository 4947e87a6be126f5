package model

// SyncFailure records a single item-level failure inside a sync run.
type SyncFailure struct {
	Source string `json:"source"`
	ItemID string `json:"item_id"`
	Error  string `json:"error"`
}

// SyncSummary is the structured result of one sync run. Item-level failures
// are collected here instead of aborting the run.
type SyncSummary struct {
	Processed        int           `json:"processed"`
	SkippedDuplicate int           `json:"skipped_duplicate"`
	Failed           int           `json:"failed"`
	Details          []SyncFailure `json:"details,omitempty"`
}

// Merge folds another summary into this one.
func (s *SyncSummary) Merge(other SyncSummary) {
	s.Processed += other.Processed
	s.SkippedDuplicate += other.SkippedDuplicate
	s.Failed += other.Failed
	s.Details = append(s.Details, other.Details...)
}
