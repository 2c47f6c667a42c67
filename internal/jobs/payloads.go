package jobs

import "time"

// ExportApplicantsCSVPayload asks the worker to write the ranked applicant
// list to a file. RequestedBy is re-authorized when the job runs.
type ExportApplicantsCSVPayload struct {
	RequestedBy string    `json:"requestedBy"`
	RequestedAt time.Time `json:"requestedAt"`
	RequestID   string    `json:"requestId,omitempty"`
}

// FinalizationNoticePayload is enqueued in the same transaction that flips
// an applicant to finalized.
type FinalizationNoticePayload struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	FinalizedAt time.Time `json:"finalizedAt"`
}
