package delivery

import "errors"

// Kind names a notification stream. A (kind, subject) pair is delivered at most once.
type Kind string

const KindFinalizationNotice Kind = "application.finalized"

type Status string

const (
	StatusSending Status = "sending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

var (
	ErrAlreadySent = errors.New("notification already sent")
	ErrInProgress  = errors.New("notification delivery in progress")
)
