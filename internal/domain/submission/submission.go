package submission

import "time"

// Submission is the single link an applicant keeps per question.
// CreatedAt records the first submission and never changes on resubmit.
type Submission struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	QuestionID string    `json:"questionId"`
	Link       string    `json:"link"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type SubmitRequest struct {
	Link string `json:"link" form:"link" binding:"required,max=500"`
}
