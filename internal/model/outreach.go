package model

import "time"

// QueueStatus is the lifecycle state of an outreach queue item.
type QueueStatus string

const (
	QueuePending  QueueStatus = "pending"
	QueueApproved QueueStatus = "approved"
	QueueSent     QueueStatus = "sent"
	QueueFailed   QueueStatus = "failed"
)

// OutreachItem references a lead that has an email and is eligible for a
// send. Failed items keep their error and stay eligible for manual
// re-approval; they are never auto-retried.
type OutreachItem struct {
	ID        int64       `json:"id" db:"id"`
	LeadID    int64       `json:"lead_id" db:"lead_id"`
	Email     string      `json:"email" db:"email"`
	Subject   string      `json:"subject" db:"subject"`
	BodyText  string      `json:"body_text" db:"body_text"`
	BodyHTML  string      `json:"body_html" db:"body_html"`
	Status    QueueStatus `json:"status" db:"status"`
	SentAt    *time.Time  `json:"sent_at,omitempty" db:"sent_at"`
	SendError *string     `json:"send_error,omitempty" db:"send_error"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}

// SendOutcome is the per-recipient result inside a batch send.
type SendOutcome struct {
	ID      int64  `json:"id"`
	Email   string `json:"email"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// SendReport summarizes a batch send. The batch always completes; individual
// failures are isolated into Results.
type SendReport struct {
	Sent    int           `json:"sent"`
	Failed  int           `json:"failed"`
	Results []SendOutcome `json:"results"`
}
