package models

import "time"

// Notification is the outbound message appended to the notification
// exchange. A downstream mailer consumes these; our contract ends once
// the message is durably queued.
type Notification struct {
	To            string    `json:"to"`
	Subject       string    `json:"subject"`
	Body          string    `json:"body"`
	Type          string    `json:"type"`
	TransactionID string    `json:"transaction_id"`
	CreatedAt     time.Time `json:"created_at"`
}
