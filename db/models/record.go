package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Record : Archival projection of a terminal transaction. Rows are
// written once by the archive pass and never updated.
type Record struct {
	bun.BaseModel `bun:"table:records,alias:r"`

	ID            string    `json:"id" bun:",pk"`
	TransactionID string    `json:"transaction_id" bun:",notnull"`
	BorrowerID    string    `json:"borrower_id"`
	BorrowerName  string    `json:"borrower_name" bun:",nullzero"`
	BorrowerEmail string    `json:"borrower_email" bun:",nullzero"`
	Items         []Item    `json:"items" bun:"items,type:jsonb"`
	BorrowedDate  time.Time `json:"borrowed_date"`
	DueDate       time.Time `json:"due_date"`
	Status        string    `json:"status"`
	TotalPrice    int64     `json:"total_price"`
	FineAmount    int64     `json:"fine_amount"`
	ArchivedAt    time.Time `json:"archived_at" bun:",nullzero,notnull,default:current_timestamp"`
}
