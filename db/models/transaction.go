package models

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Item is one borrowed equipment line inside a transaction. The item
// sequence is stored embedded as jsonb, keeping the original document
// layout instead of normalizing it into its own table.
type Item struct {
	EquipmentID      string `json:"equipment_id"`
	Name             string `json:"name"`
	Quantity         int    `json:"quantity"`
	UnitPrice        int64  `json:"unit_price"`
	Returned         bool   `json:"returned"`
	ReturnedQuantity int    `json:"returned_quantity"`
	DamagedQuantity  int    `json:"damaged_quantity,omitempty"`
	LostQuantity     int    `json:"lost_quantity,omitempty"`
	DamageNotes      string `json:"damage_notes,omitempty"`
}

// Transaction : Borrowing transaction model
type Transaction struct {
	bun.BaseModel `bun:"table:transactions,alias:t"`

	ID            string    `json:"id" bun:",pk"`
	BorrowerID    string    `json:"borrower_id" validate:"required"`
	BorrowerName  string    `json:"borrower_name" bun:",nullzero"`
	BorrowerEmail string    `json:"borrower_email" bun:",nullzero"`
	Items         []Item    `json:"items" bun:"items,type:jsonb"`
	BorrowedDate  time.Time `json:"borrowed_date"`
	DueDate       time.Time `json:"due_date" validate:"required"`
	Status        string    `json:"status" bun:",default:'Request'"`
	TotalPrice    int64     `json:"total_price"`
	FineAmount    int64     `json:"fine_amount"`

	// One flag per notification kind, set once per overdue episode.
	// The sweep only ever flips these false -> true; clearing is an
	// external action (e.g. on transaction edit).
	OndueNotified    bool `json:"ondue_notified"`
	ReminderNotified bool `json:"reminder_notified"`
	OverdueNotified  bool `json:"overdue_notified"`

	CreatedAt time.Time    `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt bun.NullTime `json:"updated_at"`
}

func (t *Transaction) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.UpdateQuery:
		t.UpdatedAt = bun.NullTime{Time: time.Now()}
	}
	return nil
}

var _ bun.BeforeAppendModelHook = (*Transaction)(nil)
