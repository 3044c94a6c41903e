package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/labkit/borrowd/db/models"
	"github.com/uptrace/bun"
)

type BunStore struct {
	db        *bun.DB
	batchSize int
}

func NewBunStore(db *bun.DB, batchSize int) *BunStore {
	if batchSize <= 0 {
		batchSize = 200
	}
	return &BunStore{db: db, batchSize: batchSize}
}

func (s *BunStore) ListByStatus(ctx context.Context, statuses ...string) ([]models.Transaction, error) {
	transactions := []models.Transaction{}
	err := s.db.NewSelect().Model(&transactions).
		Where("t.status IN (?)", bun.In(statuses)).
		Order("t.due_date ASC").
		Scan(ctx)
	return transactions, err
}

func (s *BunStore) ListDueBetween(ctx context.Context, start, end time.Time, statuses ...string) ([]models.Transaction, error) {
	transactions := []models.Transaction{}
	query := s.db.NewSelect().Model(&transactions).
		Where("t.due_date >= ? AND t.due_date < ?", start, end)
	if len(statuses) > 0 {
		query.Where("t.status IN (?)", bun.In(statuses))
	}
	err := query.Order("t.due_date ASC").Scan(ctx)
	return transactions, err
}

func (s *BunStore) ApplyPatches(ctx context.Context, patches []TransactionPatch) error {
	for start := 0; start < len(patches); start += s.batchSize {
		end := start + s.batchSize
		if end > len(patches) {
			end = len(patches)
		}
		chunk := patches[start:end]
		err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
			for _, patch := range chunk {
				query := tx.NewUpdate().Model((*models.Transaction)(nil)).
					Where("id = ?", patch.ID).
					Set("updated_at = ?", time.Now())
				if patch.Status != nil {
					query.Set("status = ?", *patch.Status)
				}
				if patch.FineAmount != nil {
					query.Set("fine_amount = ?", *patch.FineAmount)
				}
				if patch.OndueNotified != nil {
					query.Set("ondue_notified = ?", *patch.OndueNotified)
				}
				if patch.ReminderNotified != nil {
					query.Set("reminder_notified = ?", *patch.ReminderNotified)
				}
				if patch.OverdueNotified != nil {
					query.Set("overdue_notified = ?", *patch.OverdueNotified)
				}
				if _, err := query.Exec(ctx); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *BunStore) Archive(ctx context.Context, transaction *models.Transaction) error {
	record := &models.Record{
		ID:            uuid.NewString(),
		TransactionID: transaction.ID,
		BorrowerID:    transaction.BorrowerID,
		BorrowerName:  transaction.BorrowerName,
		BorrowerEmail: transaction.BorrowerEmail,
		Items:         transaction.Items,
		BorrowedDate:  transaction.BorrowedDate,
		DueDate:       transaction.DueDate,
		Status:        transaction.Status,
		TotalPrice:    transaction.TotalPrice,
		FineAmount:    transaction.FineAmount,
		ArchivedAt:    time.Now(),
	}
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewDelete().Model((*models.Transaction)(nil)).Where("id = ?", transaction.ID).Exec(ctx)
		return err
	})
}
