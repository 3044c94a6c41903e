package service

import (
	"context"
	"fmt"
	"time"

	"github.com/labkit/borrowd/common"
	"github.com/labkit/borrowd/db/models"
	"github.com/labkit/borrowd/db/store"
)

// SweepResult aggregates what one maintenance sweep did.
type SweepResult struct {
	Updated          int `json:"updated"`
	Skipped          int `json:"skipped"`
	OndueNotified    int `json:"ondue_notified"`
	ReminderNotified int `json:"reminder_notified"`
	OverdueNotified  int `json:"overdue_notified"`
	Archived         int `json:"archived"`
}

// Sweep runs the maintenance passes over the transaction collection:
// status/fine recompute, the three notification dispatches, and the
// optional archive pass. Both the daily routine and the manual endpoint
// call this; there is no separate code path.
//
// Each pass is idempotent on its own: running the whole sweep twice with
// no intervening data change performs zero writes and publishes zero
// notifications the second time. A pass failure ends the sweep early but
// does not roll back passes that already committed.
func (svc *BorrowdService) Sweep(ctx context.Context, now time.Time) (*SweepResult, error) {
	result := &SweepResult{}

	if err := svc.recomputePass(ctx, now, result); err != nil {
		return result, fmt.Errorf("recompute pass: %w", err)
	}
	if err := svc.ondueNoticePass(ctx, now, result); err != nil {
		return result, fmt.Errorf("ondue notice pass: %w", err)
	}
	if err := svc.reminderPass(ctx, now, result); err != nil {
		return result, fmt.Errorf("reminder pass: %w", err)
	}
	if err := svc.overdueNoticePass(ctx, now, result); err != nil {
		return result, fmt.Errorf("overdue notice pass: %w", err)
	}
	if svc.Config.ArchiveCompleted {
		if err := svc.archivePass(ctx, result); err != nil {
			return result, fmt.Errorf("archive pass: %w", err)
		}
	}

	return result, nil
}

// recomputePass re-derives status and fine for every active transaction
// and commits only the rows that actually changed.
func (svc *BorrowdService) recomputePass(ctx context.Context, now time.Time, result *SweepResult) error {
	transactions, err := svc.Store.ListByStatus(ctx, common.ActiveStatuses...)
	if err != nil {
		return err
	}

	patches := []store.TransactionPatch{}
	for i := range transactions {
		transaction := &transactions[i]
		if transaction.DueDate.IsZero() {
			svc.Logger.Warnf("Skipping transaction %s: missing due date", transaction.ID)
			result.Skipped++
			continue
		}

		status := DeriveStatus(transaction.Items, transaction.DueDate, transaction.Status, now, svc.Location)
		fine := CalculateFine(transaction.DueDate, now, svc.Config.FinePerDay, svc.Location)
		if status == transaction.Status && fine == transaction.FineAmount {
			continue
		}

		patch := store.TransactionPatch{ID: transaction.ID}
		if status != transaction.Status {
			patch.Status = store.String(status)
		}
		if fine != transaction.FineAmount {
			patch.FineAmount = store.Int64(fine)
		}
		patches = append(patches, patch)
	}

	if len(patches) == 0 {
		return nil
	}
	if err := svc.Store.ApplyPatches(ctx, patches); err != nil {
		return err
	}
	result.Updated += len(patches)
	return nil
}

func (svc *BorrowdService) ondueNoticePass(ctx context.Context, now time.Time, result *SweepResult) error {
	if svc.RabbitMQClient == nil {
		svc.Logger.Debug("No notification sink configured, skipping ondue notice pass")
		return nil
	}
	today := startOfDay(now, svc.Location)
	candidates, err := svc.Store.ListDueBetween(ctx, today, today.AddDate(0, 0, 1), common.ActiveStatuses...)
	if err != nil {
		return err
	}
	return svc.dispatchNotices(ctx, candidates, common.NotificationTypeOndue, now, result)
}

func (svc *BorrowdService) reminderPass(ctx context.Context, now time.Time, result *SweepResult) error {
	if svc.RabbitMQClient == nil {
		svc.Logger.Debug("No notification sink configured, skipping reminder pass")
		return nil
	}
	tomorrow := startOfDay(now, svc.Location).AddDate(0, 0, 1)
	candidates, err := svc.Store.ListDueBetween(ctx, tomorrow, tomorrow.AddDate(0, 0, 1),
		common.StatusOngoing, common.StatusIncomplete)
	if err != nil {
		return err
	}
	return svc.dispatchNotices(ctx, candidates, common.NotificationTypeReminder, now, result)
}

// overdueNoticePass has no date window: it fires for any overdue
// transaction whose flag is still unset, so exactly once per overdue
// episode rather than once per day.
func (svc *BorrowdService) overdueNoticePass(ctx context.Context, now time.Time, result *SweepResult) error {
	if svc.RabbitMQClient == nil {
		svc.Logger.Debug("No notification sink configured, skipping overdue notice pass")
		return nil
	}
	candidates, err := svc.Store.ListByStatus(ctx, common.StatusOverdue, common.StatusIncompleteOverdue)
	if err != nil {
		return err
	}
	return svc.dispatchNotices(ctx, candidates, common.NotificationTypeOverdue, now, result)
}

// dispatchNotices publishes one notification per not-yet-notified
// candidate and then commits the flag updates. Flags are only written
// after their notification was accepted by the sink, so a crash between
// the two can duplicate a message but never suppress one: at-least-once
// for the message, at-most-once for the flag transition.
func (svc *BorrowdService) dispatchNotices(ctx context.Context, candidates []models.Transaction, kind string, now time.Time, result *SweepResult) error {
	patches := []store.TransactionPatch{}
	for i := range candidates {
		transaction := &candidates[i]
		if noticeAlreadySent(transaction, kind) {
			continue
		}
		if transaction.BorrowerEmail == "" {
			svc.Logger.Warnf("Skipping %s for transaction %s: missing borrower contact", kind, transaction.ID)
			result.Skipped++
			continue
		}

		notification := buildNotification(transaction, kind, now)
		if err := svc.RabbitMQClient.PublishNotification(ctx, notification); err != nil {
			svc.Logger.Errorf("Failed to publish %s for transaction %s: %v", kind, transaction.ID, err)
			result.Skipped++
			continue
		}

		patch := store.TransactionPatch{ID: transaction.ID}
		markNoticeSent(&patch, kind)
		patches = append(patches, patch)
	}

	if len(patches) == 0 {
		return nil
	}
	if err := svc.Store.ApplyPatches(ctx, patches); err != nil {
		return err
	}
	switch kind {
	case common.NotificationTypeOndue:
		result.OndueNotified += len(patches)
	case common.NotificationTypeReminder:
		result.ReminderNotified += len(patches)
	case common.NotificationTypeOverdue:
		result.OverdueNotified += len(patches)
	}
	return nil
}

// archivePass moves fully-returned transactions into the records table.
// Off by default; enable with ARCHIVE_COMPLETED.
func (svc *BorrowdService) archivePass(ctx context.Context, result *SweepResult) error {
	completed, err := svc.Store.ListByStatus(ctx, common.StatusComplete, common.StatusCompleteAndOverdue)
	if err != nil {
		return err
	}
	for i := range completed {
		if err := svc.Store.Archive(ctx, &completed[i]); err != nil {
			return err
		}
		result.Archived++
	}
	return nil
}

func noticeAlreadySent(transaction *models.Transaction, kind string) bool {
	switch kind {
	case common.NotificationTypeOndue:
		return transaction.OndueNotified
	case common.NotificationTypeReminder:
		return transaction.ReminderNotified
	case common.NotificationTypeOverdue:
		return transaction.OverdueNotified
	}
	return true
}

func markNoticeSent(patch *store.TransactionPatch, kind string) {
	switch kind {
	case common.NotificationTypeOndue:
		patch.OndueNotified = store.Bool(true)
	case common.NotificationTypeReminder:
		patch.ReminderNotified = store.Bool(true)
	case common.NotificationTypeOverdue:
		patch.OverdueNotified = store.Bool(true)
	}
}

func buildNotification(transaction *models.Transaction, kind string, now time.Time) models.Notification {
	notification := models.Notification{
		To:            transaction.BorrowerEmail,
		Type:          kind,
		TransactionID: transaction.ID,
		CreatedAt:     now,
	}
	dueDate := transaction.DueDate.Format("2 Jan 2006")
	switch kind {
	case common.NotificationTypeOndue:
		notification.Subject = "Borrowed equipment due today"
		notification.Body = fmt.Sprintf("Hello %s, the equipment you borrowed (transaction %s) is due back today, %s. Please return all items before the end of the day.",
			transaction.BorrowerName, transaction.ID, dueDate)
	case common.NotificationTypeReminder:
		notification.Subject = "Borrowed equipment due tomorrow"
		notification.Body = fmt.Sprintf("Hello %s, this is a reminder that the equipment you borrowed (transaction %s) is due back tomorrow, %s.",
			transaction.BorrowerName, transaction.ID, dueDate)
	case common.NotificationTypeOverdue:
		notification.Subject = "Borrowed equipment overdue"
		notification.Body = fmt.Sprintf("Hello %s, the equipment you borrowed (transaction %s) was due back on %s and is now overdue. A late fine is accruing daily; please return the items as soon as possible.",
			transaction.BorrowerName, transaction.ID, dueDate)
	}
	return notification
}
