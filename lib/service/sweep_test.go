package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/labkit/borrowd/common"
	"github.com/labkit/borrowd/db/models"
	"github.com/labkit/borrowd/db/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ziflex/lecho/v3"
)

// memStore is an in-memory TransactionStore for sweep tests.
type memStore struct {
	transactions map[string]*models.Transaction
	archived     []models.Record
	writes       int
	failList     bool
	failPatches  bool
}

func newMemStore(transactions ...*models.Transaction) *memStore {
	s := &memStore{transactions: map[string]*models.Transaction{}}
	for _, transaction := range transactions {
		s.transactions[transaction.ID] = transaction
	}
	return s
}

func (s *memStore) list(match func(*models.Transaction) bool) []models.Transaction {
	result := []models.Transaction{}
	for _, transaction := range s.transactions {
		if match(transaction) {
			result = append(result, *transaction)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func contains(statuses []string, status string) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func (s *memStore) ListByStatus(ctx context.Context, statuses ...string) ([]models.Transaction, error) {
	if s.failList {
		return nil, errors.New("store unreachable")
	}
	return s.list(func(t *models.Transaction) bool {
		return contains(statuses, t.Status)
	}), nil
}

func (s *memStore) ListDueBetween(ctx context.Context, start, end time.Time, statuses ...string) ([]models.Transaction, error) {
	if s.failList {
		return nil, errors.New("store unreachable")
	}
	return s.list(func(t *models.Transaction) bool {
		if t.DueDate.Before(start) || !t.DueDate.Before(end) {
			return false
		}
		return len(statuses) == 0 || contains(statuses, t.Status)
	}), nil
}

func (s *memStore) ApplyPatches(ctx context.Context, patches []store.TransactionPatch) error {
	if s.failPatches {
		return errors.New("batch commit rejected")
	}
	for _, patch := range patches {
		transaction, ok := s.transactions[patch.ID]
		if !ok {
			continue
		}
		if patch.Status != nil {
			transaction.Status = *patch.Status
		}
		if patch.FineAmount != nil {
			transaction.FineAmount = *patch.FineAmount
		}
		if patch.OndueNotified != nil {
			transaction.OndueNotified = *patch.OndueNotified
		}
		if patch.ReminderNotified != nil {
			transaction.ReminderNotified = *patch.ReminderNotified
		}
		if patch.OverdueNotified != nil {
			transaction.OverdueNotified = *patch.OverdueNotified
		}
		s.writes++
	}
	return nil
}

func (s *memStore) Archive(ctx context.Context, transaction *models.Transaction) error {
	s.archived = append(s.archived, models.Record{TransactionID: transaction.ID, Status: transaction.Status})
	delete(s.transactions, transaction.ID)
	return nil
}

// memSink is an in-memory notification sink.
type memSink struct {
	published   []models.Notification
	failPublish bool
}

func (s *memSink) PublishNotification(ctx context.Context, notification models.Notification) error {
	if s.failPublish {
		return errors.New("broker unavailable")
	}
	s.published = append(s.published, notification)
	return nil
}

func (s *memSink) Close() error { return nil }

func newTestService(memStore *memStore, sink *memSink) *BorrowdService {
	svc := &BorrowdService{
		Config:   &Config{FinePerDay: 10, SweepBatchSize: 200},
		Store:    memStore,
		Logger:   lecho.New(io.Discard),
		Location: time.UTC,
	}
	if sink != nil {
		svc.RabbitMQClient = sink
	}
	return svc
}

func testTransaction(id, status string, dueDate time.Time, items []models.Item) *models.Transaction {
	return &models.Transaction{
		ID:            id,
		BorrowerID:    "borrower-1",
		BorrowerName:  "Ada Lovelace",
		BorrowerEmail: "ada@example.edu",
		Items:         items,
		BorrowedDate:  dueDate.AddDate(0, 0, -7),
		DueDate:       dueDate,
		Status:        status,
		TotalPrice:    100,
	}
}

var sweepNow = time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

func TestSweepRecomputesStatusAndFine(t *testing.T) {
	transaction := testTransaction("tx-1", common.StatusOngoing, date(2024, 3, 8), []models.Item{notReturned(2)})
	memStore := newMemStore(transaction)
	sink := &memSink{}
	svc := newTestService(memStore, sink)

	result, err := svc.Sweep(context.Background(), sweepNow)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, common.StatusOverdue, transaction.Status)
	assert.EqualValues(t, 20, transaction.FineAmount)

	// the freshly overdue transaction also gets its overdue notice
	assert.Equal(t, 1, result.OverdueNotified)
	require.Len(t, sink.published, 1)
	assert.Equal(t, common.NotificationTypeOverdue, sink.published[0].Type)
	assert.Equal(t, "ada@example.edu", sink.published[0].To)
	assert.Equal(t, "tx-1", sink.published[0].TransactionID)
	assert.True(t, transaction.OverdueNotified)
}

func TestSweepIsIdempotent(t *testing.T) {
	memStore := newMemStore(
		testTransaction("tx-1", common.StatusOngoing, date(2024, 3, 8), []models.Item{notReturned(2)}),
		testTransaction("tx-2", common.StatusOngoing, date(2024, 3, 10), []models.Item{notReturned(1)}),
		testTransaction("tx-3", common.StatusOngoing, date(2024, 3, 11), []models.Item{notReturned(1)}),
	)
	sink := &memSink{}
	svc := newTestService(memStore, sink)

	_, err := svc.Sweep(context.Background(), sweepNow)
	require.NoError(t, err)

	writesAfterFirst := memStore.writes
	publishedAfterFirst := len(sink.published)
	assert.Greater(t, writesAfterFirst, 0)
	assert.Greater(t, publishedAfterFirst, 0)

	second, err := svc.Sweep(context.Background(), sweepNow)
	require.NoError(t, err)

	assert.Equal(t, 0, second.Updated)
	assert.Equal(t, 0, second.OndueNotified)
	assert.Equal(t, 0, second.ReminderNotified)
	assert.Equal(t, 0, second.OverdueNotified)
	assert.Equal(t, writesAfterFirst, memStore.writes, "second sweep must not write")
	assert.Equal(t, publishedAfterFirst, len(sink.published), "second sweep must not publish")
}

func TestSweepDueTomorrowReminder(t *testing.T) {
	transaction := testTransaction("tx-1", common.StatusOngoing, date(2024, 3, 11), []models.Item{notReturned(1)})
	memStore := newMemStore(transaction)
	sink := &memSink{}
	svc := newTestService(memStore, sink)

	result, err := svc.Sweep(context.Background(), sweepNow)
	require.NoError(t, err)

	assert.Equal(t, 1, result.ReminderNotified)
	require.Len(t, sink.published, 1)
	assert.Equal(t, common.NotificationTypeReminder, sink.published[0].Type)
	assert.True(t, transaction.ReminderNotified)

	second, err := svc.Sweep(context.Background(), sweepNow)
	require.NoError(t, err)
	assert.Equal(t, 0, second.ReminderNotified)
	assert.Len(t, sink.published, 1)
}

func TestSweepDueTodayNotice(t *testing.T) {
	transaction := testTransaction("tx-1", common.StatusOngoing, date(2024, 3, 10), []models.Item{notReturned(1)})
	memStore := newMemStore(transaction)
	sink := &memSink{}
	svc := newTestService(memStore, sink)

	result, err := svc.Sweep(context.Background(), sweepNow)
	require.NoError(t, err)

	assert.Equal(t, common.StatusOndue, transaction.Status)
	assert.EqualValues(t, 0, transaction.FineAmount)
	assert.Equal(t, 1, result.OndueNotified)
	require.Len(t, sink.published, 1)
	assert.Equal(t, common.NotificationTypeOndue, sink.published[0].Type)
	assert.True(t, transaction.OndueNotified)
}

func TestSweepOverdueNoticeFiresOncePerEpisode(t *testing.T) {
	transaction := testTransaction("tx-1", common.StatusOverdue, date(2024, 3, 1), []models.Item{notReturned(1)})
	transaction.FineAmount = 90
	transaction.OverdueNotified = true
	memStore := newMemStore(transaction)
	sink := &memSink{}
	svc := newTestService(memStore, sink)

	// days keep passing, fine keeps growing, but the flag stays set
	for day := 0; day < 5; day++ {
		result, err := svc.Sweep(context.Background(), sweepNow.AddDate(0, 0, day))
		require.NoError(t, err)
		assert.Equal(t, 0, result.OverdueNotified)
	}
	assert.Empty(t, sink.published)
	assert.EqualValues(t, 130, transaction.FineAmount) // 13 days late at the last sweep
}

func TestSweepFineIsMonotonicWhileOverdue(t *testing.T) {
	transaction := testTransaction("tx-1", common.StatusOngoing, date(2024, 3, 8), []models.Item{notReturned(1)})
	memStore := newMemStore(transaction)
	svc := newTestService(memStore, &memSink{})

	for day := 0; day < 7; day++ {
		_, err := svc.Sweep(context.Background(), sweepNow.AddDate(0, 0, day))
		require.NoError(t, err)
		// two days late at the first sweep, one more per calendar day
		assert.EqualValues(t, (day+2)*10, transaction.FineAmount)
	}
}

func TestSweepLeavesRequestAlone(t *testing.T) {
	transaction := testTransaction("tx-1", common.StatusRequest, date(2023, 1, 1), []models.Item{notReturned(1)})
	memStore := newMemStore(transaction)
	sink := &memSink{}
	svc := newTestService(memStore, sink)

	result, err := svc.Sweep(context.Background(), sweepNow)
	require.NoError(t, err)

	assert.Equal(t, common.StatusRequest, transaction.Status)
	assert.EqualValues(t, 0, transaction.FineAmount)
	assert.Equal(t, 0, result.Updated)
	assert.Empty(t, sink.published)
	assert.Equal(t, 0, memStore.writes)
}

func TestSweepMarksFullyReturnedComplete(t *testing.T) {
	transaction := testTransaction("tx-1", common.StatusIncomplete, date(2024, 3, 20), []models.Item{fullyReturned(2), fullyReturned(1)})
	memStore := newMemStore(transaction)
	svc := newTestService(memStore, &memSink{})

	result, err := svc.Sweep(context.Background(), sweepNow)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, common.StatusComplete, transaction.Status)
	assert.EqualValues(t, 0, transaction.FineAmount)
}

func TestSweepSkipsMissingContact(t *testing.T) {
	transaction := testTransaction("tx-1", common.StatusOngoing, date(2024, 3, 10), []models.Item{notReturned(1)})
	transaction.BorrowerEmail = ""
	memStore := newMemStore(transaction)
	sink := &memSink{}
	svc := newTestService(memStore, sink)

	result, err := svc.Sweep(context.Background(), sweepNow)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.OndueNotified)
	assert.Empty(t, sink.published)
	assert.False(t, transaction.OndueNotified, "flag must not be set without a queued notification")
}

func TestSweepSkipsMissingDueDate(t *testing.T) {
	transaction := testTransaction("tx-1", common.StatusOngoing, time.Time{}, []models.Item{notReturned(1)})
	good := testTransaction("tx-2", common.StatusOngoing, date(2024, 3, 8), []models.Item{notReturned(1)})
	memStore := newMemStore(transaction, good)
	svc := newTestService(memStore, &memSink{})

	result, err := svc.Sweep(context.Background(), sweepNow)
	require.NoError(t, err)

	// the bad record is skipped, the good one still gets recomputed
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, common.StatusOverdue, good.Status)
}

func TestSweepPublishFailureSkipsRecordOnly(t *testing.T) {
	memStore := newMemStore(
		testTransaction("tx-1", common.StatusOngoing, date(2024, 3, 10), []models.Item{notReturned(1)}),
	)
	sink := &memSink{failPublish: true}
	svc := newTestService(memStore, sink)

	result, err := svc.Sweep(context.Background(), sweepNow)
	require.NoError(t, err, "a failed publish is a per-record error, not a sweep failure")

	assert.Equal(t, 0, result.OndueNotified)
	assert.Equal(t, 1, result.Skipped)
	assert.False(t, memStore.transactions["tx-1"].OndueNotified)
}

func TestSweepQueryFailureFailsPass(t *testing.T) {
	memStore := newMemStore()
	memStore.failList = true
	svc := newTestService(memStore, &memSink{})

	_, err := svc.Sweep(context.Background(), sweepNow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recompute pass")
}

func TestSweepBatchCommitFailureFailsPass(t *testing.T) {
	memStore := newMemStore(
		testTransaction("tx-1", common.StatusOngoing, date(2024, 3, 8), []models.Item{notReturned(1)}),
	)
	memStore.failPatches = true
	svc := newTestService(memStore, &memSink{})

	_, err := svc.Sweep(context.Background(), sweepNow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recompute pass")
}

func TestSweepWithoutSinkSkipsNotificationPasses(t *testing.T) {
	transaction := testTransaction("tx-1", common.StatusOngoing, date(2024, 3, 8), []models.Item{notReturned(1)})
	memStore := newMemStore(transaction)
	svc := newTestService(memStore, nil)

	result, err := svc.Sweep(context.Background(), sweepNow)
	require.NoError(t, err)

	// recompute still happens, notifications do not
	assert.Equal(t, common.StatusOverdue, transaction.Status)
	assert.Equal(t, 0, result.OverdueNotified)
	assert.False(t, transaction.OverdueNotified)
}

func TestSweepArchivePass(t *testing.T) {
	completed := testTransaction("tx-1", common.StatusComplete, date(2024, 3, 1), []models.Item{fullyReturned(1)})
	active := testTransaction("tx-2", common.StatusOngoing, date(2024, 3, 20), []models.Item{notReturned(1)})
	memStore := newMemStore(completed, active)
	svc := newTestService(memStore, &memSink{})
	svc.Config.ArchiveCompleted = true

	result, err := svc.Sweep(context.Background(), sweepNow)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Archived)
	require.Len(t, memStore.archived, 1)
	assert.Equal(t, "tx-1", memStore.archived[0].TransactionID)
	_, stillThere := memStore.transactions["tx-1"]
	assert.False(t, stillThere)
	_, activeKept := memStore.transactions["tx-2"]
	assert.True(t, activeKept)
}
