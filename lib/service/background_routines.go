package service

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
)

// StartSweepRoutine runs the maintenance sweep once a day at the
// configured wall-clock hour in the configured timezone, until ctx is
// cancelled. A failed sweep is logged and reported; the routine keeps
// running and the next scheduled run retries from scratch.
func (svc *BorrowdService) StartSweepRoutine(ctx context.Context) error {
	for {
		next := nextSweepTime(time.Now().In(svc.Location), svc.Config.SweepHour)
		svc.Logger.Infof("Next scheduled sweep at %s", next)

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		result, err := svc.Sweep(ctx, time.Now())
		if err != nil {
			svc.Logger.Errorf("Scheduled sweep failed: %v", err)
			sentry.CaptureException(err)
			continue
		}
		svc.Logger.Infof("Scheduled sweep finished: %d updated, %d skipped, %d ondue, %d reminders, %d overdue, %d archived",
			result.Updated, result.Skipped, result.OndueNotified, result.ReminderNotified, result.OverdueNotified, result.Archived)
	}
}

func nextSweepTime(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
