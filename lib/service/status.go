package service

import (
	"math"
	"time"

	"github.com/labkit/borrowd/common"
	"github.com/labkit/borrowd/db/models"
)

// startOfDay returns midnight of t's calendar day in loc.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// classifyReturns reports whether every item has been fully returned and
// whether at least one item has any returned quantity. An empty item
// list counts as fully returned.
func classifyReturns(items []models.Item) (allReturned, someReturned bool) {
	allReturned = true
	for _, item := range items {
		if item.ReturnedQuantity > 0 || item.Returned {
			someReturned = true
		}
		if !item.Returned || item.ReturnedQuantity < item.Quantity {
			allReturned = false
		}
	}
	return allReturned, someReturned
}

// DeriveStatus computes the status a transaction should hold right now,
// from its items, its due date and its stored status. It is pure: no
// I/O, deterministic for fixed inputs.
//
// A Request transaction is never promoted here; only an external
// approval moves it out of Request.
func DeriveStatus(items []models.Item, dueDate time.Time, currentStatus string, now time.Time, loc *time.Location) string {
	if currentStatus == common.StatusRequest {
		return common.StatusRequest
	}

	nowDay := startOfDay(now, loc)
	dueDay := startOfDay(dueDate, loc)
	overdue := nowDay.After(dueDay)
	ondue := nowDay.Equal(dueDay)

	allReturned, someReturned := classifyReturns(items)

	switch {
	case allReturned:
		if overdue {
			return common.StatusCompleteAndOverdue
		}
		return common.StatusComplete
	case someReturned:
		if overdue {
			return common.StatusIncompleteOverdue
		}
		if ondue {
			return common.StatusIncompleteOndue
		}
		return common.StatusIncomplete
	default:
		if overdue {
			return common.StatusOverdue
		}
		if ondue {
			return common.StatusOndue
		}
		return common.StatusOngoing
	}
}

// CalculateFine returns the accrued fine at evaluation time now: zero up
// to and including the due date, then finePerDay per calendar day late,
// partial days rounded up. The result depends only on the two dates, so
// recomputing on the same day yields the same amount; callers must SET
// the fine to this value, never add it to a previous one.
func CalculateFine(dueDate, now time.Time, finePerDay int64, loc *time.Location) int64 {
	dueDay := startOfDay(dueDate, loc)
	nowDay := startOfDay(now, loc)
	if !nowDay.After(dueDay) {
		return 0
	}
	// Midnight-to-midnight distance is not always a multiple of 24h
	// around DST shifts, hence the ceil.
	daysLate := int64(math.Ceil(nowDay.Sub(dueDay).Hours() / 24))
	return daysLate * finePerDay
}
