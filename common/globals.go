package common

const (
	StatusRequest            = "Request"
	StatusOngoing            = "Ongoing"
	StatusOndue              = "Ondue"
	StatusOverdue            = "Overdue"
	StatusIncomplete         = "Incomplete"
	StatusIncompleteOndue    = "Incomplete and Ondue"
	StatusIncompleteOverdue  = "Incomplete and Overdue"
	StatusComplete           = "Complete"
	StatusCompleteAndOverdue = "Complete and Overdue"

	NotificationTypeOndue    = "ondue_notice"
	NotificationTypeReminder = "return_reminder"
	NotificationTypeOverdue  = "overdue_notice"
)

// ActiveStatuses are the statuses the maintenance sweep recomputes.
// Request transactions stay untouched until an external approval moves
// them, and the Complete* statuses are terminal.
var ActiveStatuses = []string{
	StatusOngoing,
	StatusOndue,
	StatusOverdue,
	StatusIncomplete,
	StatusIncompleteOndue,
	StatusIncompleteOverdue,
}

func IsTerminalStatus(status string) bool {
	return status == StatusComplete || status == StatusCompleteAndOverdue
}
