package v2controllers

import (
	"net/http"
	"time"

	"github.com/labkit/borrowd/common"
	"github.com/labkit/borrowd/db/models"
	"github.com/labkit/borrowd/lib/responses"
	"github.com/labkit/borrowd/lib/service"
	"github.com/labstack/echo/v4"
)

// TransactionController : Read surface for the admin tool
type TransactionController struct {
	svc *service.BorrowdService
}

func NewTransactionController(svc *service.BorrowdService) *TransactionController {
	return &TransactionController{svc: svc}
}

type Transaction struct {
	ID               string        `json:"id"`
	BorrowerID       string        `json:"borrower_id"`
	BorrowerName     string        `json:"borrower_name"`
	BorrowerEmail    string        `json:"borrower_email,omitempty"`
	Items            []models.Item `json:"items"`
	BorrowedDate     time.Time     `json:"borrowed_date"`
	DueDate          time.Time     `json:"due_date"`
	Status           string        `json:"status"`
	TotalPrice       int64         `json:"total_price"`
	FineAmount       int64         `json:"fine_amount"`
	OndueNotified    bool          `json:"ondue_notified"`
	ReminderNotified bool          `json:"reminder_notified"`
	OverdueNotified  bool          `json:"overdue_notified"`
}

type ListTransactionsResponseBody struct {
	Transactions []Transaction `json:"transactions"`
}

var allStatuses = []string{
	common.StatusRequest,
	common.StatusOngoing,
	common.StatusOndue,
	common.StatusOverdue,
	common.StatusIncomplete,
	common.StatusIncompleteOndue,
	common.StatusIncompleteOverdue,
	common.StatusComplete,
	common.StatusCompleteAndOverdue,
}

var validStatuses = func() map[string]bool {
	valid := make(map[string]bool, len(allStatuses))
	for _, status := range allStatuses {
		valid[status] = true
	}
	return valid
}()

// nonTerminalStatuses is the default listing: everything still in
// flight, including pending requests the sweep itself never touches.
var nonTerminalStatuses = func() []string {
	statuses := []string{}
	for _, status := range allStatuses {
		if !common.IsTerminalStatus(status) {
			statuses = append(statuses, status)
		}
	}
	return statuses
}()

// ListTransactions godoc
// @Summary      List borrowing transactions
// @Description  Returns transactions filtered by status; without a filter, all non-terminal ones.
// @Accept       json
// @Produce      json
// @Tags         Transaction
// @Param        status  query  string  false  "Exact status to filter on"
// @Success      200  {object}  ListTransactionsResponseBody
// @Failure      400  {object}  responses.ErrorResponse
// @Failure      401  {object}  responses.ErrorResponse
// @Failure      500  {object}  responses.ErrorResponse
// @Router       /v2/transactions [get]
// @Security     ApiKeyAuth
func (controller *TransactionController) ListTransactions(c echo.Context) error {
	statuses := nonTerminalStatuses
	if status := c.QueryParam("status"); status != "" {
		if !validStatuses[status] {
			return c.JSON(responses.BadArgumentsError.HttpStatusCode, responses.BadArgumentsError)
		}
		statuses = []string{status}
	}

	transactions, err := controller.svc.Store.ListByStatus(c.Request().Context(), statuses...)
	if err != nil {
		return err
	}

	response := make([]Transaction, len(transactions))
	for i, transaction := range transactions {
		response[i] = Transaction{
			ID:               transaction.ID,
			BorrowerID:       transaction.BorrowerID,
			BorrowerName:     transaction.BorrowerName,
			BorrowerEmail:    transaction.BorrowerEmail,
			Items:            transaction.Items,
			BorrowedDate:     transaction.BorrowedDate,
			DueDate:          transaction.DueDate,
			Status:           transaction.Status,
			TotalPrice:       transaction.TotalPrice,
			FineAmount:       transaction.FineAmount,
			OndueNotified:    transaction.OndueNotified,
			ReminderNotified: transaction.ReminderNotified,
			OverdueNotified:  transaction.OverdueNotified,
		}
	}
	return c.JSON(http.StatusOK, &ListTransactionsResponseBody{Transactions: response})
}
