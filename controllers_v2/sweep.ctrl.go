package v2controllers

import (
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/labkit/borrowd/lib/responses"
	"github.com/labkit/borrowd/lib/service"
	"github.com/labstack/echo/v4"
)

// SweepController : Manual trigger for the maintenance sweep
type SweepController struct {
	svc *service.BorrowdService
}

func NewSweepController(svc *service.BorrowdService) *SweepController {
	return &SweepController{svc: svc}
}

// Sweep godoc
// @Summary      Run the maintenance sweep
// @Description  Recomputes transaction statuses and fines and dispatches due/overdue notifications. Same logic as the daily scheduled run.
// @Accept       json
// @Produce      json
// @Tags         Maintenance
// @Success      200  {object}  service.SweepResult
// @Failure      401  {object}  responses.ErrorResponse
// @Failure      500  {object}  responses.ErrorResponse
// @Router       /v2/sweep [post]
// @Security     ApiKeyAuth
func (controller *SweepController) Sweep(c echo.Context) error {
	result, err := controller.svc.Sweep(c.Request().Context(), time.Now())
	if err != nil {
		controller.svc.Logger.Errorf("Manual sweep failed: %v", err)
		sentry.CaptureException(err)
		return c.JSON(responses.SweepFailedError.HttpStatusCode, responses.SweepFailedError)
	}

	controller.svc.Logger.Infof("Manual sweep finished: %d updated, %d skipped, %d ondue, %d reminders, %d overdue, %d archived",
		result.Updated, result.Skipped, result.OndueNotified, result.ReminderNotified, result.OverdueNotified, result.Archived)
	return c.JSON(http.StatusOK, result)
}
