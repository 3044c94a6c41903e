package transport

import (
	v2controllers "github.com/labkit/borrowd/controllers_v2"
	"github.com/labkit/borrowd/lib/service"
	"github.com/labstack/echo/v4"
)

func RegisterV2Endpoints(svc *service.BorrowdService, e *echo.Echo, admin *echo.Group, strictRateLimitMiddleware echo.MiddlewareFunc, logMw echo.MiddlewareFunc) {
	e.GET("/v2/health", v2controllers.NewHealthController(svc).Check, logMw)

	sweepCtrl := v2controllers.NewSweepController(svc)
	transactionCtrl := v2controllers.NewTransactionController(svc)

	admin.POST("/v2/sweep", sweepCtrl.Sweep, strictRateLimitMiddleware)
	admin.GET("/v2/transactions", transactionCtrl.ListTransactions)
}
