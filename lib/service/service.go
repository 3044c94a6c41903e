package service

import (
	"time"

	"github.com/labkit/borrowd/db/store"
	"github.com/labkit/borrowd/rabbitmq"
	"github.com/uptrace/bun"
	"github.com/ziflex/lecho/v3"
)

type BorrowdService struct {
	Config         *Config
	DB             *bun.DB
	Store          store.TransactionStore
	Logger         *lecho.Logger
	RabbitMQClient rabbitmq.Client
	// Location is the timezone all due-date midnight boundaries are
	// evaluated in.
	Location *time.Location
}
