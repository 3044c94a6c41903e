package rabbitmq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/labkit/borrowd/db/models"
	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/ziflex/lecho/v3"
)

// bufPool reuses encoding buffers between publishes. With a single sweep
// goroutine there is one buffer in here at all times; concurrent sweeps
// scale it up as needed.
var bufPool = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

const contentTypeJSON = "application/json"

// Client is the notification sink: append-only publication of borrower
// notifications for the downstream mailer. Our contract ends once the
// message is accepted by the broker.
type Client interface {
	PublishNotification(ctx context.Context, notification models.Notification) error
	// Close will close all connections to rabbitmq
	Close() error
}

type DefaultClient struct {
	amqpClient AMQPClient

	logger *lecho.Logger

	notificationExchange string
}

type ClientOption = func(client *DefaultClient)

func WithNotificationExchange(exchange string) ClientOption {
	return func(client *DefaultClient) {
		client.notificationExchange = exchange
	}
}

func WithLogger(logger *lecho.Logger) ClientOption {
	return func(client *DefaultClient) {
		client.logger = logger
	}
}

// NewClient wraps an AMQP connection into the notification sink and
// declares the (durable, topic) notification exchange.
func NewClient(amqpClient AMQPClient, options ...ClientOption) (Client, error) {
	client := &DefaultClient{
		amqpClient: amqpClient,

		logger: lecho.New(
			os.Stdout,
			lecho.WithLevel(log.DEBUG),
			lecho.WithTimestamp(),
		),

		notificationExchange: "borrowd_notification",
	}

	for _, opt := range options {
		opt(client)
	}

	err := client.amqpClient.ExchangeDeclare(
		client.notificationExchange,
		// topic exchange so the mailer can bind per notification kind
		"topic",
		// Durable and Non-Auto-Deleted exchanges will survive server restarts and remain
		// declared when there are no remaining bindings.
		true,
		false,
		// Non-Internal exchange's accept direct publishing
		false,
		// Nowait: We set this to false as we want to wait for a server response
		// to check whether the exchange was created succesfully
		false,
		nil,
	)
	if err != nil {
		return nil, err
	}

	return client, nil
}

func (client *DefaultClient) Close() error { return client.amqpClient.Close() }

// PublishNotification appends one notification record to the exchange,
// routed as notification.<type>. Messages are published persistent so
// they survive a broker restart once queued.
func (client *DefaultClient) PublishNotification(ctx context.Context, notification models.Notification) error {
	payload := bufPool.Get().(*bytes.Buffer)
	payload.Reset()
	defer bufPool.Put(payload)

	if err := json.NewEncoder(payload).Encode(notification); err != nil {
		return err
	}

	key := fmt.Sprintf("notification.%s", notification.Type)

	err := client.amqpClient.PublishWithContext(ctx,
		client.notificationExchange,
		key,
		false,
		false,
		amqp.Publishing{
			ContentType:  contentTypeJSON,
			DeliveryMode: amqp.Persistent,
			Body:         payload.Bytes(),
		},
	)
	if err != nil {
		return err
	}

	client.logger.Debugf("Published %s notification for transaction %s", notification.Type, notification.TransactionID)

	return nil
}
