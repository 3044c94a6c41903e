package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/labkit/borrowd/db/models"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ziflex/lecho/v3"
)

type declaredExchange struct {
	name    string
	kind    string
	durable bool
}

type publishedMessage struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeAMQPClient struct {
	exchanges   []declaredExchange
	published   []publishedMessage
	failPublish bool
	closed      bool
}

func (c *fakeAMQPClient) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	c.exchanges = append(c.exchanges, declaredExchange{name: name, kind: kind, durable: durable})
	return nil
}

func (c *fakeAMQPClient) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if c.failPublish {
		return errors.New("channel closed")
	}
	c.published = append(c.published, publishedMessage{exchange: exchange, key: key, msg: msg})
	return nil
}

func (c *fakeAMQPClient) Close() error {
	c.closed = true
	return nil
}

func newTestClient(t *testing.T, fake *fakeAMQPClient, options ...ClientOption) Client {
	options = append(options, WithLogger(lecho.New(io.Discard)))
	client, err := NewClient(fake, options...)
	require.NoError(t, err)
	return client
}

func TestNewClientDeclaresDurableTopicExchange(t *testing.T) {
	fake := &fakeAMQPClient{}
	newTestClient(t, fake)

	require.Len(t, fake.exchanges, 1)
	assert.Equal(t, "borrowd_notification", fake.exchanges[0].name)
	assert.Equal(t, "topic", fake.exchanges[0].kind)
	assert.True(t, fake.exchanges[0].durable)
}

func TestNewClientCustomExchange(t *testing.T) {
	fake := &fakeAMQPClient{}
	newTestClient(t, fake, WithNotificationExchange("lab_notices"))

	require.Len(t, fake.exchanges, 1)
	assert.Equal(t, "lab_notices", fake.exchanges[0].name)
}

func TestPublishNotification(t *testing.T) {
	fake := &fakeAMQPClient{}
	client := newTestClient(t, fake)

	notification := models.Notification{
		To:            "ada@example.edu",
		Subject:       "Borrowed equipment overdue",
		Body:          "Please return the items.",
		Type:          "overdue_notice",
		TransactionID: "tx-1",
		CreatedAt:     time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC),
	}
	err := client.PublishNotification(context.Background(), notification)
	require.NoError(t, err)

	require.Len(t, fake.published, 1)
	published := fake.published[0]
	assert.Equal(t, "borrowd_notification", published.exchange)
	assert.Equal(t, "notification.overdue_notice", published.key)
	assert.Equal(t, "application/json", published.msg.ContentType)
	assert.EqualValues(t, amqp.Persistent, published.msg.DeliveryMode)

	decoded := models.Notification{}
	require.NoError(t, json.Unmarshal(published.msg.Body, &decoded))
	assert.Equal(t, notification, decoded)
}

func TestPublishNotificationPropagatesBrokerError(t *testing.T) {
	fake := &fakeAMQPClient{failPublish: true}
	client := newTestClient(t, fake)

	err := client.PublishNotification(context.Background(), models.Notification{Type: "return_reminder"})
	assert.Error(t, err)
}

func TestCloseClosesConnection(t *testing.T) {
	fake := &fakeAMQPClient{}
	client := newTestClient(t, fake)

	require.NoError(t, client.Close())
	assert.True(t, fake.closed)
}
