package queue

import (
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

const retriesHeader = "x-retries"

// Publisher is the publishing half of an AMQP channel.
type Publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

func retries(headers amqp091.Table) int {
	switch v := headers[retriesHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// nextDestination picks the retry queue of queueName until the message has
// been retried maxRetries times, then its dead-letter queue.
func nextDestination(headers amqp091.Table, queueName string, maxRetries int) (string, amqp091.Table) {
	n := retries(headers)
	if n >= maxRetries {
		return queueName + "_dlq", headers
	}

	next := amqp091.Table{}
	for k, v := range headers {
		next[k] = v
	}
	next[retriesHeader] = int32(n + 1)
	return queueName + "_retry", next
}

// HandleProcessingError moves a failed message to the retry or dead-letter
// queue and acknowledges it. If that publish fails, the message is requeued.
func HandleProcessingError(ch Publisher, msg amqp091.Delivery, queueName string, maxRetries int) {
	target, headers := nextDestination(msg.Headers, queueName, maxRetries)
	if target == queueName+"_dlq" {
		logger.Warn("[Queue] Sending message to DLQ", "dlq", target, "retries", retries(msg.Headers))
	} else {
		logger.Info("[Queue] Scheduling retry", "retry_queue", target, "retry", headers[retriesHeader])
	}

	pubErr := ch.Publish(
		"",
		target,
		false,
		false,
		amqp091.Publishing{
			ContentType:  msg.ContentType,
			Body:         msg.Body,
			Headers:      headers,
			DeliveryMode: amqp091.Persistent,
		},
	)
	if pubErr != nil {
		logger.Error("[Queue] Failed to publish failed message", "target", target, "err", pubErr)
		if err := msg.Nack(false, true); err != nil {
			logger.Error("[Queue] Failed to nack message", "err", err)
		}
		return
	}
	if err := msg.Ack(false); err != nil {
		logger.Error("[Queue] Failed to ack message", "err", err)
	}
}
