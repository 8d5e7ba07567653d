package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cinema-booking-engine/internal/model"
	"cinema-booking-engine/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const notificationQueueName = "booking.notifications"

// AMQPNotificationQueue implements NotificationQueue on RabbitMQ for
// deployments where the notification dispatcher runs as a separate process.
// The queue is durable and messages persistent so committed events survive a
// broker restart.
type AMQPNotificationQueue struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPNotificationQueue(url string) (*AMQPNotificationQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	if _, err := ch.QueueDeclare(
		notificationQueueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("amqp queue declare: %w", err)
	}

	return &AMQPNotificationQueue{conn: conn, ch: ch}, nil
}

func (q *AMQPNotificationQueue) PublishEvent(ctx context.Context, event *model.NotificationEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return q.ch.PublishWithContext(ctx,
		"",                    // default exchange
		notificationQueueName, // routing key = queue name
		false,                 // mandatory
		false,                 // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}

func (q *AMQPNotificationQueue) SubscribeEvents(ctx context.Context) (<-chan Delivery, error) {
	msgs, err := q.ch.Consume(
		notificationQueueName,
		"",    // consumer tag
		false, // autoAck: the worker acks after the handler succeeds
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("amqp consume: %w", err)
	}

	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				var event model.NotificationEvent
				if err := json.Unmarshal(msg.Body, &event); err != nil {
					logger.WithComponent("mq").Warn("unmarshal event failed", zap.String("message_id", msg.MessageId), zap.Error(err))
					_ = msg.Nack(false, false) // malformed, drop
					continue
				}

				delivery := msg
				d := Delivery{
					Event: &event,
					Ack: func() {
						if err := delivery.Ack(false); err != nil {
							logger.WithComponent("mq").Error("ack failed", zap.String("message_id", delivery.MessageId), zap.Error(err))
						}
					},
					Nack: func(requeue bool) {
						if err := delivery.Nack(false, requeue); err != nil {
							logger.WithComponent("mq").Error("nack failed", zap.String("message_id", delivery.MessageId), zap.Error(err))
						}
					},
				}

				select {
				case out <- d:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (q *AMQPNotificationQueue) Close() error {
	if err := q.ch.Close(); err != nil {
		q.conn.Close()
		return err
	}
	return q.conn.Close()
}
