package event

import (
	"encoding/json"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// progress event routing keys
const (
	LessonCompleted = "progress.lesson_completed"
	QuizScored      = "progress.quiz_scored"
	CourseCompleted = "progress.course_completed"
	ProgressCleared = "progress.cleared"
)

// Publisher emits domain events on an AMQP topic exchange. Publishing is
// best-effort: failures are logged and never propagate to the transition
// that triggered the event.
type Publisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *zap.Logger
}

// NewPublisher connect and declare the topic exchange
func NewPublisher(amqpURI, exchange string, logger *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(amqpURI)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &Publisher{conn: conn, channel: ch, exchange: exchange, logger: logger}, nil
}

// Publish emit an event, the event type doubles as the routing key
func (p *Publisher) Publish(eventType string, payload interface{}) {
	if p == nil {
		return
	}
	event := map[string]interface{}{
		"type":    eventType,
		"payload": payload,
	}
	body, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to serialize event", zap.String("event.type", eventType), zap.Error(err))
		return
	}

	err = p.channel.Publish(
		p.exchange,
		eventType, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		p.logger.Error("Failed to publish event", zap.String("event.type", eventType), zap.Error(err))
		return
	}
	p.logger.Debug("Published event", zap.String("event.type", eventType))
}

// Close release the channel and connection
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
