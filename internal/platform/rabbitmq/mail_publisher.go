package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"bugtalk/internal/mail"
)

// MailPublisher hands mail jobs to the worker through a durable queue.
type MailPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewMailPublisher(conn *amqp.Connection, queueName string) *MailPublisher {
	return &MailPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *MailPublisher) SendVerification(ctx context.Context, email, token string) error {
	return p.Publish(ctx, mail.Job{Kind: mail.KindVerify, To: email, Token: token})
}

func (p *MailPublisher) SendPasswordReset(ctx context.Context, email, token string) error {
	return p.Publish(ctx, mail.Job{Kind: mail.KindReset, To: email, Token: token})
}

func (p *MailPublisher) Publish(ctx context.Context, job mail.Job) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal mail job failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish mail job failed: %w", err)
	}
	return nil
}
