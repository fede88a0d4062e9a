package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"bugtalk/internal/mail"
)

type Mailer interface {
	Send(ctx context.Context, job mail.Job) error
}

// MailWorker drains the mail queue and delivers every job through the Mailer.
type MailWorker struct {
	conn      *amqp.Connection
	mailer    Mailer
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type outcome int

const (
	outcomeAck outcome = iota
	outcomeRequeue
	outcomeDrop
)

func NewMailWorker(conn *amqp.Connection, mailer Mailer, queueName string) *MailWorker {
	return &MailWorker{
		conn:      conn,
		mailer:    mailer,
		queueName: queueName,
	}
}

func (w *MailWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if err := ch.Qos(8, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}

				switch w.handle(workerCtx, d.Body, d.Redelivered) {
				case outcomeAck:
					_ = d.Ack(false)
				case outcomeRequeue:
					_ = d.Nack(false, true)
				default:
					_ = d.Nack(false, false)
				}
			}
		}
	}()

	return nil
}

// handle delivers one job. Failed sends are retried once via redelivery.
func (w *MailWorker) handle(ctx context.Context, body []byte, redelivered bool) outcome {
	var job mail.Job
	if err := json.Unmarshal(body, &job); err != nil {
		log.Printf("mail worker decode job failed: %v", err)
		return outcomeDrop
	}

	if err := w.mailer.Send(ctx, job); err != nil {
		log.Printf("mail worker send %s mail to %s failed: %v", job.Kind, job.To, err)
		if redelivered {
			return outcomeDrop
		}
		return outcomeRequeue
	}

	log.Printf("mail worker sent %s mail to %s", job.Kind, job.To)
	return outcomeAck
}

func (w *MailWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
