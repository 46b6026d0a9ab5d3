package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/gomail.v2"
)

const (
	queueKey    = "mail:queue"
	maxAttempts = 3
	baseBackoff = 5 * time.Second
)

type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Queue accepts mail for at-least-once delivery. Enqueue is fire-and-forget
// from the caller's perspective; delivery failures never reach the caller.
type Queue interface {
	Enqueue(ctx context.Context, msg Message) error
}

// Sender performs one delivery attempt.
type Sender interface {
	Send(msg Message) error
}

type redisQueue struct {
	client *redis.Client
}

func NewRedisQueue(client *redis.Client) Queue {
	return &redisQueue{client: client}
}

func (q *redisQueue) Enqueue(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("mail marshal: %w", err)
	}
	return q.client.LPush(ctx, queueKey, payload).Err()
}

type smtpSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender builds the production sender. from is the account address;
// the message's From is used as the display name only.
func NewSMTPSender(host string, port int, username, password string) Sender {
	return &smtpSender{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   username,
	}
}

func (s *smtpSender) Send(msg Message) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, msg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)
	return s.dialer.DialAndSend(m)
}

// Worker drains the queue and delivers with bounded retry: 3 attempts,
// exponential backoff. A message that exhausts its attempts is dropped with a
// log line; it never blocks the queue.
type Worker struct {
	client *redis.Client
	sender Sender
}

func NewWorker(client *redis.Client, sender Sender) *Worker {
	return &Worker{client: client, sender: sender}
}

func (w *Worker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := w.client.BRPop(ctx, time.Second, queueKey).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("mail queue pop failed: %v", err)
			time.Sleep(time.Second)
			continue
		}

		var msg Message
		if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
			log.Printf("dropping malformed mail job: %v", err)
			continue
		}

		w.deliver(ctx, msg)
	}
}

func (w *Worker) deliver(ctx context.Context, msg Message) {
	backoff := baseBackoff
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := w.sender.Send(msg); err == nil {
			return
		} else if attempt == maxAttempts {
			log.Printf("mail to %s failed after %d attempts: %v", msg.To, maxAttempts, err)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
