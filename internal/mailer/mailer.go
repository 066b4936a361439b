// Package mailer отправляет best-effort уведомления, которые не блокируют запрос и не роняют его.
package mailer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"plantobill/internal/logs"
)

type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender: фактическая доставка (SMTP, лог, тестовый перехватчик).
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// Notifier: сервис ставит письмо в очередь и не ждёт отправки.
type Notifier interface {
	Notify(m Message)
}

// Queue: ограниченный буфер и один воркер.
type Queue struct {
	sender  Sender
	ch      chan Message
	wg      conc.WaitGroup
	timeout time.Duration
	log     *logrus.Entry

	mu     sync.RWMutex
	closed bool
}

func NewQueue(sender Sender, size int) *Queue {
	if size <= 0 {
		size = 100
	}
	q := &Queue{
		sender:  sender,
		ch:      make(chan Message, size),
		timeout: 30 * time.Second,
		log:     logs.Component("mailer"),
	}
	q.wg.Go(q.loop)
	return q
}

// Notify не ждёт отправки; при переполнении письмо отбрасывается с записью в лог.
func (q *Queue) Notify(m Message) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.log.WithField("to", m.To).Warn("queue closed, message dropped")
		return
	}
	select {
	case q.ch <- m:
	default:
		q.log.WithField("to", m.To).Warn("queue full, message dropped")
	}
}

func (q *Queue) loop() {
	for m := range q.ch {
		q.deliver(m)
	}
}

func (q *Queue) deliver(m Message) {
	var pc panics.Catcher
	pc.Try(func() {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		defer cancel()
		if err := q.sender.Send(ctx, m); err != nil {
			q.log.WithError(err).WithField("to", m.To).Error("send failed")
			return
		}
		q.log.WithFields(logrus.Fields{"to": m.To, "subject": m.Subject}).Debug("sent")
	})
	if r := pc.Recovered(); r != nil {
		q.log.WithField("to", m.To).Errorf("sender panic: %s", r.String())
	}
}

// Close перестаёт принимать письма и дожидается отправки очереди.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

// LogSender пишет письмо в лог вместо SMTP, когда почта выключена.
type LogSender struct{}

func (LogSender) Send(_ context.Context, m Message) error {
	logs.Component("mailer").WithFields(logrus.Fields{"to": m.To, "subject": m.Subject}).
		Info("mail disabled, message logged instead of sent")
	return nil
}
