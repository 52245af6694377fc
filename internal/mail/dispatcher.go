package mail

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Options tune the dispatcher's retry and drop policy.
type Options struct {
	QueueSize   int           // messages waiting beyond this are dropped
	MaxAttempts int           // delivery attempts per message
	RetryDelay  time.Duration // wait before attempt n is n*RetryDelay
	SendTimeout time.Duration // deadline for a single attempt
}

// Stats are the dispatcher's delivery counters.
type Stats struct {
	Queued  uint64 `json:"queued"`
	Sent    uint64 `json:"sent"`
	Retried uint64 `json:"retried"`
	Failed  uint64 `json:"failed"`
	Dropped uint64 `json:"dropped"`
	Pending int    `json:"pending"`
}

// Dispatcher queues mail from request handlers and delivers it on a
// background worker. Send never blocks; a full queue drops the message.
// Delivery failures are retried up to MaxAttempts and then logged and
// counted, never reported to the caller.
type Dispatcher struct {
	sender Sender
	opts   Options
	queue  chan Message

	queued, sent, retried, failed, dropped atomic.Uint64
}

func NewDispatcher(sender Sender, opts Options) *Dispatcher {
	if opts.QueueSize < 1 {
		opts.QueueSize = 1
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 30 * time.Second
	}
	return &Dispatcher{sender: sender, opts: opts, queue: make(chan Message, opts.QueueSize)}
}

// Send enqueues a message and reports whether it was accepted.
func (d *Dispatcher) Send(subject, body, from string, to []string) bool {
	msg := Message{From: from, To: to, Subject: subject, Body: body}
	select {
	case d.queue <- msg:
		d.queued.Add(1)
		return true
	default:
		d.dropped.Add(1)
		logrus.WithFields(logrus.Fields{
			"subject": subject,
			"to":      to,
		}).Warn("Mail queue full, message dropped")
		return false
	}
}

// Run delivers queued messages until ctx is cancelled. Messages still
// queued at that point are abandoned.
func (d *Dispatcher) Run(ctx context.Context) error {
	logrus.WithField("queue_size", d.opts.QueueSize).Info("Mail dispatcher started")
	for {
		select {
		case <-ctx.Done():
			logrus.WithField("abandoned", len(d.queue)).Info("Mail dispatcher stopped")
			return nil
		case msg := <-d.queue:
			d.deliver(ctx, msg)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, msg Message) {
	var err error
	for attempt := 1; attempt <= d.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			d.retried.Add(1)
			if !sleep(ctx, time.Duration(attempt-1)*d.opts.RetryDelay) {
				break
			}
		}
		sendCtx, cancel := context.WithTimeout(ctx, d.opts.SendTimeout)
		err = d.sender.Send(sendCtx, msg)
		cancel()
		if err == nil {
			d.sent.Add(1)
			logrus.WithFields(logrus.Fields{
				"subject": msg.Subject,
				"attempt": attempt,
			}).Debug("Mail delivered")
			return
		}
		logrus.WithFields(logrus.Fields{
			"subject": msg.Subject,
			"attempt": attempt,
			"error":   err.Error(),
		}).Warn("Mail delivery attempt failed")
	}
	d.failed.Add(1)
	logrus.WithFields(logrus.Fields{
		"subject": msg.Subject,
		"to":      msg.To,
	}).Error("Mail delivery gave up")
}

// Stats returns a snapshot of the counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Queued:  d.queued.Load(),
		Sent:    d.sent.Load(),
		Retried: d.retried.Load(),
		Failed:  d.failed.Load(),
		Dropped: d.dropped.Load(),
		Pending: len(d.queue),
	}
}

// sleep waits for dur and reports false if ctx ended first.
func sleep(ctx context.Context, dur time.Duration) bool {
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
