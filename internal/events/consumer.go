package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// RunMailConsumer reads mail_events and hands each event to handle. Delivery
// is at-least-once: the offset is committed only after handle returns nil.
// A failed event is logged and committed anyway so one bad message cannot
// wedge the queue. Returns when ctx is cancelled.
func RunMailConsumer(ctx context.Context, brokers []string, l *slog.Logger, handle func(MailEvent) error) error {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  "mailworker",
		Topic:    TopicMailEvents,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})
	defer r.Close()

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			l.Error("mail_consumer_fetch_failed", "error", err)
			time.Sleep(2 * time.Second)
			continue
		}

		var ev MailEvent
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			l.Error("mail_consumer_bad_payload", "error", err, "offset", m.Offset)
		} else if err := handle(ev); err != nil {
			l.Error("mail_send_failed", "error", err, "subject", ev.Subject, "recipients", len(ev.Recipients))
		} else {
			l.Info("mail_sent", "subject", ev.Subject, "recipients", len(ev.Recipients))
		}

		if err := r.CommitMessages(ctx, m); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			l.Error("mail_consumer_commit_failed", "error", err)
		}
	}
}
