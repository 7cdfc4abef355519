package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"pickup/internal/attendance"
	"pickup/internal/metrics"
	"pickup/internal/observability"
	"pickup/internal/queue"
)

// Departures loads what a guardian message needs about a log.
type Departures interface {
	Departure(ctx context.Context, logID int64) (attendance.Departure, error)
}

// Sender delivers a text message.
type Sender interface {
	Send(ctx context.Context, to, message string) (*SendResult, error)
}

// Worker turns departure events into guardian SMS messages.
type Worker struct {
	q          queue.Queue
	departures Departures
	sender     Sender
	school     string
	loc        *time.Location
	log        *zap.Logger
}

func NewWorker(q queue.Queue, departures Departures, sender Sender, school string, loc *time.Location, log *zap.Logger) *Worker {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{q: q, departures: departures, sender: sender, school: school, loc: loc, log: log}
}

// Run consumes until ctx is cancelled or the queue closes.
func (w *Worker) Run(ctx context.Context) error {
	msgs, err := w.q.Consume(ctx)
	if err != nil {
		return err
	}
	w.log.Info("notification worker started")
	for msg := range msgs {
		w.Handle(ctx, msg)
	}
	w.log.Info("notification worker stopped")
	return nil
}

// Handle processes one message. Failures are logged and counted, never retried.
func (w *Worker) Handle(ctx context.Context, msg queue.Message) {
	if msg.Type != queue.TypeDeparture {
		w.log.Warn("unknown message type", zap.String("type", msg.Type))
		metrics.Notifications.WithLabelValues("ignored").Inc()
		return
	}
	ev, err := msg.Departure()
	if err != nil {
		w.log.Warn("bad departure message", zap.Error(err))
		metrics.Notifications.WithLabelValues("failed").Inc()
		return
	}
	status, err := w.notify(ctx, ev)
	metrics.Notifications.WithLabelValues(status).Inc()
	if err != nil {
		w.log.Error("guardian notification failed", zap.Int64("log_id", ev.LogID), zap.Error(err))
		observability.CaptureErr(err)
		return
	}
	w.log.Info("guardian notification", zap.Int64("log_id", ev.LogID), zap.String("status", status))
}

func (w *Worker) notify(ctx context.Context, ev queue.DepartureEvent) (string, error) {
	d, err := w.departures.Departure(ctx, ev.LogID)
	if err != nil {
		return "failed", fmt.Errorf("load departure %d: %w", ev.LogID, err)
	}
	to := NormalizeUgandaPhone(d.GuardianPhone)
	if to == "" {
		return "skipped", nil
	}
	if _, err := w.sender.Send(ctx, to, w.Message(d, ev.Emergency)); err != nil {
		return "failed", err
	}
	return "sent", nil
}

// Message is the text sent to the guardian.
func (w *Worker) Message(d attendance.Departure, emergency bool) string {
	var b strings.Builder
	name := d.ChildName
	if name == "" {
		name = "Your child"
	}
	fmt.Fprintf(&b, "%s was picked up at %s", name, d.Timestamp.In(w.loc).Format("15:04 on 02 Jan"))
	if d.PickerName != "" {
		fmt.Fprintf(&b, " by %s", d.PickerName)
	}
	if emergency {
		b.WriteString(" (emergency release)")
	}
	b.WriteString(".")
	if w.school != "" {
		fmt.Fprintf(&b, " - %s", w.school)
	}
	return b.String()
}
