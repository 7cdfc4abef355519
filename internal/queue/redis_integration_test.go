//go:build integration

package queue

import (
	"context"
	"testing"
	"time"

	"pickup/internal/testutil/testredis"
)

func TestRedisQueueRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()
	h, err := testredis.Start(ctx)
	if err != nil {
		t.Fatalf("start redis: %v", err)
	}
	defer h.Close()

	q := NewRedisQueue(h.Client, "test:departures")
	q.wait = 200 * time.Millisecond

	// undecodable entries are skipped
	if err := h.Client.LPush(ctx, "test:departures", "not json").Err(); err != nil {
		t.Fatal(err)
	}
	at := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	for _, id := range []int64{7, 8} {
		msg, err := NewDeparture(DepartureEvent{LogID: id, ChildID: 3, At: at})
		if err != nil {
			t.Fatal(err)
		}
		if err := q.Publish(ctx, msg); err != nil {
			t.Fatal(err)
		}
	}

	consumeCtx, stop := context.WithCancel(ctx)
	msgs, err := q.Consume(consumeCtx)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []int64{7, 8} {
		select {
		case msg := <-msgs:
			ev, err := msg.Departure()
			if err != nil {
				t.Fatal(err)
			}
			if ev.LogID != want || ev.ChildID != 3 || !ev.At.Equal(at) {
				t.Fatalf("got %+v, want log %d", ev, want)
			}
		case <-time.After(10 * time.Second):
			t.Fatalf("timed out waiting for log %d", want)
		}
	}

	stop()
	select {
	case _, open := <-msgs:
		if open {
			t.Fatal("unexpected message after cancel")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop")
	}
}
