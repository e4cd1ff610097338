package nats

import (
	"context"
	"errors"
	"sync"
	"testing"

	"sdnlabel/internal/alerts"
	"sdnlabel/pkg/models"
)

func TestSubscriberBuffersConcurrentDeliveries(t *testing.T) {
	s := &Subscriber{decoder: alerts.NewDecoder(nil)}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handle([]byte(`{"timestamp":"2026-01-05T17:44:22Z","kind":"link_fabrication"}`))
			s.handle([]byte(`17:44:23.000 INFO [n.f.t.TopoGuard:main] refreshed`))
			s.handle([]byte(`not an alert at all`))
		}()
	}
	wg.Wait()

	events, err := s.Events(context.Background())
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 50 {
		t.Fatalf("expected 50 buffered alerts, got %d", len(events))
	}
	for _, e := range events {
		if e.Kind != models.KindLinkFabrication {
			t.Fatalf("unexpected kind %s", e.Kind)
		}
	}

	events, _ = s.Events(context.Background())
	if len(events) != 0 {
		t.Fatalf("buffer should be empty after a drain, got %d", len(events))
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestSubscriberReportsAlertWithoutTimestamp(t *testing.T) {
	s := &Subscriber{subject: "sdn.alerts", decoder: alerts.NewDecoder(nil)}
	s.handle([]byte(`{"timestamp":"2026-01-05T17:44:22Z","kind":"host_hijack"}`))
	s.handle([]byte(`{"kind":"host_hijack","message":"Host location hijacking detected"}`))

	if _, err := s.Events(context.Background()); !errors.Is(err, alerts.ErrNoTimestamp) {
		t.Fatalf("expected ErrNoTimestamp, got %v", err)
	}
	events, err := s.Events(context.Background())
	if err != nil || len(events) != 0 {
		t.Fatalf("error should be reported once, got events=%d err=%v", len(events), err)
	}
}

func TestSubscriberKeepsUnparseableTimestamp(t *testing.T) {
	s := &Subscriber{decoder: alerts.NewDecoder(nil)}
	s.handle([]byte(`{"occurred_at":"yesterday noon","message":"Host location hijacking detected"}`))

	events, err := s.Events(context.Background())
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 1 || events[0].RawTime != "yesterday noon" {
		t.Fatalf("alert must reach the labeler unresolved, got %+v", events)
	}
}
