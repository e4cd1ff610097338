package redis

import (
	"context"
	"errors"
	"fmt"

	"sdnlabel/internal/alerts"
	"sdnlabel/internal/logger"
	"sdnlabel/pkg/models"
)

var log = logger.With("input.redis")

type popper interface {
	Pop(ctx context.Context) ([]byte, error)
	Backlog(ctx context.Context) (int64, error)
	Close() error
}

// AlertSource drains alerts that an IDS pushes onto a Redis list.
type AlertSource struct {
	queue   popper
	decoder *alerts.Decoder
	// MaxEvents bounds one drain; zero means unbounded.
	MaxEvents int
}

// NewAlertSource wraps a consumer as an alert event source.
func NewAlertSource(c *Consumer, decoder *alerts.Decoder) *AlertSource {
	return &AlertSource{queue: c, decoder: decoder}
}

// Events pops until the list stays empty for one block timeout. Payloads
// that are not security alerts are dropped and malformed ones are logged and
// counted. An alert without a timestamp fails the drain.
func (s *AlertSource) Events(ctx context.Context) ([]models.AlertEvent, error) {
	var (
		out       []models.AlertEvent
		malformed int
		ignored   int
	)
	if n, err := s.queue.Backlog(ctx); err == nil {
		log.Debugf("alert backlog: %d", n)
	}
	for s.MaxEvents == 0 || len(out) < s.MaxEvents {
		payload, err := s.queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		if payload == nil {
			break
		}
		event, err := s.decoder.Decode(payload)
		if errors.Is(err, alerts.ErrNotAlert) {
			ignored++
			continue
		}
		if errors.Is(err, alerts.ErrNoTimestamp) {
			return nil, fmt.Errorf("alert queue: %w", err)
		}
		if err != nil {
			malformed++
			log.Warnf("drop alert payload: %v", err)
			continue
		}
		out = append(out, event)
	}
	log.Infof("drained %d alerts (ignored=%d malformed=%d)", len(out), ignored, malformed)
	return out, nil
}

// Close closes the underlying consumer.
func (s *AlertSource) Close() error {
	return s.queue.Close()
}
