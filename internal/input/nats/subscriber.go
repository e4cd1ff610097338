package nats

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"sdnlabel/internal/alerts"
	"sdnlabel/internal/logger"
	"sdnlabel/pkg/models"
)

var log = logger.With("input.nats")

// Config configures the NATS alert subscriber.
type Config struct {
	URL     string
	Subject string
}

// Subscriber buffers alerts published on a NATS subject while a collection
// run is in progress.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
	decoder *alerts.Decoder

	mu        sync.Mutex
	buf       []models.AlertEvent
	malformed int
	// err holds the first undeliverable alert since the last drain.
	err error
}

// NewSubscriber connects to the NATS server.
func NewSubscriber(cfg Config, decoder *alerts.Decoder) (*Subscriber, error) {
	if cfg.Subject == "" {
		return nil, errors.New("nats subject is required")
	}
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, err
	}
	log.Infof("connected to NATS server at %s", cfg.URL)
	return &Subscriber{nc: nc, subject: cfg.Subject, decoder: decoder}, nil
}

// Start subscribes to the subject. Messages are decoded on the NATS
// delivery goroutine and appended to the buffer.
func (s *Subscriber) Start(ctx context.Context) error {
	if s.sub != nil {
		return nil
	}
	sub, err := s.nc.Subscribe(s.subject, func(msg *nats.Msg) {
		s.handle(msg.Data)
	})
	if err != nil {
		return err
	}
	s.sub = sub
	log.Infof("subscribed to '%s'", s.subject)
	return nil
}

func (s *Subscriber) handle(data []byte) {
	event, err := s.decoder.Decode(data)
	if errors.Is(err, alerts.ErrNotAlert) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if errors.Is(err, alerts.ErrNoTimestamp) {
		if s.err == nil {
			s.err = err
		}
		return
	}
	if err != nil {
		s.malformed++
		log.Debugf("drop alert payload: %v", err)
		return
	}
	s.buf = append(s.buf, event)
}

// Events flushes pending messages and returns everything buffered since the
// previous call. If an alert arrived without a timestamp the buffer is
// discarded and the error returned.
func (s *Subscriber) Events(ctx context.Context) ([]models.AlertEvent, error) {
	if s.nc != nil && s.nc.IsConnected() {
		if err := s.nc.FlushWithContext(ctx); err != nil {
			log.Warnf("flush before drain: %v", err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out, err := s.buf, s.err
	s.buf, s.err = nil, nil
	if s.malformed > 0 {
		log.Warnf("dropped %d malformed alert payloads", s.malformed)
		s.malformed = 0
	}
	if err != nil {
		return nil, fmt.Errorf("alert subject %s: %w", s.subject, err)
	}
	return out, nil
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() error {
	if s.sub != nil {
		if err := s.sub.Unsubscribe(); err != nil {
			log.Warnf("unsubscribe: %v", err)
		}
		s.sub = nil
	}
	if s.nc != nil {
		s.nc.Close()
		log.Infof("NATS connection closed")
	}
	return nil
}
