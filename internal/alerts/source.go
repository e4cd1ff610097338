package alerts

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"sdnlabel/internal/logger"
	"sdnlabel/pkg/models"
)

var log = logger.With("alerts")

// EventSource yields the security alerts observed during one collection run.
type EventSource interface {
	Events(ctx context.Context) ([]models.AlertEvent, error)
	Close() error
}

// Starter is implemented by sources that must subscribe before collection
// begins.
type Starter interface {
	Start(ctx context.Context) error
}

// StaticSource serves a fixed list of alerts.
type StaticSource struct {
	events []models.AlertEvent
}

// NewStaticSource wraps events as a source.
func NewStaticSource(events []models.AlertEvent) *StaticSource {
	return &StaticSource{events: events}
}

// Events returns a copy of the list.
func (s *StaticSource) Events(ctx context.Context) ([]models.AlertEvent, error) {
	out := make([]models.AlertEvent, len(s.events))
	copy(out, s.events)
	return out, nil
}

// Close implements EventSource.
func (s *StaticSource) Close() error { return nil }

// FileSource reads alerts from a controller log file. Lines that are JSON
// objects are decoded as structured alerts; everything else goes through the
// log parser.
type FileSource struct {
	Path    string
	Decoder *Decoder
}

// NewFileSource creates a file-backed source.
func NewFileSource(path string, c Classifier) *FileSource {
	return &FileSource{Path: path, Decoder: NewDecoder(c)}
}

// Events reads the whole file. A missing file is an error; an empty one
// yields no alerts.
func (s *FileSource) Events(ctx context.Context) ([]models.AlertEvent, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open alert log: %w", err)
	}
	defer f.Close()

	var (
		out     []models.AlertEvent
		lines   int
		skipped int
	)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lines++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if line[0] == '{' {
			event, err := s.Decoder.Decode(line)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", s.Path, lines, err)
			}
			out = append(out, event)
			continue
		}
		event, ok, _ := s.Decoder.Logs.ParseLine(string(line))
		if !ok {
			skipped++
			continue
		}
		out = append(out, event)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan alert log: %w", err)
	}
	log.Infof("read %d alerts from %s (%d lines, %d not alerts)", len(out), s.Path, lines, skipped)
	return out, nil
}

// Close implements EventSource.
func (s *FileSource) Close() error { return nil }

// IsMissing reports whether err comes from an absent alert file.
func IsMissing(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
