package labeler

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimestampError reports a timestamp that could not be placed on the
// labeling timeline. Labeling never treats such a value as "no match".
type TimestampError struct {
	Source string // "event" or "record"
	Index  int
	Raw    string
	Err    error
}

func (e *TimestampError) Error() string {
	return fmt.Sprintf("unparseable %s timestamp at index %d: %q: %v", e.Source, e.Index, e.Raw, e.Err)
}

func (e *TimestampError) Unwrap() error { return e.Err }

var (
	errEmptyTimestamp = errors.New("empty timestamp")
	errNoAnchor       = errors.New("time-of-day timestamp needs a reference date")
	errUnknownFormat  = errors.New("unrecognized timestamp format")
)

var epochRegex = regexp.MustCompile(`^\d+(?:\.\d{1,9})?$`)

// Layouts carrying their own zone.
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 -0700",
}

// Layouts interpreted in the configured location. Fractional seconds after
// the seconds field are accepted by time.Parse without being in the layout.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Floodlight log lines carry only the time of day.
var timeOfDayLayouts = []string{
	"15:04:05",
}

// ParseTimestamp converts a raw timestamp to an absolute time.
//
// Supported: RFC 3339, "2006-01-02[T ]15:04:05[.fff]" in loc, Unix epoch
// seconds with optional fraction, and time-of-day "15:04:05[.fff]" which is
// resolved to the calendar day nearest to anchor. A zero anchor rejects
// time-of-day values.
func ParseTimestamp(raw string, anchor time.Time, loc *time.Location) (time.Time, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return time.Time{}, errEmptyTimestamp
	}
	if loc == nil {
		loc = time.Local
	}

	if epochRegex.MatchString(v) {
		return parseEpoch(v)
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, nil
		}
	}
	for _, layout := range timeOfDayLayouts {
		tod, err := time.ParseInLocation(layout, v, loc)
		if err != nil {
			continue
		}
		if anchor.IsZero() {
			return time.Time{}, errNoAnchor
		}
		return anchorTimeOfDay(tod, anchor, loc), nil
	}
	return time.Time{}, errUnknownFormat
}

func parseEpoch(v string) (time.Time, error) {
	secPart, fracPart, _ := strings.Cut(v, ".")
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	var nsec int64
	if fracPart != "" {
		frac := (fracPart + "000000000")[:9]
		nsec, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return time.Time{}, err
		}
	}
	return time.Unix(sec, nsec).UTC(), nil
}

// anchorTimeOfDay places tod on the day within twelve hours of anchor, so a
// run that crosses midnight still lines up with its alerts.
func anchorTimeOfDay(tod, anchor time.Time, loc *time.Location) time.Time {
	ref := anchor.In(loc)
	t := time.Date(ref.Year(), ref.Month(), ref.Day(), tod.Hour(), tod.Minute(), tod.Second(), tod.Nanosecond(), loc)
	switch diff := t.Sub(anchor); {
	case diff > 12*time.Hour:
		t = t.AddDate(0, 0, -1)
	case diff < -12*time.Hour:
		t = t.AddDate(0, 0, 1)
	}
	return t
}
