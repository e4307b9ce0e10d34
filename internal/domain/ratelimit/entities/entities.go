package entities

import (
	"fmt"
	"time"
)

// Period is a quota window
type Period string

const (
	PeriodMinute Period = "minute"
	PeriodDaily  Period = "daily"
)

// TTL is how long a bucket of the period lives in the counter store
func (p Period) TTL() time.Duration {
	if p == PeriodDaily {
		return 24 * time.Hour
	}
	return time.Minute
}

// Bucket labels the window containing t
func (p Period) Bucket(t time.Time) string {
	t = t.UTC()
	if p == PeriodDaily {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02-15-04")
}

// ResetAt is the start of the window following t
func (p Period) ResetAt(t time.Time) time.Time {
	t = t.UTC()
	if p == PeriodDaily {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	}
	return t.Truncate(time.Minute).Add(time.Minute)
}

// CounterKey is the counter store key of the rate limit bucket
func CounterKey(period Period, userID uint, t time.Time) string {
	return fmt.Sprintf("rate_limit:%s:%d:%s", period, userID, period.Bucket(t))
}

// Subject is the user whose quota is checked
type Subject struct {
	UserID     uint
	DailyLimit int
}

// Decision is the outcome of a quota check
type Decision struct {
	Allowed bool      `json:"-"`
	Period  Period    `json:"period"`
	Limit   int       `json:"limit"`
	Current int64     `json:"current"`
	ResetAt time.Time `json:"reset_time"`
}

// MessageKind classifies a tracked message send
type MessageKind string

const (
	KindNone  MessageKind = ""
	KindText  MessageKind = "text"
	KindMedia MessageKind = "media"
)

// UsageEvent is one successfully served API request
type UsageEvent struct {
	Endpoint string
	Kind     MessageKind
}
