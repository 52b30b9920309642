// Package analytics derives social/behavioral rankings from a persisted
// session. Every analysis is a pure read over the session store,
// parameterized by an optional time range; the sentinel system member
// and non-text messages are excluded unless an analysis states
// otherwise.
package analytics

import (
	"fmt"
	"strings"
	"time"

	"github.com/mama165/chatlab/internal/store"
)

type Params struct {
	SessionID string
	Since     int64 // unix seconds, 0 = unbounded
	Until     int64
	// Location drives day/hour bucketing. Explicit so results are
	// reproducible across machines; nil falls back to time.Local.
	Location *time.Location
	// Now is the reference instant for streak currency and inactivity;
	// 0 means time.Now.
	Now int64
}

func (p Params) loc() *time.Location {
	if p.Location != nil {
		return p.Location
	}
	return time.Local
}

func (p Params) now() int64 {
	if p.Now != 0 {
		return p.Now
	}
	return time.Now().Unix()
}

type Engine struct {
	db *store.DB
}

func New(db *store.DB) *Engine {
	return &Engine{db: db}
}

// textMessages loads the session's text messages in (ts, insertion)
// order, excluding the system sentinel.
func (e *Engine) textMessages(p Params) ([]store.MessageRow, error) {
	rows, err := e.db.MessagesAsc(p.SessionID, store.MessageFilter{
		Since:         p.Since,
		Until:         p.Until,
		TextOnly:      true,
		ExcludeSystem: true,
	})
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	return rows, nil
}

func rowText(r store.MessageRow) string {
	if !r.Content.Valid {
		return ""
	}
	return strings.TrimSpace(r.Content.String)
}

// dayOrdinal maps a local instant to a calendar-day number usable for
// consecutive-day arithmetic.
func dayOrdinal(t time.Time) int {
	y, m, d := t.Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

// clockString renders minutes-since-05:00 back as wall-clock HH:MM.
func clockString(shiftedMinutes int) string {
	clock := (shiftedMinutes + 5*60) % (24 * 60)
	return fmt.Sprintf("%02d:%02d", clock/60, clock%60)
}

// shiftedMinutes measures a local instant in minutes past the 05:00 day
// boundary.
func shiftedMinutes(t time.Time) int {
	return (t.Hour()*60 + t.Minute() + 24*60 - 5*60) % (24 * 60)
}
