package shared

import (
	"fmt"
	"strings"
	"time"
)

const (
	// Session names.
	Asia    = "asia"
	London  = "london"
	NewYork = "newyork"

	// Forex session times in new york time (ET).
	AsiaOpen     = "19:00"
	AsiaClose    = "04:00"
	LondonOpen   = "03:00"
	LondonClose  = "12:00"
	NewYorkOpen  = "08:00"
	NewYorkClose = "17:00"

	// WeekBoundary is the new york time the forex week opens on sunday and closes on friday.
	WeekBoundary = "17:00"

	// SessionTimeLayout is the layout of session times.
	SessionTimeLayout = "15:04"

	// NewYorkLocation is the location session times are expressed in.
	NewYorkLocation = "America/New_York"
)

// Session represents a forex market session.
type Session struct {
	Name  string
	Open  time.Time
	Close time.Time
}

// sessionClock returns the provided session time on the day of the provided time.
func sessionClock(clock string, on time.Time) (time.Time, error) {
	parsed, err := time.Parse(SessionTimeLayout, clock)
	if err != nil {
		return time.Time{}, err
	}

	return time.Date(on.Year(), on.Month(), on.Day(), parsed.Hour(), parsed.Minute(), 0, 0,
		on.Location()), nil
}

// NewSession initializes a new market session opening on the day of the provided time in
// new york.
func NewSession(name string, open string, close string, now time.Time) (*Session, error) {
	loc, err := time.LoadLocation(NewYorkLocation)
	if err != nil {
		return nil, fmt.Errorf("loading %s location: %w", NewYorkLocation, err)
	}

	now = now.In(loc)
	sOpen, err := sessionClock(open, now)
	if err != nil {
		return nil, fmt.Errorf("parsing session open: %w", err)
	}

	sClose, err := sessionClock(close, now)
	if err != nil {
		return nil, fmt.Errorf("parsing session close: %w", err)
	}

	if sClose.Before(sOpen) {
		sClose = sClose.AddDate(0, 0, 1)
	}

	return &Session{
		Name:  name,
		Open:  sOpen,
		Close: sClose,
	}, nil
}

// IsCurrentSession checks whether the provided session is the current session.
func (s *Session) IsCurrentSession(current time.Time) bool {
	return !current.Before(s.Open) && current.Before(s.Close)
}

// IsForexOpen checks whether the forex market is open at the provided time. The forex week
// runs from sunday to friday at the week boundary in new york.
func IsForexOpen(now time.Time) (bool, error) {
	loc, err := time.LoadLocation(NewYorkLocation)
	if err != nil {
		return false, fmt.Errorf("loading %s location: %w", NewYorkLocation, err)
	}

	now = now.In(loc)
	boundary, err := sessionClock(WeekBoundary, now)
	if err != nil {
		return false, fmt.Errorf("parsing week boundary: %w", err)
	}

	switch now.Weekday() {
	case time.Saturday:
		return false, nil
	case time.Sunday:
		return !now.Before(boundary), nil
	case time.Friday:
		return now.Before(boundary), nil
	default:
		return true, nil
	}
}

// CurrentSessions returns the names of the sessions active at the provided time, sessions
// overlap so more than one can be active.
func CurrentSessions(now time.Time) ([]string, error) {
	open, err := IsForexOpen(now)
	if err != nil {
		return nil, err
	}

	if !open {
		return nil, nil
	}

	yesterday := now.AddDate(0, 0, -1)
	sessions := []struct {
		name  string
		open  string
		close string
		time  time.Time
	}{
		{Asia, AsiaOpen, AsiaClose, yesterday},
		{London, LondonOpen, LondonClose, now},
		{NewYork, NewYorkOpen, NewYorkClose, now},
		{Asia, AsiaOpen, AsiaClose, now},
	}

	active := []string{}
	for _, sess := range sessions {
		session, err := NewSession(sess.name, sess.open, sess.close, sess.time)
		if err != nil {
			return nil, fmt.Errorf("creating %s session: %w", sess.name, err)
		}

		if session.IsCurrentSession(now) {
			active = append(active, session.Name)
		}
	}

	return active, nil
}

// FormatSessions renders the provided session names for logging.
func FormatSessions(names []string) string {
	if len(names) == 0 {
		return "no"
	}

	return strings.Join(names, "/")
}
