package chrono

import (
	"sync"
	"time"
)

// DefaultLocation is the timezone the portal publishes due dates in.
const DefaultLocation = "Asia/Tashkent"

// TimeAPI is what anything depending on the wall clock should use.
type TimeAPI interface {
	// Now returns the current time in Location.
	Now() time.Time
	Location() *time.Location
}

// StandardTime is the TimeAPI backed by the system clock.
type StandardTime struct {
	location *time.Location
}

// NewStandardTime loads the named location, an empty name means DefaultLocation.
func NewStandardTime(location string) (StandardTime, error) {
	if location == "" {
		location = DefaultLocation
	}
	loc, err := time.LoadLocation(location)
	if err != nil {
		return StandardTime{}, err
	}
	return StandardTime{location: loc}, nil
}

func (s StandardTime) Now() time.Time {
	return time.Now().In(s.location)
}

func (s StandardTime) Location() *time.Location {
	return s.location
}

// Fixed is a TimeAPI frozen at a single instant.
type Fixed struct {
	At time.Time
}

func (f Fixed) Now() time.Time {
	return f.At
}

func (f Fixed) Location() *time.Location {
	return f.At.Location()
}

// Manual is a TimeAPI that only moves when told to.
type Manual struct {
	mutex sync.Mutex
	at    time.Time
}

func NewManual(at time.Time) *Manual {
	return &Manual{at: at}
}

func (m *Manual) Now() time.Time {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.at
}

func (m *Manual) Location() *time.Location {
	return m.Now().Location()
}

func (m *Manual) Advance(d time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.at = m.at.Add(d)
}
