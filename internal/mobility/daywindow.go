package mobility

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// DayStartHour is the local hour at which a mobility day begins
	DayStartHour = 3
	// DaySeconds is the fixed span of every person-day trajectory
	DaySeconds = 86400
)

// ErrMalformedRecord is returned for observation lines that cannot be parsed
var ErrMalformedRecord = errors.New("malformed observation record")

// Observation is one raw (user, time, location) sample
type Observation struct {
	UserID    int64 `json:"user_id"`
	Timestamp int64 `json:"timestamp"` // Unix seconds
	Location  int64 `json:"location"`
}

// ParseObservation parses a "uid,ts,loc[,...]" line. Fractional timestamps are
// truncated to whole seconds; extra fields are ignored.
func ParseObservation(line string) (Observation, error) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) < 3 {
		return Observation{}, fmt.Errorf("%w: expected 3 fields, got %d", ErrMalformedRecord, len(parts))
	}

	uid, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return Observation{}, fmt.Errorf("%w: user id: %v", ErrMalformedRecord, err)
	}
	ts, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Observation{}, fmt.Errorf("%w: timestamp: %v", ErrMalformedRecord, err)
	}
	if math.IsNaN(ts) || math.IsInf(ts, 0) || ts < math.MinInt64 || ts >= math.MaxInt64 {
		return Observation{}, fmt.Errorf("%w: timestamp %q out of range", ErrMalformedRecord, parts[1])
	}
	loc, err := strconv.ParseInt(strings.TrimSpace(parts[2]), 10, 64)
	if err != nil {
		return Observation{}, fmt.Errorf("%w: location: %v", ErrMalformedRecord, err)
	}

	return Observation{UserID: uid, Timestamp: int64(ts), Location: loc}, nil
}

// DayWindow is the [Start, End) span of one mobility day, 03:00 to 03:00
type DayWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// DayRange returns the mobility day containing ts in the given timezone.
// Times before 03:00 belong to the previous calendar day's window.
func DayRange(ts int64, loc *time.Location) DayWindow {
	if loc == nil {
		loc = time.UTC
	}
	t := time.Unix(ts, 0).In(loc)
	y, m, d := t.Date()
	if t.Hour() < DayStartHour {
		d--
	}
	start := time.Date(y, m, d, DayStartHour, 0, 0, 0, loc)
	return DayWindow{Start: start, End: start.Add(DaySeconds * time.Second)}
}

// Contains reports whether ts falls inside the window
func (w DayWindow) Contains(ts int64) bool {
	return ts >= w.Start.Unix() && ts < w.End.Unix()
}

// DateID returns the window start date as YYYYMMDD
func (w DayWindow) DateID() int {
	y, m, d := w.Start.Date()
	return y*10000 + int(m)*100 + d
}

// WhichDay returns the window start date as MMDD
func (w DayWindow) WhichDay() string {
	return w.Start.Format("0102")
}
