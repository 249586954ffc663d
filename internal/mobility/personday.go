package mobility

import (
	"fmt"
	"maps"
	"slices"

	"github.com/jengzang/mobility-backend-go/internal/spatial"
)

// DefaultSplitRatio is the share of a transition credited to the departing stay
const DefaultSplitRatio = 0.8

// Transition is an ordered move between two distinct coordinates
type Transition struct {
	From spatial.Coordinate `json:"from"`
	To   spatial.Coordinate `json:"to"`
}

// PersonDay is the mobility of one user over one mobility day.
//
// Runs of identical consecutive locations are collapsed into a single stay.
// Locations, timestamps, coordinates and dwelling times are aligned 1:1 by stay
// index. A PersonDay is immutable; accessors return copies.
type PersonDay struct {
	UserID int64
	Window DayWindow

	locations   []int64
	timestamps  []int64
	coordinates []spatial.Coordinate
	circles     []Circle
	dwelling    []int64
	accDwelling map[spatial.Coordinate]int64
	transitions map[Transition]int
}

// NewPersonDay builds the person-day from a finalized buffer of raw
// observations. ratio is the share of every elapsed interval credited to the
// stay being left; the rest goes to the stay being entered, or to the same stay
// when the location did not change.
func NewPersonDay(userID int64, window DayWindow, timestamps, locations []int64, coordinates []spatial.Coordinate, ratio float64) (*PersonDay, error) {
	if len(timestamps) != len(locations) || len(locations) != len(coordinates) {
		return nil, fmt.Errorf("misaligned buffer: %d timestamps, %d locations, %d coordinates",
			len(timestamps), len(locations), len(coordinates))
	}
	if len(locations) == 0 {
		return nil, fmt.Errorf("empty buffer for user %d", userID)
	}
	if ratio < 0 || ratio > 1 {
		return nil, fmt.Errorf("split ratio %v outside [0,1]", ratio)
	}

	p := &PersonDay{
		UserID:      userID,
		Window:      window,
		accDwelling: make(map[spatial.Coordinate]int64),
		transitions: make(map[Transition]int),
	}

	for i := range locations {
		if i > 0 && locations[i] == locations[i-1] {
			continue
		}
		p.locations = append(p.locations, locations[i])
		p.timestamps = append(p.timestamps, timestamps[i])
		p.coordinates = append(p.coordinates, coordinates[i])
	}

	p.dwelling = make([]int64, 1, len(p.locations))
	for i := 1; i < len(locations); i++ {
		delta := timestamps[i] - timestamps[i-1]
		departing := int64(float64(delta) * ratio)
		arriving := delta - departing

		last := len(p.dwelling) - 1
		p.dwelling[last] += departing
		if locations[i] != locations[i-1] {
			p.dwelling = append(p.dwelling, arriving)
		} else {
			p.dwelling[last] += arriving
		}
	}

	for i, c := range p.coordinates {
		p.accDwelling[c] += p.dwelling[i]
		if i > 0 && p.coordinates[i-1] != c {
			p.transitions[Transition{From: p.coordinates[i-1], To: c}]++
		}
	}

	p.circles = MineCircles(p.locations)
	return p, nil
}

// Locations returns the deduplicated location sequence
func (p *PersonDay) Locations() []int64 { return slices.Clone(p.locations) }

// Timestamps returns the arrival time of every stay
func (p *PersonDay) Timestamps() []int64 { return slices.Clone(p.timestamps) }

// Coordinates returns the coordinate of every stay
func (p *PersonDay) Coordinates() []spatial.Coordinate { return slices.Clone(p.coordinates) }

// Circles returns the circles mined from the location sequence
func (p *PersonDay) Circles() []Circle { return slices.Clone(p.circles) }

// Dwelling returns the dwelling seconds of every stay
func (p *PersonDay) Dwelling() []int64 { return slices.Clone(p.dwelling) }

// AccDwelling returns total dwelling seconds per coordinate
func (p *PersonDay) AccDwelling() map[spatial.Coordinate]int64 { return maps.Clone(p.accDwelling) }

// TransitionFrequency returns how often each move between distinct coordinates occurred
func (p *PersonDay) TransitionFrequency() map[Transition]int { return maps.Clone(p.transitions) }

// Len returns the number of stays
func (p *PersonDay) Len() int { return len(p.locations) }

// TotalDwelling returns the sum of all dwelling times
func (p *PersonDay) TotalDwelling() int64 {
	var total int64
	for _, d := range p.dwelling {
		total += d
	}
	return total
}

// DistinctLocations returns the number of distinct location ids visited
func (p *PersonDay) DistinctLocations() int {
	seen := make(map[int64]struct{}, len(p.locations))
	for _, l := range p.locations {
		seen[l] = struct{}{}
	}
	return len(seen)
}

// RadiusOfGyration returns the radius of gyration of the day in km
func (p *PersonDay) RadiusOfGyration() float64 {
	return spatial.RadiusOfGyration(p.coordinates)
}

// TravelDistance returns the great-circle length of the day's trajectory in km
func (p *PersonDay) TravelDistance() float64 {
	return spatial.PathLength(p.coordinates)
}

// WhichDay returns the day as MMDD
func (p *PersonDay) WhichDay() string { return p.Window.WhichDay() }

// DateID returns the day as YYYYMMDD
func (p *PersonDay) DateID() int { return p.Window.DateID() }

func (p *PersonDay) String() string {
	return fmt.Sprintf("User %d: %d %d %v", p.UserID, p.DateID(), len(p.circles), p.locations)
}
