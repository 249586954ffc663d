// Package locmap resolves opaque location (base station) identifiers to
// geographic coordinates.
package locmap

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"maps"
	"strconv"
	"strings"

	"github.com/jengzang/mobility-backend-go/internal/spatial"
)

var (
	// ErrNotLoaded is returned when the map holds no entries. Nothing downstream
	// is meaningful without it, so callers abort the run.
	ErrNotLoaded = errors.New("location map is not initialized")
	// ErrUnknownLocation is returned for identifiers missing from the map
	ErrUnknownLocation = errors.New("unknown location")
)

// Map is a read-only lookup table from location id to coordinate.
// It is safe for concurrent use once constructed.
type Map struct {
	coords map[int64]spatial.Coordinate
}

// New builds a map from the given entries. The entries map is copied.
func New(entries map[int64]spatial.Coordinate) *Map {
	coords := make(map[int64]spatial.Coordinate, len(entries))
	for id, c := range entries {
		coords[id] = c
	}
	return &Map{coords: coords}
}

// LoadCSV reads lines of the form "id,<ignored>,lon,lat". Empty lines and lines
// starting with '#' are skipped; any other malformed line is an error, because a
// partially loaded map silently drops observations.
func LoadCSV(r io.Reader) (*Map, error) {
	coords := make(map[int64]spatial.Coordinate)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		id, c, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		coords[id] = c
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read location map: %w", err)
	}

	return &Map{coords: coords}, nil
}

func parseLine(line string) (int64, spatial.Coordinate, error) {
	parts := strings.Split(line, ",")
	if len(parts) < 4 {
		return 0, spatial.Coordinate{}, fmt.Errorf("expected at least 4 fields, got %d", len(parts))
	}
	id, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return 0, spatial.Coordinate{}, fmt.Errorf("invalid id: %w", err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		return 0, spatial.Coordinate{}, fmt.Errorf("invalid longitude: %w", err)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
	if err != nil {
		return 0, spatial.Coordinate{}, fmt.Errorf("invalid latitude: %w", err)
	}
	return id, spatial.Coordinate{Lon: lon, Lat: lat}, nil
}

// Validate returns ErrNotLoaded if the map is empty
func (m *Map) Validate() error {
	if m == nil || len(m.coords) == 0 {
		return ErrNotLoaded
	}
	return nil
}

// Resolve returns the coordinate of a location id
func (m *Map) Resolve(id int64) (spatial.Coordinate, error) {
	if err := m.Validate(); err != nil {
		return spatial.Coordinate{}, err
	}
	c, ok := m.coords[id]
	if !ok {
		return spatial.Coordinate{}, fmt.Errorf("%w: %d", ErrUnknownLocation, id)
	}
	return c, nil
}

// ResolveAll resolves every id, failing on the first unknown one
func (m *Map) ResolveAll(ids []int64) ([]spatial.Coordinate, error) {
	out := make([]spatial.Coordinate, len(ids))
	for i, id := range ids {
		c, err := m.Resolve(id)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// Len returns the number of entries
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.coords)
}

// Entries returns a copy of the id to coordinate table
func (m *Map) Entries() map[int64]spatial.Coordinate {
	if m == nil {
		return nil
	}
	return maps.Clone(m.coords)
}

// Coordinates returns all distinct coordinates in the map
func (m *Map) Coordinates() []spatial.Coordinate {
	if m == nil {
		return nil
	}
	all := make([]spatial.Coordinate, 0, len(m.coords))
	for _, c := range m.coords {
		all = append(all, c)
	}
	return spatial.Distinct(all)
}
