package spatial

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance(t *testing.T) {
	a := Coordinate{Lon: 120.1, Lat: 30.2}
	b := Coordinate{Lon: 120.1, Lat: 31.2}

	assert.InDelta(t, 0, Distance(a, a), 1e-9)
	assert.InDelta(t, Distance(a, b), Distance(b, a), 1e-9)
	// one degree of latitude on the 6372.8km sphere
	assert.InDelta(t, math.Pi/180*EarthRadiusKm, Distance(a, b), 1e-6)
	assert.InDelta(t, Distance(a, b)*1000, HaversineDistance(a.Lat, a.Lon, b.Lat, b.Lon), 1e-6)
}

func TestMidpoint(t *testing.T) {
	a := Coordinate{Lon: 120.0, Lat: 30.0}
	b := Coordinate{Lon: 120.0, Lat: 31.0}

	mid := Midpoint([]Coordinate{a, b}, nil)
	assert.InDelta(t, 120.0, mid.Lon, 1e-9)
	assert.InDelta(t, 30.5, mid.Lat, 1e-9)

	weighted := Midpoint([]Coordinate{a, b}, []float64{1, 0})
	assert.InDelta(t, a.Lat, weighted.Lat, 1e-9)

	assert.Equal(t, Coordinate{}, Midpoint(nil, nil))
}

func TestRadiusOfGyration(t *testing.T) {
	a := Coordinate{Lon: 120.0, Lat: 30.0}
	b := Coordinate{Lon: 120.0, Lat: 30.2}

	assert.Zero(t, RadiusOfGyration(nil))
	assert.InDelta(t, 0, RadiusOfGyration([]Coordinate{a, a, a}), 1e-9)

	half := Distance(a, b) / 2
	assert.InDelta(t, half, RadiusOfGyration([]Coordinate{a, b}), 1e-6)
	// repeated visits do not change the distinct set
	assert.InDelta(t, half, RadiusOfGyration([]Coordinate{a, b, a, a, b}), 1e-6)
}

func TestPathLength(t *testing.T) {
	a := Coordinate{Lon: 120.0, Lat: 30.0}
	b := Coordinate{Lon: 120.0, Lat: 30.1}

	assert.Zero(t, PathLength([]Coordinate{a}))
	assert.InDelta(t, 2*Distance(a, b), PathLength([]Coordinate{a, b, a}), 1e-9)
}

func TestAreaContains(t *testing.T) {
	area := Area{MinLon: 120.03013, MinLat: 30.13614, MaxLon: 120.28597, MaxLat: 30.35318}

	tests := []struct {
		name string
		c    Coordinate
		want bool
	}{
		{"inside", Coordinate{Lon: 120.2, Lat: 30.25}, true},
		{"lower-left corner", Coordinate{Lon: 120.03013, Lat: 30.13614}, true},
		{"upper-right corner", Coordinate{Lon: 120.28597, Lat: 30.35318}, true},
		{"west", Coordinate{Lon: 120.0, Lat: 30.25}, false},
		{"north", Coordinate{Lon: 120.2, Lat: 30.4}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, area.Contains(tt.c))
		})
	}

	assert.True(t, area.Contains(area.Center()))
	assert.False(t, area.IsZero())
}

func TestBoundingBox(t *testing.T) {
	box := BoundingBox([]Coordinate{{Lon: 1, Lat: 5}, {Lon: -2, Lat: 3}, {Lon: 0, Lat: 7}})
	assert.Equal(t, Area{MinLon: -2, MinLat: 3, MaxLon: 1, MaxLat: 7}, box)
}

func TestGeohashRoundTrip(t *testing.T) {
	c := Coordinate{Lon: 120.16932, Lat: 30.266203}

	hash := EncodeGeohash(c, GeohashPrecision)
	require.Len(t, hash, GeohashPrecision)

	decoded, ok := DecodeGeohash(hash)
	require.True(t, ok)
	assert.InDelta(t, c.Lon, decoded.Lon, 1e-6)
	assert.InDelta(t, c.Lat, decoded.Lat, 1e-6)

	// well-known cell
	assert.Equal(t, "wtmk", EncodeGeohash(Coordinate{Lon: 120.16932, Lat: 30.266203}, 4))

	_, ok = DecodeGeohash("ab!")
	assert.False(t, ok)
	_, ok = DecodeGeohash("")
	assert.False(t, ok)
}
