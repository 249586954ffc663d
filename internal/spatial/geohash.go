package spatial

import "strings"

// Base32 encoding for geohash
const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

// GeohashPrecision is the precision used for graph node labels (cell edge < 4cm)
const GeohashPrecision = 12

// EncodeGeohash encodes a coordinate into a geohash string
// precision: number of characters in the geohash (1-12)
func EncodeGeohash(c Coordinate, precision int) string {
	if precision < 1 {
		precision = 1
	}
	if precision > 12 {
		precision = 12
	}

	latRange := [2]float64{-90.0, 90.0}
	lonRange := [2]float64{-180.0, 180.0}

	var sb strings.Builder
	sb.Grow(precision)
	bits, ch := 0, 0
	evenBit := true

	for sb.Len() < precision {
		if evenBit {
			mid := (lonRange[0] + lonRange[1]) / 2
			if c.Lon > mid {
				ch |= 1 << (4 - bits)
				lonRange[0] = mid
			} else {
				lonRange[1] = mid
			}
		} else {
			mid := (latRange[0] + latRange[1]) / 2
			if c.Lat > mid {
				ch |= 1 << (4 - bits)
				latRange[0] = mid
			} else {
				latRange[1] = mid
			}
		}
		evenBit = !evenBit

		bits++
		if bits == 5 {
			sb.WriteByte(base32[ch])
			bits, ch = 0, 0
		}
	}

	return sb.String()
}

// DecodeGeohash decodes a geohash into the center of its cell.
// ok is false when the string contains characters outside the geohash alphabet.
func DecodeGeohash(geohash string) (c Coordinate, ok bool) {
	if geohash == "" {
		return Coordinate{}, false
	}

	latRange := [2]float64{-90.0, 90.0}
	lonRange := [2]float64{-180.0, 180.0}

	isLon := true
	for i := 0; i < len(geohash); i++ {
		idx := strings.IndexByte(base32, geohash[i])
		if idx == -1 {
			return Coordinate{}, false
		}

		for mask := 16; mask > 0; mask >>= 1 {
			if isLon {
				mid := (lonRange[0] + lonRange[1]) / 2
				if idx&mask != 0 {
					lonRange[0] = mid
				} else {
					lonRange[1] = mid
				}
			} else {
				mid := (latRange[0] + latRange[1]) / 2
				if idx&mask != 0 {
					latRange[0] = mid
				} else {
					latRange[1] = mid
				}
			}
			isLon = !isLon
		}
	}

	return Coordinate{
		Lon: (lonRange[0] + lonRange[1]) / 2,
		Lat: (latRange[0] + latRange[1]) / 2,
	}, true
}
