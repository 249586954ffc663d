package mobility

import (
	"slices"

	"github.com/jengzang/mobility-backend-go/internal/models"
	"github.com/jengzang/mobility-backend-go/internal/spatial"
)

// IsMaximal reports whether no other circle of a day with n stays strictly
// encloses c. The circle spanning the whole day (0, n-1) is ignored, since the
// synthetic closing stay makes it enclose everything.
func IsMaximal(c Circle, circles []Circle, n int) bool {
	for _, o := range circles {
		if o.Start == 0 && o.End == n-1 {
			continue
		}
		if o.Encloses(c) {
			return false
		}
	}
	return true
}

// FlowFeatures computes one feature record per circle of the day, in mining order
func (p *PersonDay) FlowFeatures() []models.FlowFeature {
	features := make([]models.FlowFeature, 0, len(p.circles))
	if len(p.circles) == 0 {
		return features
	}

	n := len(p.locations)
	rgDay := p.RadiusOfGyration()
	date := p.DateID()

	for id, c := range p.circles {
		locs := p.locations[c.Start : c.End+1]
		ts := p.timestamps[c.Start : c.End+1]
		coords := p.coordinates[c.Start : c.End+1]

		unique := make(map[int64]struct{}, len(locs))
		for _, l := range locs {
			unique[l] = struct{}{}
		}

		rg := spatial.RadiusOfGyration(coords)
		var rgPrc float64
		if rgDay > 0 {
			rgPrc = rg / rgDay
		}

		// stays outside the flow
		outside := make([]spatial.Coordinate, 0, n-c.Len())
		outside = append(outside, p.coordinates[:c.Start]...)
		outside = append(outside, p.coordinates[c.End+1:]...)

		features = append(features, models.FlowFeature{
			UserID:            p.UserID,
			Date:              date,
			FlowID:            id,
			Length:            len(locs),
			UniqueLength:      len(unique),
			Duration:          slices.Max(ts) - slices.Min(ts),
			Distance:          spatial.PathLength(coords),
			IsMaximal:         IsMaximal(c, p.circles, n),
			RadiusOfGyration:  rg,
			RgPercentageOfDay: rgPrc,
			RgDelta:           spatial.RadiusOfGyration(outside),
			StartIndex:        c.Start,
			EndIndex:          c.End,
		})
	}

	return features
}
