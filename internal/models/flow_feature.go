package models

// FlowFeature describes one circle (metaflow) of a person-day
type FlowFeature struct {
	ID     int64  `json:"id,omitempty" db:"id"`
	RunID  string `json:"run_id,omitempty" db:"run_id"`
	UserID int64  `json:"user_id" db:"user_id"`
	Date   int    `json:"date" db:"date"` // YYYYMMDD of the mobility day
	FlowID int    `json:"flow_id" db:"flow_id"`

	Length       int     `json:"length" db:"length"`               // stays in the flow, endpoints included
	UniqueLength int     `json:"unique_length" db:"unique_length"` // distinct locations in the flow
	Duration     int64   `json:"duration" db:"duration"`           // seconds
	Distance     float64 `json:"distance" db:"distance"`           // km
	IsMaximal    bool    `json:"is_maximal" db:"is_maximal"`

	RadiusOfGyration  float64 `json:"radius_of_gyration" db:"radius_of_gyration"` // km
	RgPercentageOfDay float64 `json:"rg_percentage_of_day" db:"rg_percentage_of_day"`
	RgDelta           float64 `json:"rg_delta" db:"rg_delta"` // km, stays outside the flow

	StartIndex int `json:"start_index" db:"start_index"`
	EndIndex   int `json:"end_index" db:"end_index"`
}
