package models

// MobilityGraphRecord is a serialized person-day mobility graph
type MobilityGraphRecord struct {
	ID        int64   `json:"id" db:"id"`
	RunID     string  `json:"run_id,omitempty" db:"run_id"`
	UserID    int64   `json:"user_id" db:"user_id"`
	Date      int     `json:"date" db:"date"`
	NodeCount int     `json:"node_count" db:"node_count"`
	EdgeCount int     `json:"edge_count" db:"edge_count"`
	Circles   int     `json:"circles" db:"circles"`
	Rg        float64 `json:"rg" db:"rg"`         // km
	Travel    float64 `json:"travel" db:"travel"` // km
	Graph     string  `json:"graph" db:"graph"`   // "<nodes>|<edges>"
}

// MesosResult is the structural comparison of two stored mobility graphs
type MesosResult struct {
	ID         int64   `json:"id" db:"id"`
	RunID      string  `json:"run_id,omitempty" db:"run_id"`
	NodeCount  int     `json:"node_count" db:"node_count"`
	GraphID1   int64   `json:"graph_id1" db:"graph_id1"`
	GraphID2   int64   `json:"graph_id2" db:"graph_id2"`
	UserID1    int64   `json:"user_id1" db:"user_id1"`
	UserID2    int64   `json:"user_id2" db:"user_id2"`
	Date1      int     `json:"date1" db:"date1"`
	Date2      int     `json:"date2" db:"date2"`
	StructDist float64 `json:"struct_dist" db:"struct_dist"`
	Mesos      string  `json:"mesos" db:"mesos"` // serialized mesos graph
}
