package models

// FlowFilter represents filter parameters for querying flow features
type FlowFilter struct {
	UserID      int64 `form:"userId"`
	Date        int   `form:"date"` // YYYYMMDD
	MaximalOnly bool  `form:"maximalOnly"`
	MinLength   int   `form:"minLength"`
	Page        int   `form:"page"`
	PageSize    int   `form:"pageSize"`
}

// GraphFilter represents filter parameters for querying mobility graphs
type GraphFilter struct {
	UserID    int64 `form:"userId"`
	Date      int   `form:"date"`
	NodeCount int   `form:"nodeCount"`
	Page      int   `form:"page"`
	PageSize  int   `form:"pageSize"`
}

// MesosFilter represents filter parameters for querying mesos results
type MesosFilter struct {
	NodeCount int     `form:"nodeCount"`
	UserID    int64   `form:"userId"` // matches either side
	MaxDist   float64 `form:"maxDist"`
	Page      int     `form:"page"`
	PageSize  int     `form:"pageSize"`
}

// normalize applies the paging defaults shared by all list endpoints
func normalize(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 100
	}
	if pageSize > 1000 {
		pageSize = 1000
	}
	return page, pageSize
}

// Paging returns the normalized page and page size
func (f FlowFilter) Paging() (int, int) { return normalize(f.Page, f.PageSize) }

// Paging returns the normalized page and page size
func (f GraphFilter) Paging() (int, int) { return normalize(f.Page, f.PageSize) }

// Paging returns the normalized page and page size
func (f MesosFilter) Paging() (int, int) { return normalize(f.Page, f.PageSize) }
