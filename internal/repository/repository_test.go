package repository

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/mobility-backend-go/internal/database"
	"github.com/jengzang/mobility-backend-go/internal/locmap"
	"github.com/jengzang/mobility-backend-go/internal/models"
	"github.com/jengzang/mobility-backend-go/internal/roadnet"
	"github.com/jengzang/mobility-backend-go/internal/spatial"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db, nil))
	return db
}

func TestAnalysisTaskLifecycle(t *testing.T) {
	repo := NewAnalysisTaskRepository(openTestDB(t))

	task := &models.AnalysisTask{RunID: "run-1", SkillName: models.SkillMine, Source: "test.csv"}
	require.NoError(t, repo.Create(task))
	require.NotZero(t, task.ID)

	got, err := repo.GetByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPending, got.Status)
	assert.Nil(t, got.StartedAt)

	require.NoError(t, repo.MarkAsRunning(task.ID))
	require.NoError(t, repo.UpdateProgress(task.ID, 200, 50, 3))

	got, err = repo.GetByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusRunning, got.Status)
	assert.InDelta(t, 25.0, got.ProgressPercent, 1e-9)
	assert.Equal(t, int64(3), got.FailedItems)
	require.NotNil(t, got.StartedAt)

	require.NoError(t, repo.MarkAsCompleted(task.ID, `{"flows":1}`))
	got, err = repo.GetByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, got.Status)
	assert.Equal(t, 100.0, got.ProgressPercent)
	assert.Equal(t, `{"flows":1}`, got.ResultSummary)
	require.NotNil(t, got.CompletedAt)

	failed := &models.AnalysisTask{RunID: "run-2", SkillName: models.SkillMesos}
	require.NoError(t, repo.Create(failed))
	require.NoError(t, repo.MarkAsFailed(failed.ID, "boom"))

	tasks, err := repo.List("", "", 10, 0)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, failed.ID, tasks[0].ID, "newest first")

	tasks, err = repo.List(models.SkillMesos, models.TaskStatusFailed, 10, 0)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "boom", tasks[0].ErrorMessage)

	_, err = repo.GetByID(999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStationRepository(t *testing.T) {
	repo := NewStationRepository(openTestDB(t))

	_, err := repo.LoadMap()
	assert.ErrorIs(t, err, locmap.ErrNotLoaded)

	require.NoError(t, repo.Upsert([]models.BaseStation{
		{ID: 1, Longitude: 120.10, Latitude: 30.20},
		{ID: 2, Longitude: 120.20, Latitude: 30.25},
	}))
	require.NoError(t, repo.Upsert([]models.BaseStation{{ID: 2, Longitude: 120.21, Latitude: 30.26}}))

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	m, err := repo.LoadMap()
	require.NoError(t, err)
	c, err := m.Resolve(2)
	require.NoError(t, err)
	assert.Equal(t, spatial.Coordinate{Lon: 120.21, Lat: 30.26}, c)
}

const roads = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"name": "a-b"}, "geometry": {"type": "LineString", "coordinates": [[120.10, 30.20], [120.20, 30.20]]}},
    {"type": "Feature", "properties": {}, "geometry": {"type": "MultiLineString", "coordinates": [[[120.20, 30.20], [120.20, 30.30]], [[120.20, 30.30], [120.25, 30.30]]]}},
    {"type": "Feature", "properties": {"name": "poi"}, "geometry": {"type": "Point", "coordinates": [120.1, 30.2]}}
  ]
}`

func TestRoadRepository(t *testing.T) {
	repo := NewRoadRepository(openTestDB(t))

	_, err := repo.LoadNetwork()
	assert.ErrorIs(t, err, roadnet.ErrEmptyNetwork)

	fc, err := geojson.UnmarshalFeatureCollection([]byte(roads))
	require.NoError(t, err)

	n, err := repo.Insert(fc)
	require.NoError(t, err)
	assert.Equal(t, 3, n, "multi line strings are split, points skipped")

	segments, err := repo.List()
	require.NoError(t, err)
	require.Len(t, segments, 3)
	assert.Equal(t, "a-b", segments[0].Name)
	assert.Empty(t, segments[1].Name)

	network, err := repo.LoadNetwork()
	require.NoError(t, err)
	assert.Equal(t, 4, network.VertexCount())
	assert.Equal(t, 3, network.EdgeCount())
}

func graphRecord(user int64, date, nodes int, graph string) *models.MobilityGraphRecord {
	return &models.MobilityGraphRecord{
		RunID: "run", UserID: user, Date: date,
		NodeCount: nodes, EdgeCount: nodes, Graph: graph,
	}
}

func TestGraphRepository(t *testing.T) {
	db := openTestDB(t)
	repo := NewGraphRepository(db)

	records := []*models.MobilityGraphRecord{
		graphRecord(1, 20130910, 2, "a,1.000;b,2.000|0,1,1.000;1,0,1.000"),
		graphRecord(2, 20130910, 3, "a,1.000;b,1.000;c,1.000|0,1,1.000;1,2,1.000;2,0,1.000"),
		graphRecord(1, 20130911, 2, "a,3.000;b,1.000|0,1,2.000;1,0,2.000"),
	}
	require.NoError(t, database.Transaction(db, func(tx *sql.Tx) error {
		return repo.InsertBatch(tx, records)
	}))
	for _, r := range records {
		assert.NotZero(t, r.ID)
	}

	counts, err := repo.NodeCounts()
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, counts)

	two, err := repo.ListByNodeCount(2)
	require.NoError(t, err)
	require.Len(t, two, 2)
	assert.Equal(t, records[0].ID, two[0].ID)
	assert.Equal(t, records[2].Graph, two[1].Graph)

	got, err := repo.GetByID(records[1].ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.NodeCount)

	_, err = repo.GetByID(999)
	assert.ErrorIs(t, err, ErrNotFound)

	list, total, err := repo.List(models.GraphFilter{UserID: 1, PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, list, 1)
	assert.Equal(t, 20130910, list[0].Date)

	list, total, err = repo.List(models.GraphFilter{UserID: 1, Page: 2, PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, list, 1)
	assert.Equal(t, 20130911, list[0].Date)
}

func TestFlowRepository(t *testing.T) {
	db := openTestDB(t)
	repo := NewFlowRepository(db)

	flows := []models.FlowFeature{
		{RunID: "run", UserID: 1, Date: 20130910, FlowID: 0, Length: 5, IsMaximal: true},
		{RunID: "run", UserID: 1, Date: 20130910, FlowID: 1, Length: 3, IsMaximal: false},
		{RunID: "run", UserID: 2, Date: 20130910, FlowID: 0, Length: 3, IsMaximal: true},
	}
	require.NoError(t, database.Transaction(db, func(tx *sql.Tx) error {
		return repo.InsertBatch(tx, flows)
	}))

	all, total, err := repo.List(models.FlowFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, all, 3)

	maximal, total, err := repo.List(models.FlowFilter{UserID: 1, MaximalOnly: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, maximal, 1)
	assert.Equal(t, 5, maximal[0].Length)
	assert.True(t, maximal[0].IsMaximal)

	long, _, err := repo.List(models.FlowFilter{MinLength: 4})
	require.NoError(t, err)
	assert.Len(t, long, 1)
}

func TestMesosRepository(t *testing.T) {
	db := openTestDB(t)
	repo := NewMesosRepository(db)

	results := []models.MesosResult{
		{RunID: "run", NodeCount: 2, GraphID1: 1, GraphID2: 2, UserID1: 1, UserID2: 2, StructDist: 0.1, Mesos: "0,1.000;1,1.000|0,1,1.000"},
		{RunID: "run", NodeCount: 2, GraphID1: 1, GraphID2: 3, UserID1: 1, UserID2: 3, StructDist: 0.6},
		{RunID: "run", NodeCount: 3, GraphID1: 4, GraphID2: 5, UserID1: 4, UserID2: 5, StructDist: 0.2},
	}
	require.NoError(t, database.Transaction(db, func(tx *sql.Tx) error {
		return repo.InsertBatch(tx, results)
	}))

	list, total, err := repo.List(models.MesosFilter{NodeCount: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, results[0].Mesos, list[0].Mesos)

	list, total, err = repo.List(models.MesosFilter{UserID: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, int64(3), list[0].GraphID2)

	list, _, err = repo.List(models.MesosFilter{MaxDist: 0.25})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
