package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jengzang/mobility-backend-go/internal/config"
	"github.com/jengzang/mobility-backend-go/internal/database"
	"github.com/jengzang/mobility-backend-go/internal/locmap"
	"github.com/jengzang/mobility-backend-go/internal/mesos"
	"github.com/jengzang/mobility-backend-go/internal/metrics"
	"github.com/jengzang/mobility-backend-go/internal/mobility"
	"github.com/jengzang/mobility-backend-go/internal/models"
	"github.com/jengzang/mobility-backend-go/internal/motif"
	"github.com/jengzang/mobility-backend-go/internal/repository"
)

const stations = `# id,cell,lon,lat
1,c1,120.10,30.20
2,c2,120.20,30.25
3,c3,120.15,30.30
`

// t0 is 2013-09-10 03:00 UTC
const t0 = 1378782000

func observations() string {
	lines := []string{
		fmt.Sprintf("1,%d,1", t0),
		fmt.Sprintf("1,%d,2", t0+8*3600),
		fmt.Sprintf("1,%d,1", t0+18*3600),
		"not,a,record",
		fmt.Sprintf("2,%d,3", t0+3600),
		fmt.Sprintf("2,%d,1", t0+5*3600),
		fmt.Sprintf("2,%d,3", t0+6*3600),
		fmt.Sprintf("3,%d,1", t0+3600),
		fmt.Sprintf("3,%d,99", t0+7200), // unknown station
	}
	return strings.Join(lines, "\n") + "\n"
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db, nil))
	return db
}

func windowUTC() mobility.WindowOptions {
	return mobility.WindowOptions{Location: time.UTC}
}

func importStations(t *testing.T, db *sql.DB) {
	t.Helper()
	n, err := NewImportService(db, zaptest.NewLogger(t)).ImportStations(strings.NewReader(stations))
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestMiningRequiresStations(t *testing.T) {
	db := openTestDB(t)
	svc := NewMiningService(db, windowUTC(), nil, zaptest.NewLogger(t))

	task, err := svc.Run(context.Background(), strings.NewReader(observations()), "test")
	assert.ErrorIs(t, err, locmap.ErrNotLoaded)
	require.NotNil(t, task)

	stored, err := repository.NewAnalysisTaskRepository(db).GetByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFailed, stored.Status)
}

func TestMiningStoresFlowsAndGraphs(t *testing.T) {
	db := openTestDB(t)
	importStations(t, db)

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector("test", reg)

	svc := NewMiningService(db, windowUTC(), collector, zaptest.NewLogger(t))
	svc.BatchSize = 1

	task, err := svc.Run(context.Background(), strings.NewReader(observations()), "test")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, task.Status)
	assert.Equal(t, "test", task.Source)

	var summary MiningSummary
	require.NoError(t, json.Unmarshal([]byte(task.ResultSummary), &summary))
	assert.Equal(t, int64(1), summary.Malformed)
	assert.Equal(t, int64(1), summary.Unknown)
	assert.Equal(t, int64(3), summary.Emitted)
	assert.Equal(t, int64(3), summary.Graphs)
	assert.Equal(t, int64(2), summary.Flows)
	assert.False(t, summary.Roads)

	graphs, total, err := svc.ListGraphs(models.GraphFilter{UserID: 1})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, 20130910, graphs[0].Date)
	assert.Equal(t, 2, graphs[0].NodeCount)
	assert.Equal(t, 2, graphs[0].EdgeCount)
	assert.Equal(t, 1, graphs[0].Circles)
	assert.Equal(t, task.RunID, graphs[0].RunID)

	flows, total, err := svc.ListFlows(models.FlowFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, f := range flows {
		assert.Equal(t, 3, f.Length)
		assert.Equal(t, 2, f.UniqueLength)
		assert.True(t, f.IsMaximal)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(collector.PersonDaysTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.CirclesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.RecordsTotal.WithLabelValues("unknown_location")))
}

func TestMiningUsesRoads(t *testing.T) {
	db := openTestDB(t)
	importStations(t, db)

	n, err := NewImportService(db, nil).ImportRoads([]byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{},"geometry":{"type":"LineString","coordinates":[[120.10,30.20],[120.20,30.25]]}}
	]}`))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	svc := NewMiningService(db, windowUTC(), nil, nil)
	task, err := svc.Run(context.Background(), strings.NewReader(observations()), "roads")
	require.NoError(t, err)

	var summary MiningSummary
	require.NoError(t, json.Unmarshal([]byte(task.ResultSummary), &summary))
	assert.True(t, summary.Roads)
}

func TestMineSequence(t *testing.T) {
	svc := NewMiningService(nil, windowUTC(), nil, nil)

	assert.Equal(t, []mobility.Circle{{Start: 0, End: 2}}, svc.MineSequence([]string{"a", "b", "a"}))
	assert.Empty(t, svc.MineSequence([]string{"a", "b"}))
	assert.NotNil(t, svc.MineSequence(nil))
}

func TestImportRejectsBadInput(t *testing.T) {
	svc := NewImportService(openTestDB(t), nil)

	_, err := svc.ImportStations(strings.NewReader("1,c1,abc,30\n"))
	assert.Error(t, err)

	_, err = svc.ImportRoads([]byte("{not json"))
	assert.Error(t, err)
}

func TestCompare(t *testing.T) {
	svc := NewMesosService(nil, mesos.DefaultOptions(), nil, nil)

	g := "a,50000.000;b,30000.000;c,6400.000|0,1,12.500;1,2,3.100;2,0,9.800"
	same, err := svc.Compare(g, g)
	require.NoError(t, err)
	assert.Zero(t, same.StructDist)
	assert.Len(t, same.Matching, 3)
	assert.Len(t, same.Nodes, 3)
	assert.Len(t, same.Edges, 3)

	other, err := svc.Compare(g, "a,10.000;b,80000.000;c,1.000|0,1,1.000;1,0,1.000;1,2,40.000")
	require.NoError(t, err)
	assert.Greater(t, other.StructDist, 0.0)
	assert.LessOrEqual(t, other.StructDist, 1.0)

	_, err = svc.Compare("nonsense", g)
	assert.Error(t, err)
}

func TestPairwise(t *testing.T) {
	db := openTestDB(t)
	importStations(t, db)

	_, err := NewMiningService(db, windowUTC(), nil, nil).Run(context.Background(), strings.NewReader(observations()), "test")
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector("test", reg)
	svc := NewMesosService(db, mesos.DefaultOptions(), collector, zaptest.NewLogger(t))

	task, err := svc.Pairwise(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, task.Status)
	assert.Equal(t, models.SkillMesos, task.SkillName)

	var summary PairwiseSummary
	require.NoError(t, json.Unmarshal([]byte(task.ResultSummary), &summary))
	// two 2-node graphs, one 1-node graph
	assert.Equal(t, 3, summary.Graphs)
	assert.Equal(t, 1, summary.Groups)
	assert.Equal(t, 1, summary.Pairs)
	assert.Zero(t, summary.StdDev)

	results, total, err := svc.ListResults(models.MesosFilter{NodeCount: 2})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, task.RunID, results[0].RunID)
	assert.Less(t, results[0].GraphID1, results[0].GraphID2)
	assert.InDelta(t, summary.Mean, results[0].StructDist, 1e-12)
	assert.GreaterOrEqual(t, results[0].StructDist, 0.0)
	assert.LessOrEqual(t, results[0].StructDist, 1.0)
	assert.NotEmpty(t, results[0].Mesos)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.MesosTotal))
}

func TestPairwiseSkipsUnreadableGraphs(t *testing.T) {
	db := openTestDB(t)
	graphs := repository.NewGraphRepository(db)
	require.NoError(t, database.Transaction(db, func(tx *sql.Tx) error {
		return graphs.InsertBatch(tx, []*models.MobilityGraphRecord{
			{UserID: 1, Date: 20130910, NodeCount: 2, Graph: "a,1.000;b,1.000|0,1,1.000;1,0,1.000"},
			{UserID: 2, Date: 20130910, NodeCount: 2, Graph: "broken"},
			{UserID: 3, Date: 20130910, NodeCount: 2, Graph: "a,1.000;b,1.000|0,1,1.000;1,0,1.000"},
		})
	}))

	task, err := NewMesosService(db, mesos.DefaultOptions(), nil, nil).Pairwise(context.Background(), 2)
	require.NoError(t, err)

	var summary PairwiseSummary
	require.NoError(t, json.Unmarshal([]byte(task.ResultSummary), &summary))
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Pairs)
	assert.Zero(t, summary.Mean, "identical graphs")
	assert.Equal(t, int64(1), task.FailedItems)
}

func TestRunPairwiseCancelledMarksFailed(t *testing.T) {
	db := openTestDB(t)
	importStations(t, db)
	_, err := NewMiningService(db, windowUTC(), nil, nil).Run(context.Background(), strings.NewReader(observations()), "test")
	require.NoError(t, err)

	svc := NewMesosService(db, mesos.DefaultOptions(), nil, zaptest.NewLogger(t))
	task, err := svc.CreatePairwiseTask(0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, svc.RunPairwise(ctx, task, 0), context.Canceled)

	stored, err := repository.NewAnalysisTaskRepository(db).GetByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFailed, stored.Status)
	assert.Contains(t, stored.ErrorMessage, "canceled")
}

func TestStartPairwiseWait(t *testing.T) {
	db := openTestDB(t)
	importStations(t, db)
	_, err := NewMiningService(db, windowUTC(), nil, nil).Run(context.Background(), strings.NewReader(observations()), "test")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	repo := repository.NewAnalysisTaskRepository(db)
	tasks := NewAnalysisTaskService(ctx, repo, NewMesosService(db, mesos.DefaultOptions(), nil, nil), zaptest.NewLogger(t))

	_, err = tasks.StartPairwise(-1)
	assert.Error(t, err)

	task, err := tasks.StartPairwise(2)
	require.NoError(t, err)
	tasks.Wait()

	stored, err := tasks.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, stored.Status)

	cancel()
	_, err = tasks.StartPairwise(0)
	assert.ErrorIs(t, err, context.Canceled, "no new tasks after shutdown")
	tasks.Wait()
}

func TestMotifStats(t *testing.T) {
	db := openTestDB(t)
	graphs := repository.NewGraphRepository(db)
	require.NoError(t, database.Transaction(db, func(tx *sql.Tx) error {
		return graphs.InsertBatch(tx, []*models.MobilityGraphRecord{
			{UserID: 1, NodeCount: 2, Graph: "a,1.000;b,1.000|0,1,1.000;1,0,1.000"},
			{UserID: 2, NodeCount: 2, Graph: "x,5.000;y,2.000|1,0,3.000;0,1,4.000"},
			{UserID: 3, NodeCount: 2, Graph: "a,1.000;b,1.000|0,1,1.000"},
			{UserID: 4, NodeCount: 3, Graph: "a,1.000;b,1.000;c,1.000|0,1,1.000;1,2,1.000;2,0,1.000"},
		})
	}))

	stats, err := NewMotifService(db, nil).Stats(0)
	require.NoError(t, err)
	require.Len(t, stats, 3)
	assert.Equal(t, motifStat(2, 0, 2, 2), stats[0])
	assert.Equal(t, motifStat(2, 1, 1, 1), stats[1])
	assert.Equal(t, motifStat(3, 0, 3, 1), stats[2])

	only, err := NewMotifService(db, nil).Stats(3)
	require.NoError(t, err)
	assert.Len(t, only, 1)
}

func motifStat(nodes, index, edges, count int) motif.Stat {
	return motif.Stat{Nodes: nodes, Index: index, Edges: edges, Count: count}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{
		Timezone:             "Asia/Shanghai",
		DwellingSplitRatio:   0.6,
		MaxDistinctLocations: 12,
		KernelLambda:         0.3,
		KernelSharpness:      0.5,
		KernelIterations:     3,
	}

	window, err := WindowOptions(cfg)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Shanghai", window.Location.String())
	require.NotNil(t, window.SplitRatio)
	assert.Equal(t, 0.6, *window.SplitRatio)
	assert.Equal(t, 12, window.MaxDistinctLocations)

	opts := MesosOptions(cfg)
	assert.Equal(t, 0.3, opts.Lambda)
	assert.Equal(t, mesos.TACSim{Sharpness: 0.5, Iterations: 3}, opts.Kernel)

	cfg.Timezone = "Nowhere/Invalid"
	_, err = WindowOptions(cfg)
	assert.Error(t, err)
}
