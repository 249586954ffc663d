package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/mobility-backend-go/internal/database"
	"github.com/jengzang/mobility-backend-go/internal/mesos"
	"github.com/jengzang/mobility-backend-go/internal/mobility"
	"github.com/jengzang/mobility-backend-go/internal/models"
	"github.com/jengzang/mobility-backend-go/internal/repository"
	"github.com/jengzang/mobility-backend-go/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setup(t *testing.T) (*gin.Engine, *sql.DB) {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db, nil))

	mining := NewMiningHandler(service.NewMiningService(db, mobility.WindowOptions{Location: time.UTC}, nil, nil))
	mesosService := service.NewMesosService(db, mesos.DefaultOptions(), nil, nil)
	meso := NewMesosHandler(mesosService, service.NewMotifService(db, nil))
	imports := NewImportHandler(service.NewImportService(db, nil))
	taskService := service.NewAnalysisTaskService(context.Background(), repository.NewAnalysisTaskRepository(db), mesosService, nil)
	t.Cleanup(taskService.Wait)
	tasks := NewAnalysisTaskHandler(taskService)

	r := gin.New()
	r.POST("/circles", mining.MineCircles)
	r.POST("/mine", mining.Mine)
	r.GET("/flows", mining.ListFlows)
	r.GET("/graphs", mining.ListGraphs)
	r.POST("/mesos", meso.Compare)
	r.GET("/mesos", meso.ListResults)
	r.GET("/motifs", meso.MotifStats)
	r.POST("/stations", imports.ImportStations)
	r.POST("/roads", imports.ImportRoads)
	r.GET("/tasks", tasks.ListTasks)
	r.GET("/tasks/:id", tasks.GetTask)
	r.POST("/tasks/mesos", tasks.StartPairwise)
	return r, db
}

func do(t *testing.T, r http.Handler, method, path, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if strings.HasPrefix(body, "{") {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func TestMineCircles(t *testing.T) {
	r, _ := setup(t)

	code, env := do(t, r, http.MethodPost, "/circles", `{"sequence":["h","w","s","w","h","g","h"]}`)
	require.Equal(t, http.StatusOK, code)

	var data struct {
		Circles []mobility.Circle `json:"circles"`
		Count   int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, []mobility.Circle{{Start: 0, End: 4}, {Start: 1, End: 3}, {Start: 4, End: 6}}, data.Circles)
	assert.Equal(t, 3, data.Count)

	code, _ = do(t, r, http.MethodPost, "/circles", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestMineAndList(t *testing.T) {
	r, _ := setup(t)

	code, _ := do(t, r, http.MethodPost, "/mine", "1,1378782000,1\n")
	assert.Equal(t, http.StatusConflict, code, "no stations yet")

	code, env := do(t, r, http.MethodPost, "/stations", "1,c1,120.10,30.20\n2,c2,120.20,30.25\n")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"imported":2}`, string(env.Data))

	stream := "1,1378782000,1\n1,1378810800,2\n1,1378846800,1\n"
	code, env = do(t, r, http.MethodPost, "/mine?source=api", stream)
	require.Equal(t, http.StatusOK, code)

	var task models.AnalysisTask
	require.NoError(t, json.Unmarshal(env.Data, &task))
	assert.Equal(t, models.TaskStatusCompleted, task.Status)
	assert.Equal(t, "api", task.Source)

	code, env = do(t, r, http.MethodGet, "/graphs?userId=1", "")
	require.Equal(t, http.StatusOK, code)
	var graphs struct {
		Data  []models.MobilityGraphRecord `json:"data"`
		Total int64                        `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &graphs))
	assert.Equal(t, int64(1), graphs.Total)
	assert.Equal(t, 2, graphs.Data[0].NodeCount)

	code, env = do(t, r, http.MethodGet, "/flows?maximalOnly=true", "")
	require.Equal(t, http.StatusOK, code)
	var flows struct {
		Data  []models.FlowFeature `json:"data"`
		Total int64                `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &flows))
	assert.Equal(t, int64(1), flows.Total)

	code, _ = do(t, r, http.MethodGet, "/flows?userId=abc", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = do(t, r, http.MethodGet, "/motifs", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"nodes":2`)

	code, _ = do(t, r, http.MethodGet, "/motifs?nodes=-1", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCompare(t *testing.T) {
	r, _ := setup(t)

	g := "a,3.000;b,1.000|0,1,2.000;1,0,2.000"
	code, env := do(t, r, http.MethodPost, "/mesos", fmt.Sprintf(`{"graph1":%q,"graph2":%q}`, g, g))
	require.Equal(t, http.StatusOK, code)

	var result service.Comparison
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Zero(t, result.StructDist)
	assert.Equal(t, 1.0, result.Similarity)
	assert.Len(t, result.Matching, 2)

	code, env = do(t, r, http.MethodPost, "/mesos", fmt.Sprintf(`{"graph1":%q,"graph2":"oops"}`, g))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Message, "second graph")
}

func TestImportRoads(t *testing.T) {
	r, _ := setup(t)

	body := `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":{"type":"LineString","coordinates":[[120.1,30.2],[120.2,30.2]]}}]}`
	code, env := do(t, r, http.MethodPost, "/roads", body)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"segments":1}`, string(env.Data))

	code, _ = do(t, r, http.MethodPost, "/roads", "not geojson")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestTasks(t *testing.T) {
	r, db := setup(t)

	graphs := repository.NewGraphRepository(db)
	require.NoError(t, database.Transaction(db, func(tx *sql.Tx) error {
		return graphs.InsertBatch(tx, []*models.MobilityGraphRecord{
			{UserID: 1, NodeCount: 2, Graph: "a,1.000;b,2.000|0,1,1.000;1,0,1.000"},
			{UserID: 2, NodeCount: 2, Graph: "a,2.000;b,1.000|0,1,3.000;1,0,1.000"},
		})
	}))

	code, env := do(t, r, http.MethodPost, "/tasks/mesos", `{"node_count":2}`)
	require.Equal(t, http.StatusAccepted, code)
	var task models.AnalysisTask
	require.NoError(t, json.Unmarshal(env.Data, &task))
	require.NotZero(t, task.ID)

	path := fmt.Sprintf("/tasks/%d", task.ID)
	require.Eventually(t, func() bool {
		code, env := do(t, r, http.MethodGet, path, "")
		if code != http.StatusOK {
			return false
		}
		var got models.AnalysisTask
		return json.Unmarshal(env.Data, &got) == nil && got.Status == models.TaskStatusCompleted
	}, 5*time.Second, 20*time.Millisecond)

	code, env = do(t, r, http.MethodGet, "/mesos?nodeCount=2", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"total":1`)

	code, env = do(t, r, http.MethodGet, "/tasks?skill_name=mesos", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), task.RunID)

	code, _ = do(t, r, http.MethodGet, "/tasks/999", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, r, http.MethodGet, "/tasks/abc", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, r, http.MethodPost, "/tasks/mesos", `{"node_count":-1}`)
	assert.Equal(t, http.StatusBadRequest, code)
}
