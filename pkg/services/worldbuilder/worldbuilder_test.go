package worldbuilder

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentworld/control-plane/pkg/authguard"
	"github.com/agentworld/control-plane/pkg/controller"
	"github.com/agentworld/control-plane/pkg/metrics"
	"github.com/agentworld/control-plane/pkg/queue"
	"github.com/agentworld/control-plane/pkg/ratelimit"
	"github.com/agentworld/control-plane/pkg/secheaders"
	"github.com/agentworld/control-plane/pkg/services/shared"
	"github.com/agentworld/control-plane/pkg/tracker"
)

func testServer(t *testing.T) (http.Handler, *Scene) {
	t.Helper()
	q := queue.New(64)
	tr := tracker.New(1000, time.Minute)
	exec := queue.NewTickExecutor(q, tr, 32, nil)
	stop := make(chan struct{})
	t.Cleanup(func() { close(stop) })
	go func() {
		ticker := time.NewTicker(2 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				exec.Tick()
			}
		}
	}()

	scene := NewScene()
	reg, err := NewRegistry(Deps{
		Shared: shared.Deps{Queue: q, Tracker: tr, DefaultTimeout: 2 * time.Second},
		Scene:  scene,
	})
	require.NoError(t, err)

	h := controller.NewRouter(controller.Config{
		Service:     "worldbuilder",
		Registry:    reg,
		Metrics:     metrics.New("worldbuilder"),
		Auth:        authguard.New(authguard.Config{Enabled: false}, nil),
		RateLimiter: ratelimit.New(6000, 100, nil),
		HSTS:        secheaders.HSTSConfig{},
	})
	return h, scene
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) map[string]any {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestAddElementGoesThroughTheTickQueue(t *testing.T) {
	h, scene := testServer(t)
	result := doJSON(t, h, http.MethodPost, "/add_element",
		`{"element_type":"cube","name":"c1","position":[0,0,0]}`)
	assert.Equal(t, true, result["success"])
	assert.NotEmpty(t, result["id"])
	assert.Len(t, scene.Snapshot(), 1)
}

func TestAddElementRejectsMalformedPosition(t *testing.T) {
	h, _ := testServer(t)
	result := doJSON(t, h, http.MethodPost, "/add_element",
		`{"element_type":"cube","name":"c1","position":[0,0]}`)
	assert.Equal(t, false, result["success"])
	assert.Equal(t, "VALIDATION_ERROR", result["error_code"])
}

func TestCreateBatchThenBatchInfo(t *testing.T) {
	h, _ := testServer(t)
	created := doJSON(t, h, http.MethodPost, "/create_batch",
		`{"elements":[{"element_type":"cube","name":"a","position":[0,0,0]},{"element_type":"cube","name":"b","position":[1,0,0]}]}`)
	require.Equal(t, true, created["success"])
	batchID := created["batch_id"].(string)

	info := doJSON(t, h, http.MethodGet, "/batch_info?batch_id="+batchID, "")
	assert.Equal(t, true, info["success"])
	elems, _ := info["elements"].([]any)
	assert.Len(t, elems, 2)
}

func TestRemoveElementReportsWhetherItExisted(t *testing.T) {
	h, _ := testServer(t)
	removed := doJSON(t, h, http.MethodPost, "/remove_element", `{"id":"does-not-exist"}`)
	assert.Equal(t, true, removed["success"])
	assert.Equal(t, false, removed["removed"])
}

func TestQueryObjectsByTypeFindsCreatedElements(t *testing.T) {
	h, _ := testServer(t)
	doJSON(t, h, http.MethodPost, "/add_element", `{"element_type":"sphere","name":"s1","position":[0,0,0]}`)

	found := doJSON(t, h, http.MethodGet, "/query/objects_by_type?element_type=sphere", "")
	assert.Equal(t, true, found["success"])
	elems, _ := found["elements"].([]any)
	assert.Len(t, elems, 1)
}

func TestQueryObjectsNearPointOverGETAcceptsCommaSeparatedPoint(t *testing.T) {
	h, _ := testServer(t)
	doJSON(t, h, http.MethodPost, "/add_element", `{"element_type":"cube","name":"a","position":[5,0,2]}`)

	found := doJSON(t, h, http.MethodGet, "/query/objects_near_point?point=5,0,2&radius=10", "")
	assert.Equal(t, true, found["success"])
	elems, _ := found["elements"].([]any)
	assert.Len(t, elems, 1)
}

func TestQueryObjectsInBoundsOverGETAcceptsCommaSeparatedBounds(t *testing.T) {
	h, _ := testServer(t)
	doJSON(t, h, http.MethodPost, "/add_element", `{"element_type":"cube","name":"a","position":[0,0,0]}`)

	found := doJSON(t, h, http.MethodGet, "/query/objects_in_bounds?min=-1,-1,-1&max=1,1,1", "")
	assert.Equal(t, true, found["success"])
	elems, _ := found["elements"].([]any)
	assert.Len(t, elems, 1)
}

func TestCalculateBoundsOverWholeScene(t *testing.T) {
	h, _ := testServer(t)
	doJSON(t, h, http.MethodPost, "/add_element", `{"element_type":"cube","name":"a","position":[-1,0,0]}`)
	doJSON(t, h, http.MethodPost, "/add_element", `{"element_type":"cube","name":"b","position":[1,2,0]}`)

	bounds := doJSON(t, h, http.MethodPost, "/transform/calculate_bounds", `{}`)
	assert.Equal(t, true, bounds["success"])
	assert.EqualValues(t, 2, bounds["count"])
}

func TestAlignObjectsSnapsNamedAxis(t *testing.T) {
	h, _ := testServer(t)
	created := doJSON(t, h, http.MethodPost, "/add_element", `{"element_type":"cube","name":"a","position":[1,2,3]}`)
	id := created["id"].(string)

	aligned := doJSON(t, h, http.MethodPost, "/transform/align_objects",
		`{"ids":["`+id+`"],"axis":1,"value":0}`)
	assert.Equal(t, true, aligned["success"])
	assert.EqualValues(t, 1, aligned["aligned"])
}
