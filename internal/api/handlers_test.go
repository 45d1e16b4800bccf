package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/azulrosales/routing-solver/internal/matrix"
	"github.com/azulrosales/routing-solver/internal/model"
	"github.com/azulrosales/routing-solver/internal/store"
)

func newTestServer(provider matrix.Provider) *Server {
	return &Server{Store: store.NewMemory(), Matrix: provider, TimeBudget: 200 * time.Millisecond}
}

func postSolve(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/solve", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	s.SolveHandler(rr, req)
	return rr
}

func TestHealthReady(t *testing.T) {
	s := newTestServer(nil)
	rr := httptest.NewRecorder()
	s.HealthHandler(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != 200 {
		t.Fatalf("health: got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	s.ReadyHandler(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != 200 {
		t.Fatalf("ready: got %d", rr.Code)
	}
}

func TestSolveInlineMatrix(t *testing.T) {
	s := newTestServer(nil)
	rr := postSolve(t, s, `{"numVehicles":1,"starts":[0],"ends":[0],"matrix":[[0,1],[1,0]],"serviceTime":0}`)
	if rr.Code != 200 {
		t.Fatalf("solve: got %d body %s", rr.Code, rr.Body.String())
	}
	var resp model.SolveResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "solved" || resp.Solution == nil {
		t.Fatalf("got status %q solution %v", resp.Status, resp.Solution)
	}
	if resp.Solution.TotalTime != 2 {
		t.Fatalf("total time: got %d", resp.Solution.TotalTime)
	}
	if resp.ID == "" {
		t.Fatalf("expected a persisted id")
	}
}

func TestSolveInfeasibleIsNotAnError(t *testing.T) {
	s := newTestServer(nil)
	rr := postSolve(t, s, `{"numVehicles":1,"starts":[0],"ends":[0],"matrix":[[0,9],[9,0]],"serviceTime":0,"maxRouteTime":1}`)
	if rr.Code != 200 {
		t.Fatalf("solve: got %d body %s", rr.Code, rr.Body.String())
	}
	var resp model.SolveResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "infeasible" || resp.Solution != nil {
		t.Fatalf("got status %q solution %v", resp.Status, resp.Solution)
	}
}

func TestSolveRequestValidation(t *testing.T) {
	s := newTestServer(nil)
	rr := postSolve(t, s, `{"numVehicles":1,"ends":[0],"matrix":[[0,1],[1,0]]}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing starts: got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "starts") {
		t.Fatalf("problem body should name the field: %s", rr.Body.String())
	}
}

func TestSolveRejectsBadInstance(t *testing.T) {
	s := newTestServer(nil)
	rr := postSolve(t, s, `{"numVehicles":1,"starts":[0],"ends":[0],"matrix":[[0,-1],[1,0]]}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("negative matrix entry: got %d", rr.Code)
	}
}

func TestSolveWithoutProviderNeedsInlineMatrix(t *testing.T) {
	s := newTestServer(nil)
	rr := postSolve(t, s, `{"numVehicles":1,"starts":[0],"ends":[0],"locations":["a","b"]}`)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("no provider: got %d", rr.Code)
	}
}

func TestSolveFetchesMatrixForLocations(t *testing.T) {
	s := newTestServer(&matrix.Static{Times: [][]int{{0, 1}, {1, 0}}})
	rr := postSolve(t, s, `{"numVehicles":1,"starts":[0],"ends":[0],"locations":["a","b"],"serviceTime":0}`)
	if rr.Code != 200 {
		t.Fatalf("solve: got %d body %s", rr.Code, rr.Body.String())
	}
}

func TestSolveHistory(t *testing.T) {
	s := newTestServer(nil)
	rr := postSolve(t, s, `{"numVehicles":1,"starts":[0],"ends":[0],"matrix":[[0,1],[1,0]],"serviceTime":0}`)
	if rr.Code != 200 {
		t.Fatalf("solve: got %d", rr.Code)
	}
	var resp model.SolveResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rr = httptest.NewRecorder()
	s.SolvesHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/solves?limit=5", nil))
	if rr.Code != 200 {
		t.Fatalf("list: got %d", rr.Code)
	}
	var list struct {
		Items []store.SolveRecord `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].ID != resp.ID {
		t.Fatalf("list items: %+v", list.Items)
	}

	rr = httptest.NewRecorder()
	s.SolveByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/solves/"+resp.ID, nil))
	if rr.Code != 200 {
		t.Fatalf("get: got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	s.SolveByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/solves/nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("get missing: got %d", rr.Code)
	}
}

func TestSolveStream(t *testing.T) {
	s := newTestServer(nil)
	ts := httptest.NewServer(http.HandlerFunc(s.SolveStreamHandler))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/solve/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	req := `{"numVehicles":1,"starts":[0],"ends":[0],"matrix":[[0,1],[1,0]],"serviceTime":0}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(req)); err != nil {
		t.Fatalf("write: %v", err)
	}
	for {
		var ev model.ProgressEvent
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read: %v", err)
		}
		switch ev.Type {
		case "progress":
			continue
		case "result":
			if ev.Result == nil || ev.Result.Status != "solved" {
				t.Fatalf("result event: %+v", ev)
			}
			return
		default:
			t.Fatalf("unexpected event %+v", ev)
		}
	}
}
