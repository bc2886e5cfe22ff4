package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/Swind/go-rt-monitor/core"
)

type runnerStub struct {
	core.Runner
	stats core.RunnerStats
}

func (r runnerStub) Stats() core.RunnerStats { return r.stats }

type response struct {
	RunID string          `json:"run_id"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func newTestServer(t *testing.T) (*httptest.Server, *core.MetricsStore) {
	t.Helper()

	store := core.NewMetricsStore()
	for _, cfg := range []core.TaskConfig{core.AirbagTaskConfig(), core.ABSTaskConfig()} {
		if err := store.Register(cfg); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}

	reg := prom.NewRegistry()
	counter := prom.NewCounter(prom.CounterOpts{Name: "rtmonitor_test_total", Help: "Test counter."})
	reg.MustRegister(counter)
	counter.Inc()

	srv, err := New(Options{
		Store: store,
		Runners: func() []core.Runner {
			return []core.Runner{runnerStub{stats: core.RunnerStats{
				Name: "preemptor", Type: core.RunnerTypePreemptor, Priority: 95,
				Period: 50 * time.Millisecond, Activations: 7, Running: true,
			}}}
		},
		Gatherer: reg,
		RunID:    "run-1",
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

func doRequest(t *testing.T, method, url, body string) (int, response) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode %s %s: %v", method, url, err)
	}
	return resp.StatusCode, out
}

// TestServer_ListTasks verifies the task snapshot listing
// Given: A store with airbag and abs, airbag having missed one deadline
// When: GET /api/tasks is requested
// Then: Both tasks are returned in registration order with microsecond values
func TestServer_ListTasks(t *testing.T) {
	ts, store := newTestServer(t)
	_ = store.SetSensor("airbag", true)
	_, _ = store.RecordActivation("airbag", core.Outcome{
		Active: true, ExecTime: 90 * time.Millisecond, ResponseTime: 101 * time.Millisecond,
	})

	status, resp := doRequest(t, http.MethodGet, ts.URL+"/api/tasks", "")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if resp.RunID != "run-1" {
		t.Fatalf("run_id = %q, want run-1", resp.RunID)
	}

	var tasks []TaskView
	if err := json.Unmarshal(resp.Data, &tasks); err != nil {
		t.Fatalf("unmarshal tasks: %v", err)
	}
	if len(tasks) != 2 || tasks[0].Name != "airbag" || tasks[1].Name != "abs" {
		t.Fatalf("tasks = %+v", tasks)
	}
	airbag := tasks[0]
	if airbag.WCRTUS != 101000 || airbag.WCETUS != 90000 || airbag.DeadlineMisses != 1 || !airbag.SensorActive {
		t.Fatalf("airbag = %+v", airbag)
	}
	if airbag.DeadlineUS != 100000 || airbag.WindowSize != 20 || airbag.RequiredHits != 10 {
		t.Fatalf("airbag config = %+v", airbag)
	}
	if airbag.LastWindow != nil {
		t.Fatalf("LastWindow = %+v before any window completed", airbag.LastWindow)
	}
}

func TestServer_GetTask(t *testing.T) {
	ts, store := newTestServer(t)
	for i := 0; i < 10; i++ {
		_, _ = store.RecordActivation("abs", core.Outcome{})
	}

	status, resp := doRequest(t, http.MethodGet, ts.URL+"/api/tasks/abs", "")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	var task TaskView
	if err := json.Unmarshal(resp.Data, &task); err != nil {
		t.Fatalf("unmarshal task: %v", err)
	}
	if task.LastWindow == nil || task.LastWindow.Verdict != "pass" || task.Windows != 1 {
		t.Fatalf("task = %+v, want one passing window", task)
	}

	status, resp = doRequest(t, http.MethodGet, ts.URL+"/api/tasks/esc", "")
	if status != http.StatusNotFound || resp.Error == "" {
		t.Fatalf("unknown task: status = %d, error = %q", status, resp.Error)
	}
}

func TestServer_SetSensor(t *testing.T) {
	ts, store := newTestServer(t)

	status, _ := doRequest(t, http.MethodPut, ts.URL+"/api/tasks/abs/sensor", `{"active": true}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if !store.SensorActive("abs") {
		t.Fatal("sensor not activated")
	}

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"unknown task", "/api/tasks/esc/sensor", `{"active": true}`, http.StatusNotFound},
		{"missing field", "/api/tasks/abs/sensor", `{}`, http.StatusUnprocessableEntity},
		{"bad json", "/api/tasks/abs/sensor", `{`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := doRequest(t, http.MethodPut, ts.URL+tt.path, tt.body)
			if status != tt.want || resp.Error == "" {
				t.Fatalf("status = %d error = %q, want %d with error", status, resp.Error, tt.want)
			}
		})
	}
}

func TestServer_ListRunners(t *testing.T) {
	ts, _ := newTestServer(t)

	status, resp := doRequest(t, http.MethodGet, ts.URL+"/api/runners", "")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	var runners []RunnerView
	if err := json.Unmarshal(resp.Data, &runners); err != nil {
		t.Fatalf("unmarshal runners: %v", err)
	}
	if len(runners) != 1 || runners[0].Name != "preemptor" || runners[0].PeriodUS != 50000 || runners[0].Activations != 7 {
		t.Fatalf("runners = %+v", runners)
	}
}

func TestServer_Metrics(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "rtmonitor_test_total 1") {
		t.Fatalf("metrics body missing counter:\n%s", body)
	}
}

func TestServer_ListenAndServeShutsDown(t *testing.T) {
	srv, err := New(Options{Store: core.NewMetricsStore()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("ListenAndServe() = %v, want nil after cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestNew_RequiresStore(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("New accepted a nil store")
	}
}
